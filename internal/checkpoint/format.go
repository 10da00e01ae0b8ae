package checkpoint

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/models"
)

const formatVersion = 1

type fileLayer struct {
	Weights []byte    `json:"weights"`
	Bias    []float64 `json:"bias"`
}

type file struct {
	Version      int                 `json:"version"`
	Epoch        int                 `json:"epoch,omitempty"`
	Architecture models.Architecture `json:"architecture"`
	Layers       []fileLayer         `json:"layers"`
}

func encode(w io.Writer, epoch int, s *models.Snapshot) error {
	f := file{
		Version:      formatVersion,
		Epoch:        epoch,
		Architecture: s.Architecture,
		Layers:       make([]fileLayer, len(s.Weights)),
	}
	for i, w := range s.Weights {
		data, err := w.MarshalBinary()
		if err != nil {
			return fmt.Errorf("layer %d weights: %w", i, err)
		}
		f.Layers[i] = fileLayer{Weights: data, Bias: s.Biases[i]}
	}

	zw := zlib.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(&f); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func decode(data []byte) (*models.Snapshot, int, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", aero.ErrIncompatibleCheckpoint, err)
	}
	defer zr.Close()

	var f file
	if err := json.NewDecoder(zr).Decode(&f); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", aero.ErrIncompatibleCheckpoint, err)
	}
	if f.Version != formatVersion {
		return nil, 0, fmt.Errorf("%w: format version %d", aero.ErrIncompatibleCheckpoint, f.Version)
	}

	s := &models.Snapshot{
		Architecture: f.Architecture,
		Weights:      make([]*mat.Dense, len(f.Layers)),
		Biases:       make([][]float64, len(f.Layers)),
	}
	for i, l := range f.Layers {
		var w mat.Dense
		if err := w.UnmarshalBinary(l.Weights); err != nil {
			return nil, 0, fmt.Errorf("%w: layer %d: %v", aero.ErrIncompatibleCheckpoint, i, err)
		}
		s.Weights[i] = &w
		s.Biases[i] = l.Bias
	}
	return s, f.Epoch, nil
}
