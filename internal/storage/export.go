package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/aeropinn/internal/trainer"
)

type ExportData struct {
	Run     RunMetadata     `json:"run"`
	Epochs  int             `json:"epochs_completed"`
	History trainer.History `json:"history"`
}

func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	h, err := s.LoadHistory(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, meta, h)
}

func ExportJSON(w io.Writer, meta *RunMetadata, h trainer.History) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Epochs: len(h), History: h})
}

func ExportFile(path string, meta *RunMetadata, h trainer.History) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := ExportJSON(file, meta, h); err != nil {
		return err
	}
	return file.Close()
}
