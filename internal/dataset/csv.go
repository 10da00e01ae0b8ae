package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/aeropinn/internal/aero"
)

// Columns lists the CSV header names read and written, in FlowSample order.
var Columns = []string{"x", "y", "AoA", "u", "v", "p"}

func LoadCSV(path string) ([]aero.FlowSample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	samples, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// ReadCSV parses a header row followed by one sample per row. Columns other
// than x, y, AoA, u, v and p are ignored.
func ReadCSV(r io.Reader) ([]aero.FlowSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty csv: %w", aero.ErrInsufficientData)
		}
		return nil, err
	}

	index := make([]int, len(Columns))
	for i, name := range Columns {
		index[i] = -1
		for j, h := range header {
			if h == name {
				index[i] = j
				break
			}
		}
		if index[i] < 0 {
			return nil, fmt.Errorf("missing column %q in header %v", name, header)
		}
	}

	samples := make([]aero.FlowSample, 0)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var vals [6]float64
		for i, col := range index {
			if col >= len(record) {
				return nil, fmt.Errorf("line %d: missing value for %q", line, Columns[i])
			}
			v, err := strconv.ParseFloat(record[col], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %q: %w", line, Columns[i], err)
			}
			vals[i] = v
		}
		samples = append(samples, aero.FlowSample{
			X: vals[0], Y: vals[1], AoA: vals[2], U: vals[3], V: vals[4], P: vals[5],
		})
	}
	return samples, nil
}

func WriteCSV(w io.Writer, samples []aero.FlowSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.X, 'g', -1, 64),
			strconv.FormatFloat(s.Y, 'g', -1, 64),
			strconv.FormatFloat(s.AoA, 'g', -1, 64),
			strconv.FormatFloat(s.U, 'g', -1, 64),
			strconv.FormatFloat(s.V, 'g', -1, 64),
			strconv.FormatFloat(s.P, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func SaveCSV(path string, samples []aero.FlowSample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(file, samples); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
