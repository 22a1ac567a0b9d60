// Package dataset loads labeled activation matrices from CSV or JSON
// files. A dataset is the input contract for probe fitting: an [N, dim]
// float matrix plus an N-length label vector.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("malformed dataset")

// Dataset is a labeled activation matrix.
type Dataset struct {
	Activations [][]float64 `json:"activations"`
	Labels      []float64   `json:"labels"`
}

func (d Dataset) Len() int { return len(d.Activations) }

// Dim returns the activation width, or 0 for an empty dataset.
func (d Dataset) Dim() int {
	if len(d.Activations) == 0 {
		return 0
	}
	return len(d.Activations[0])
}

// Validate checks the row/label agreement and rectangular shape.
func (d Dataset) Validate() error {
	if len(d.Activations) != len(d.Labels) {
		return fmt.Errorf("%w: %d activation rows vs %d labels", ErrMalformed,
			len(d.Activations), len(d.Labels))
	}
	dim := d.Dim()
	for i, row := range d.Activations {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has width %d, expected %d", ErrMalformed, i, len(row), dim)
		}
	}
	return nil
}

// Load reads a dataset from path, dispatching on the file extension:
// .json for the JSON shape, anything else parses as CSV.
func Load(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()

	if filepath.Ext(path) == ".json" {
		return ReadJSON(f)
	}
	return ReadCSV(f)
}

// ReadJSON decodes {"activations": [[...], ...], "labels": [...]}.
func ReadJSON(r io.Reader) (Dataset, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset json: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// ReadCSV parses a header row followed by float records. The column named
// "label" (any position) supplies the labels; every other column is an
// activation feature, in header order.
func ReadCSV(r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return Dataset{}, fmt.Errorf("%w: empty file", ErrMalformed)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset header: %w", err)
	}

	labelCol := -1
	for i, name := range header {
		if strings.TrimSpace(strings.ToLower(name)) == "label" {
			labelCol = i
			break
		}
	}
	if labelCol < 0 {
		return Dataset{}, fmt.Errorf("%w: no label column", ErrMalformed)
	}

	var d Dataset
	rowIndex := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("read dataset row %d: %w", rowIndex, err)
		}
		if len(record) != len(header) {
			return Dataset{}, fmt.Errorf("%w: row %d has %d fields, header has %d",
				ErrMalformed, rowIndex, len(record), len(header))
		}

		row := make([]float64, 0, len(record)-1)
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return Dataset{}, fmt.Errorf("%w: row %d field %q: %v", ErrMalformed, rowIndex, field, err)
			}
			if i == labelCol {
				d.Labels = append(d.Labels, v)
			} else {
				row = append(row, v)
			}
		}
		d.Activations = append(d.Activations, row)
		rowIndex++
	}

	if err := d.Validate(); err != nil {
		return Dataset{}, err
	}
	return d, nil
}
