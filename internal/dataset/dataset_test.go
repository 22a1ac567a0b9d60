package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	csvData := "f0,label,f1\n" +
		"1.0,0,2.0\n" +
		"3.0,1,4.0\n"

	d, err := ReadCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if d.Len() != 2 || d.Dim() != 2 {
		t.Fatalf("shape %dx%d", d.Len(), d.Dim())
	}
	// The label column sits in the middle; features keep header order.
	if d.Labels[0] != 0 || d.Labels[1] != 1 {
		t.Fatalf("labels = %v", d.Labels)
	}
	if d.Activations[0][0] != 1 || d.Activations[0][1] != 2 {
		t.Fatalf("row 0 = %v", d.Activations[0])
	}
	if d.Activations[1][0] != 3 || d.Activations[1][1] != 4 {
		t.Fatalf("row 1 = %v", d.Activations[1])
	}
}

func TestReadCSVErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no_label_column", "f0,f1\n1,2\n"},
		{"non_numeric", "f0,label\nx,1\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tc.data)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestReadJSON(t *testing.T) {
	jsonData := `{"activations": [[1, 2], [3, 4]], "labels": [0, 1]}`
	d, err := ReadJSON(strings.NewReader(jsonData))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if d.Len() != 2 || d.Dim() != 2 {
		t.Fatalf("shape %dx%d", d.Len(), d.Dim())
	}
}

func TestReadJSONMalformed(t *testing.T) {
	jsonData := `{"activations": [[1, 2], [3, 4]], "labels": [0]}`
	if _, err := ReadJSON(strings.NewReader(jsonData)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestValidateRagged(t *testing.T) {
	d := Dataset{
		Activations: [][]float64{{1, 2}, {3}},
		Labels:      []float64{0, 1},
	}
	if err := d.Validate(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestLoadDispatch(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(csvPath, []byte("label,f0\n1,5\n0,6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "data.json")
	if err := os.WriteFile(jsonPath, []byte(`{"activations": [[5], [6]], "labels": [1, 0]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		d, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", path, err)
		}
		if d.Len() != 2 || d.Dim() != 1 {
			t.Fatalf("%s: shape %dx%d", path, d.Len(), d.Dim())
		}
		if d.Labels[0] != 1 || d.Labels[1] != 0 {
			t.Fatalf("%s: labels = %v", path, d.Labels)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
