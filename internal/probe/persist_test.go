package probe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"probekit/internal/floats"
)

func TestBinaryRoundTripLinear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linear.bin")

	x, _ := trainingBatch()
	cfg := NewLinearProbeConfig(3)
	p := NewLinearProbe(cfg)
	if _, err := p.Forward(x, true); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := p.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadProbe(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Kind() != KindLinear {
		t.Fatalf("kind = %s", loaded.Kind())
	}

	wantDirs, err := p.Directions()
	if err != nil {
		t.Fatalf("directions: %v", err)
	}
	gotDirs, err := loaded.Directions()
	if err != nil {
		t.Fatalf("loaded directions: %v", err)
	}
	if len(gotDirs) != len(wantDirs) {
		t.Fatalf("direction count %d, want %d", len(gotDirs), len(wantDirs))
	}
	for i := range wantDirs {
		if !floats.EqualWithin(gotDirs[i], wantDirs[i], 1e-10) {
			t.Fatalf("direction %d = %v, want %v", i, gotDirs[i], wantDirs[i])
		}
	}

	// Raw parameter state restores too, so encodes match exactly.
	wantEnc, err := p.Encode(x)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	gotEnc, err := loaded.Encode(x)
	if err != nil {
		t.Fatalf("loaded encode: %v", err)
	}
	for i := range wantEnc {
		if !floats.EqualWithin(gotEnc[i], wantEnc[i], 1e-10) {
			t.Fatalf("encode row %d = %v, want %v", i, gotEnc[i], wantEnc[i])
		}
	}
}

func TestBinaryRoundTripClosedForm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meandiff.bin")

	p := NewMeanDiffProbe(NewMeanDiffProbeConfig(3))
	x := [][]float64{{1, 2, 3}, {3, 4, 5}, {11, 12, 13}, {13, 14, 15}}
	y := []float64{0, 0, 1, 1}
	if err := p.Fit(x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if err := p.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadProbe(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Kind() != KindMeanDiff {
		t.Fatalf("kind = %s", loaded.Kind())
	}

	want, _ := p.Direction()
	got, err := loaded.Direction()
	if err != nil {
		t.Fatalf("loaded direction: %v", err)
	}
	if !floats.EqualWithin(got, want, 1e-12) {
		t.Fatalf("direction = %v, want %v", got, want)
	}
}

func TestBinaryRoundTripKMeans(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kmeans.bin")

	p := NewKMeansProbe(NewKMeansProbeConfig(2))
	x, y := blobBatch()
	if err := p.Fit(x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if err := p.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadProbe(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want, _ := p.Direction()
	got, err := loaded.Direction()
	if err != nil {
		t.Fatalf("loaded direction: %v", err)
	}
	if !floats.EqualWithin(got, want, 1e-12) {
		t.Fatalf("direction = %v, want %v", got, want)
	}
	// Cluster config survives the trip.
	lp, ok := loaded.(*KMeansProbe)
	if !ok {
		t.Fatalf("loaded probe has type %T", loaded)
	}
	if lp.Config().NumClusters != 2 || lp.Config().Seed != 42 {
		t.Fatalf("config not restored: %+v", lp.Config())
	}
}

func TestLoadProbeBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.bin")
	if err := os.WriteFile(path, []byte("NOPE, not a probe container"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProbe(path); !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("expected ErrUnrecognizedFormat, got %v", err)
	}
}

func TestLoadProbeMissingFile(t *testing.T) {
	if _, err := LoadProbe(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
