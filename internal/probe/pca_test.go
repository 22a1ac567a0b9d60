package probe

import (
	"errors"
	"math"
	"testing"

	"probekit/internal/floats"
)

func TestPCAProbeFit(t *testing.T) {
	// Points spread along the first axis with tiny noise on the second;
	// labels follow the sign of the first coordinate.
	x := [][]float64{
		{-4, 0.1}, {-3, -0.1}, {-2, 0.05}, {-1, -0.05},
		{1, 0.05}, {2, -0.05}, {3, 0.1}, {4, -0.1},
	}
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	p := NewPCAProbe(NewPCAProbeConfig(2))
	if err := p.Fit(x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}

	dir, err := p.Direction()
	if err != nil {
		t.Fatalf("direction: %v", err)
	}
	if math.Abs(floats.Norm(dir)-1) > 1e-4 {
		t.Fatalf("direction not unit length: %f", floats.Norm(dir))
	}
	// Variance is dominated by the first axis, and the sign flip must
	// orient the component toward the positive class.
	if math.Abs(dir[0]) < 0.99 {
		t.Fatalf("direction not aligned with dominant axis: %v", dir)
	}
	if dir[0] <= 0 {
		t.Fatalf("direction not sign-aligned with labels: %v", dir)
	}
}

func TestPCAProbeSignAlignment(t *testing.T) {
	x := [][]float64{
		{-4, 0}, {-2, 0}, {2, 0}, {4, 0},
	}

	// Flip the labels and the direction must flip with them.
	for _, tc := range []struct {
		name string
		y    []float64
		sign float64
	}{
		{"positive_right", []float64{0, 0, 1, 1}, 1},
		{"positive_left", []float64{1, 1, 0, 0}, -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPCAProbe(NewPCAProbeConfig(2))
			if err := p.Fit(x, tc.y); err != nil {
				t.Fatalf("fit: %v", err)
			}
			dir, err := p.Direction()
			if err != nil {
				t.Fatalf("direction: %v", err)
			}
			if dir[0]*tc.sign <= 0 {
				t.Fatalf("expected first component sign %v, got %v", tc.sign, dir)
			}
		})
	}
}

func TestPCAProbeNotFitted(t *testing.T) {
	p := NewPCAProbe(NewPCAProbeConfig(3))
	if _, err := p.Direction(); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}
