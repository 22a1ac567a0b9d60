package solver

import (
	"fmt"
	"math"
	"math/rand"

	"probekit/internal/floats"
)

const (
	powerMaxIter   = 1000
	powerTolerance = 1e-9
	pcaSeed        = 1
)

// PrincipalComponents returns the top n unit-length principal components
// of x (rows = samples), computed by power iteration with deflation on the
// centered data. Components come out ordered by explained variance.
func PrincipalComponents(x [][]float64, n int) ([][]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: component count %d", ErrBadInput, n)
	}
	if len(x) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, got %d", ErrBadInput, len(x))
	}
	dim := len(x[0])
	if n > dim {
		return nil, fmt.Errorf("%w: %d components for %d features", ErrBadInput, n, dim)
	}

	centered := center(x)
	rng := rand.New(rand.NewSource(pcaSeed))

	components := make([][]float64, 0, n)
	for c := 0; c < n; c++ {
		comp := powerIterate(centered, rng)
		components = append(components, comp)
		deflate(centered, comp)
	}
	return components, nil
}

func center(x [][]float64) [][]float64 {
	mean := floats.ColumnMean(x)
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = floats.Sub(row, mean)
	}
	return out
}

// powerIterate finds the dominant right singular vector of the centered
// data matrix: v <- normalize(X^T X v) until the direction stabilizes.
func powerIterate(x [][]float64, rng *rand.Rand) []float64 {
	dim := len(x[0])
	v := make([]float64, dim)
	for j := range v {
		v[j] = rng.NormFloat64()
	}
	v = floats.Normalize(v)

	for iter := 0; iter < powerMaxIter; iter++ {
		proj := floats.MatVec(x, v)
		next := make([]float64, dim)
		for i, row := range x {
			for j, val := range row {
				next[j] += proj[i] * val
			}
		}
		next = floats.Normalize(next)

		// Convergence up to sign.
		if math.Abs(math.Abs(floats.Dot(v, next))-1) < powerTolerance {
			v = next
			break
		}
		v = next
	}
	return v
}

// deflate removes the component's contribution from every row in place.
func deflate(x [][]float64, comp []float64) {
	for _, row := range x {
		p := floats.Dot(row, comp)
		for j := range row {
			row[j] -= p * comp[j]
		}
	}
}
