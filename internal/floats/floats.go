// Package floats holds the dense-vector primitives shared by the probe
// variants and solvers. Everything operates on []float64 rows.
package floats

import "math"

const normEpsilon = 1e-8

func Dot(a, b []float64) float64 {
	total := 0.0
	for i := range a {
		total += a[i] * b[i]
	}
	return total
}

func Norm(v []float64) float64 {
	total := 0.0
	for _, x := range v {
		total += x * x
	}
	return math.Sqrt(total)
}

// Normalize returns v scaled to unit L2 norm. The epsilon keeps near-zero
// vectors finite instead of dividing by zero.
func Normalize(v []float64) []float64 {
	scale := Norm(v) + normEpsilon
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / scale
	}
	return out
}

func Scale(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * s
	}
	return out
}

func Sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func Clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func CloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = Clone(row)
	}
	return out
}

// MatVec projects every row of x onto v.
func MatVec(x [][]float64, v []float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = Dot(row, v)
	}
	return out
}

// ColumnMean returns the per-column mean of x. Rows must share a width.
func ColumnMean(x [][]float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	mean := make([]float64, len(x[0]))
	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(x))
	}
	return mean
}

// ColumnStd returns the per-column sample standard deviation of x around
// mean. Columns with fewer than two rows get zero.
func ColumnStd(x [][]float64, mean []float64) []float64 {
	std := make([]float64, len(mean))
	if len(x) < 2 {
		return std
	}
	for _, row := range x {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / float64(len(x)-1))
	}
	return std
}

// Pearson computes the correlation coefficient between a and b. Returns 0
// when either side has zero variance.
func Pearson(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	n := float64(len(a))
	meanA, meanB := 0.0, 0.0
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	cov, varA, varB := 0.0, 0.0, 0.0
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// EqualWithin reports whether a and b match elementwise within delta.
func EqualWithin(a, b []float64, delta float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > delta {
			return false
		}
	}
	return true
}
