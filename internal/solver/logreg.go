package solver

import (
	"fmt"
	"math"

	"probekit/internal/floats"
)

const (
	logRegLambda       = 0.01
	logRegLearningRate = 0.5
	logRegTolerance    = 1e-6
)

// LogRegOptions configures the logistic-regression solver.
type LogRegOptions struct {
	MaxIter      int
	FitIntercept bool
}

// LogRegModel is a fitted binary logistic regression.
type LogRegModel struct {
	Coef      []float64
	Intercept float64
}

// LogisticRegression fits a binary logistic regression on x against {0,1}
// labels by full-batch gradient descent with L2 regularization, stopping
// at MaxIter iterations or when the coefficient update stalls.
func LogisticRegression(x [][]float64, y []float64, opts LogRegOptions) (LogRegModel, error) {
	if len(x) == 0 {
		return LogRegModel{}, fmt.Errorf("%w: empty design matrix", ErrBadInput)
	}
	if len(x) != len(y) {
		return LogRegModel{}, fmt.Errorf("%w: %d rows vs %d labels", ErrBadInput, len(x), len(y))
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}

	dim := len(x[0])
	coef := make([]float64, dim)
	intercept := 0.0
	n := float64(len(x))

	for iter := 0; iter < maxIter; iter++ {
		gradW := make([]float64, dim)
		gradB := 0.0
		for i, row := range x {
			z := floats.Dot(row, coef) + intercept
			err := 1.0/(1.0+math.Exp(-z)) - y[i]
			for j, v := range row {
				gradW[j] += err * v
			}
			gradB += err
		}
		maxStep := 0.0
		for j := range gradW {
			step := logRegLearningRate * (gradW[j]/n + 2*logRegLambda*coef[j])
			coef[j] -= step
			if s := math.Abs(step); s > maxStep {
				maxStep = s
			}
		}
		if opts.FitIntercept {
			intercept -= logRegLearningRate * gradB / n
		}
		if maxStep < logRegTolerance {
			break
		}
	}

	return LogRegModel{Coef: coef, Intercept: intercept}, nil
}

// DecisionFunction returns the pre-sigmoid score for each row.
func (m LogRegModel) DecisionFunction(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = floats.Dot(row, m.Coef) + m.Intercept
	}
	return out
}
