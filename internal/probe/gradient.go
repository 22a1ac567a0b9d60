package probe

import (
	"probekit/internal/floats"
)

const (
	stdEpsilon  = 1e-8
	normEpsilon = 1e-8

	// L2Lambda is the weight-regularization coefficient added to every
	// gradient-probe loss.
	L2Lambda = 0.01
)

// LinearParams is the raw trainable state of a gradient probe. The trainer
// mutates it directly between forward passes.
type LinearParams struct {
	Weights [][]float64 // [outputSize][inputSize]
	Bias    []float64   // nil when the config disables bias
}

// GradientProbe is the surface the external trainer drives. Gradient
// probes never return ErrNotFitted: before training they project through
// their initial weights.
type GradientProbe interface {
	Probe
	// Forward standardizes x (capturing mean/std buffers on the first
	// training-mode call) and applies the linear layer.
	Forward(x [][]float64, training bool) ([][]float64, error)
	// LossGrad evaluates the configured loss (including the L2 term) and
	// its gradient with respect to the predictions.
	LossGrad(pred [][]float64, target []float64) (float64, [][]float64, error)
	// Standardize applies the captured buffers to x without mutating them.
	Standardize(x [][]float64) [][]float64
	Params() *LinearParams
	ResetStatistics()
}

// gradientCore holds the state shared by the linear and logistic gradient
// probes: the linear layer plus lazily captured standardization buffers.
type gradientCore struct {
	params      LinearParams
	featureMean []float64
	featureStd  []float64
}

func newGradientCore(inputSize, outputSize int, bias bool) gradientCore {
	weights := make([][]float64, outputSize)
	for k := range weights {
		weights[k] = make([]float64, inputSize)
	}
	core := gradientCore{params: LinearParams{Weights: weights}}
	if bias {
		core.params.Bias = make([]float64, outputSize)
	}
	return core
}

// capture records the standardization buffers. At most once: subsequent
// training-mode calls reuse the frozen statistics.
func (g *gradientCore) capture(x [][]float64) {
	mean := floats.ColumnMean(x)
	std := floats.ColumnStd(x, mean)
	for j := range std {
		std[j] += stdEpsilon
	}
	g.featureMean = mean
	g.featureStd = std
}

func (g *gradientCore) reset() {
	g.featureMean = nil
	g.featureStd = nil
}

func (g *gradientCore) standardize(x [][]float64) [][]float64 {
	if g.featureMean == nil {
		return x
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		sr := make([]float64, len(row))
		for j, v := range row {
			sr[j] = (v - g.featureMean[j]) / g.featureStd[j]
		}
		out[i] = sr
	}
	return out
}

func (g *gradientCore) forward(x [][]float64, training bool) [][]float64 {
	if training && g.featureMean == nil {
		g.capture(x)
	}
	xs := g.standardize(x)
	pred := make([][]float64, len(xs))
	for i, row := range xs {
		pred[i] = make([]float64, len(g.params.Weights))
		for k, w := range g.params.Weights {
			z := floats.Dot(row, w)
			if g.params.Bias != nil {
				z += g.params.Bias[k]
			}
			pred[i][k] = z
		}
	}
	return pred
}

// directions applies the transform discipline to the raw weights: unscale
// by the feature std unless already unscaled, then unit-normalize each
// output row when the config requests it and it has not happened yet. The
// AdditionalInfo flags make both steps idempotent across save/load.
func (g *gradientCore) directions(base *ProbeConfig, normalizeWeights bool) [][]float64 {
	dirs := floats.CloneMatrix(g.params.Weights)

	if g.featureStd != nil && !base.flag(flagUnscaled) {
		for _, row := range dirs {
			for j := range row {
				row[j] /= g.featureStd[j]
			}
		}
	}

	if normalizeWeights && !base.flag(flagNormalized) {
		for k, row := range dirs {
			scale := floats.Norm(row) + normEpsilon
			for j := range row {
				dirs[k][j] = row[j] / scale
			}
		}
	}

	return dirs
}

// normalizeRaw rescales the stored weights themselves to unit norm,
// matching NormalizeVector semantics for gradient probes.
func (g *gradientCore) normalizeRaw() {
	for k, row := range g.params.Weights {
		g.params.Weights[k] = floats.Normalize(row)
	}
}

func (g *gradientCore) restore(st *paramState) {
	if st.Weights != nil {
		g.params.Weights = floats.CloneMatrix(st.Weights)
	}
	if st.Bias != nil {
		g.params.Bias = floats.Clone(st.Bias)
	}
	if st.FeatureMean != nil {
		g.featureMean = floats.Clone(st.FeatureMean)
	}
	if st.FeatureStd != nil {
		g.featureStd = floats.Clone(st.FeatureStd)
	}
}

func (g *gradientCore) state() *paramState {
	st := &paramState{Weights: floats.CloneMatrix(g.params.Weights)}
	if g.params.Bias != nil {
		st.Bias = floats.Clone(g.params.Bias)
	}
	if g.featureMean != nil {
		st.FeatureMean = floats.Clone(g.featureMean)
	}
	if g.featureStd != nil {
		st.FeatureStd = floats.Clone(g.featureStd)
	}
	return st
}

// remapTarget maps {0,1} labels onto {-1,+1} for the regression losses.
func remapTarget(target []float64) []float64 {
	out := make([]float64, len(target))
	for i, t := range target {
		out[i] = 2*t - 1
	}
	return out
}

func (g *gradientCore) l2Term() float64 {
	total := 0.0
	for _, row := range g.params.Weights {
		for _, w := range row {
			total += w * w
		}
	}
	return L2Lambda * total
}
