package probe

import (
	"fmt"
	"math"

	"probekit/internal/floats"
	"probekit/internal/solver"
)

// LogRegProbe is the classical logistic-regression variant: it optionally
// standardizes features, fits via the solver package, and unscales the
// resulting coefficients by the feature scale before optional unit
// normalization.
type LogRegProbe struct {
	cfg *LogRegProbeConfig

	model  *solver.LogRegModel
	mean   []float64
	scale  []float64
	fitted bool
}

func NewLogRegProbe(cfg *LogRegProbeConfig) *LogRegProbe {
	return &LogRegProbe{cfg: cfg}
}

func (p *LogRegProbe) Kind() string { return KindLogReg }

func (p *LogRegProbe) BaseConfig() *ProbeConfig { return &p.cfg.ProbeConfig }

func (p *LogRegProbe) Config() *LogRegProbeConfig { return p.cfg }

func (p *LogRegProbe) Fit(x [][]float64, y []float64) error {
	if err := checkActivations(x, p.cfg.InputSize); err != nil {
		return err
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d rows vs %d labels", ErrDimensionMismatch, len(x), len(y))
	}

	xs := x
	if p.cfg.Standardize {
		p.mean, p.scale = fitScaler(x)
		xs = applyScaler(x, p.mean, p.scale)
	}

	model, err := solver.LogisticRegression(xs, y, solver.LogRegOptions{
		MaxIter:      p.cfg.MaxIter,
		FitIntercept: p.cfg.Bias,
	})
	if err != nil {
		return fmt.Errorf("logistic regression fit: %w", err)
	}
	p.model = &model
	p.fitted = true
	return nil
}

// fitScaler computes per-feature mean and scale, with zero-variance
// features scaled by 1 so they pass through unchanged.
func fitScaler(x [][]float64) (mean, scale []float64) {
	mean = floats.ColumnMean(x)
	scale = make([]float64, len(mean))
	for _, row := range x {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / float64(len(x)))
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	return mean, scale
}

func applyScaler(x [][]float64, mean, scale []float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		sr := make([]float64, len(row))
		for j, v := range row {
			sr[j] = (v - mean[j]) / scale[j]
		}
		out[i] = sr
	}
	return out
}

// DecisionFunction returns the raw pre-sigmoid score for each activation
// row, applying the fitted scaler first.
func (p *LogRegProbe) DecisionFunction(x [][]float64) ([]float64, error) {
	if !p.fitted {
		return nil, fmt.Errorf("logreg probe: %w", ErrNotFitted)
	}
	if err := checkActivations(x, p.cfg.InputSize); err != nil {
		return nil, err
	}
	if p.scale != nil {
		x = applyScaler(x, p.mean, p.scale)
	}
	return p.model.DecisionFunction(x), nil
}

func (p *LogRegProbe) Direction() ([]float64, error) {
	if !p.fitted {
		return nil, fmt.Errorf("logreg probe: %w", ErrNotFitted)
	}
	coef := floats.Clone(p.model.Coef)
	if p.scale != nil && !p.cfg.flag(flagUnscaled) {
		for j := range coef {
			coef[j] /= p.scale[j]
		}
	}
	if p.cfg.NormalizeWeights && !p.cfg.flag(flagNormalized) {
		coef = floats.Normalize(coef)
	}
	return coef, nil
}

func (p *LogRegProbe) Directions() ([][]float64, error) {
	dir, err := p.Direction()
	if err != nil {
		return nil, err
	}
	return [][]float64{dir}, nil
}

func (p *LogRegProbe) Encode(acts [][]float64) ([][]float64, error) {
	dirs, err := p.Directions()
	if err != nil {
		return nil, err
	}
	if err := checkActivations(acts, p.cfg.InputSize); err != nil {
		return nil, err
	}
	return encodeRows(acts, dirs), nil
}

func (p *LogRegProbe) NormalizeVector() {
	if p.fitted {
		p.model.Coef = floats.Normalize(p.model.Coef)
	}
}

func (p *LogRegProbe) setDirection(rows [][]float64) error {
	if len(rows) != 1 {
		return fmt.Errorf("%w: logreg probe stores one direction, got %d", ErrDimensionMismatch, len(rows))
	}
	// A direction loaded from disk is already unscaled and normalized;
	// bypass the scaler entirely.
	p.model = &solver.LogRegModel{Coef: floats.Clone(rows[0])}
	p.mean, p.scale = nil, nil
	p.fitted = true
	p.cfg.setFlag(flagUnscaled)
	p.cfg.setFlag(flagNormalized)
	return nil
}

func (p *LogRegProbe) configValue() any          { return p.cfg }
func (p *LogRegProbe) state() *paramState        { return nil }
func (p *LogRegProbe) Save(path string) error    { return saveBinary(p, path) }
func (p *LogRegProbe) SaveJSON(path string) error { return saveJSON(p, path) }
