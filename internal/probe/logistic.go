package probe

import (
	"fmt"
	"math"

	"probekit/internal/floats"
)

// LogisticProbe is the gradient-trained logistic variant: the same linear
// layer as LinearProbe with binary cross-entropy loss and zero-initialized
// weights.
type LogisticProbe struct {
	cfg *LogisticProbeConfig
	gradientCore
}

func NewLogisticProbe(cfg *LogisticProbeConfig) *LogisticProbe {
	out := cfg.OutputSize
	if out <= 0 {
		out = 1
	}
	return &LogisticProbe{cfg: cfg, gradientCore: newGradientCore(cfg.InputSize, out, cfg.Bias)}
}

func (p *LogisticProbe) Kind() string { return KindLogistic }

func (p *LogisticProbe) BaseConfig() *ProbeConfig { return &p.cfg.ProbeConfig }

func (p *LogisticProbe) Config() *LogisticProbeConfig { return p.cfg }

func (p *LogisticProbe) Forward(x [][]float64, training bool) ([][]float64, error) {
	if err := checkActivations(x, p.cfg.InputSize); err != nil {
		return nil, err
	}
	return p.forward(x, training), nil
}

func (p *LogisticProbe) Standardize(x [][]float64) [][]float64 { return p.standardize(x) }

func (p *LogisticProbe) Params() *LinearParams { return &p.params }

func (p *LogisticProbe) ResetStatistics() { p.reset() }

func (p *LogisticProbe) Directions() ([][]float64, error) {
	return p.directions(&p.cfg.ProbeConfig, p.cfg.NormalizeWeights), nil
}

func (p *LogisticProbe) Direction() ([]float64, error) {
	dirs, _ := p.Directions()
	return dirs[0], nil
}

func (p *LogisticProbe) Encode(acts [][]float64) ([][]float64, error) {
	if err := checkActivations(acts, p.cfg.InputSize); err != nil {
		return nil, err
	}
	dirs, _ := p.Directions()
	return encodeRows(acts, dirs), nil
}

func (p *LogisticProbe) NormalizeVector() { p.normalizeRaw() }

// LossGrad computes binary cross-entropy with logits plus the L2 term.
// The log1p form keeps large |z| numerically stable.
func (p *LogisticProbe) LossGrad(pred [][]float64, target []float64) (float64, [][]float64, error) {
	if len(pred) != len(target) {
		return 0, nil, fmt.Errorf("%w: %d predictions vs %d targets",
			ErrDimensionMismatch, len(pred), len(target))
	}
	n := float64(len(pred) * len(p.params.Weights))
	loss := 0.0
	grad := make([][]float64, len(pred))
	for i, row := range pred {
		grad[i] = make([]float64, len(row))
		for k, z := range row {
			t := target[i]
			loss += math.Max(z, 0) - z*t + math.Log1p(math.Exp(-math.Abs(z)))
			grad[i][k] = (sigmoid(z) - t) / n
		}
	}
	return loss/n + p.l2Term(), grad, nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func (p *LogisticProbe) setDirection(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: empty direction", ErrDimensionMismatch)
	}
	p.params.Weights = floats.CloneMatrix(rows)
	if p.params.Bias != nil && len(p.params.Bias) != len(rows) {
		p.params.Bias = make([]float64, len(rows))
	}
	p.cfg.setFlag(flagUnscaled)
	p.cfg.setFlag(flagNormalized)
	return nil
}

func (p *LogisticProbe) restoreState(st *paramState) error {
	p.restore(st)
	return nil
}

func (p *LogisticProbe) configValue() any { return p.cfg }

func (p *LogisticProbe) Save(path string) error     { return saveBinary(p, path) }
func (p *LogisticProbe) SaveJSON(path string) error { return saveJSON(p, path) }
