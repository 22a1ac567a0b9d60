package probe

import (
	"fmt"
	"math"
	"math/rand"

	"probekit/internal/floats"
)

// LinearProbe learns one or more directions by minimizing a configurable
// regression loss over a linear projection of standardized activations.
// Training is driven externally (see internal/trainer).
type LinearProbe struct {
	cfg *LinearProbeConfig
	gradientCore
}

func NewLinearProbe(cfg *LinearProbeConfig) *LinearProbe {
	out := cfg.OutputSize
	if out <= 0 {
		out = 1
	}
	core := newGradientCore(cfg.InputSize, out, cfg.Bias)
	kaimingUniform(core.params.Weights)
	return &LinearProbe{cfg: cfg, gradientCore: core}
}

// kaimingUniform fills weights from U(-sqrt(3/fanIn), sqrt(3/fanIn)).
func kaimingUniform(weights [][]float64) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return
	}
	bound := math.Sqrt(3.0 / float64(len(weights[0])))
	for _, row := range weights {
		for j := range row {
			row[j] = (2*rand.Float64() - 1) * bound
		}
	}
}

func (p *LinearProbe) Kind() string { return KindLinear }

func (p *LinearProbe) BaseConfig() *ProbeConfig { return &p.cfg.ProbeConfig }

func (p *LinearProbe) Config() *LinearProbeConfig { return p.cfg }

func (p *LinearProbe) Forward(x [][]float64, training bool) ([][]float64, error) {
	if err := checkActivations(x, p.cfg.InputSize); err != nil {
		return nil, err
	}
	return p.forward(x, training), nil
}

func (p *LinearProbe) Standardize(x [][]float64) [][]float64 { return p.standardize(x) }

func (p *LinearProbe) Params() *LinearParams { return &p.params }

func (p *LinearProbe) ResetStatistics() { p.reset() }

func (p *LinearProbe) Directions() ([][]float64, error) {
	return p.directions(&p.cfg.ProbeConfig, p.cfg.NormalizeWeights), nil
}

func (p *LinearProbe) Direction() ([]float64, error) {
	dirs, _ := p.Directions()
	return dirs[0], nil
}

func (p *LinearProbe) Encode(acts [][]float64) ([][]float64, error) {
	if err := checkActivations(acts, p.cfg.InputSize); err != nil {
		return nil, err
	}
	dirs, _ := p.Directions()
	return encodeRows(acts, dirs), nil
}

func (p *LinearProbe) NormalizeVector() { p.normalizeRaw() }

// LossGrad evaluates the configured loss over {-1,+1}-remapped targets,
// with the L2 weight term folded into the reported loss. The returned
// gradient is with respect to the predictions only.
func (p *LinearProbe) LossGrad(pred [][]float64, target []float64) (float64, [][]float64, error) {
	switch p.cfg.LossType {
	case LossMSE:
		loss, grad := p.mseLossGrad(pred, target)
		return loss, grad, nil
	case LossHinge:
		loss, grad := p.hingeLossGrad(pred, target)
		return loss, grad, nil
	case LossCosine:
		loss, grad := p.cosineLossGrad(pred, target)
		return loss, grad, nil
	default:
		return 0, nil, fmt.Errorf("%w: %q", ErrUnknownLoss, p.cfg.LossType)
	}
}

func (p *LinearProbe) mseLossGrad(pred [][]float64, target []float64) (float64, [][]float64) {
	t := remapTarget(target)
	n := float64(len(pred) * len(p.params.Weights))
	loss := 0.0
	grad := make([][]float64, len(pred))
	for i, row := range pred {
		grad[i] = make([]float64, len(row))
		for k, z := range row {
			d := z - t[i]
			loss += d * d
			grad[i][k] = 2 * d / n
		}
	}
	return loss/n + p.l2Term(), grad
}

func (p *LinearProbe) hingeLossGrad(pred [][]float64, target []float64) (float64, [][]float64) {
	t := remapTarget(target)
	n := float64(len(pred) * len(p.params.Weights))
	loss := 0.0
	grad := make([][]float64, len(pred))
	for i, row := range pred {
		grad[i] = make([]float64, len(row))
		for k, z := range row {
			margin := 1 - z*t[i]
			if margin > 0 {
				loss += margin
				grad[i][k] = -t[i] / n
			}
		}
	}
	return loss/n + p.l2Term(), grad
}

// cosineLossGrad treats each prediction column as a vector and penalizes
// 1 - cos(pred, target) against the remapped target vector.
func (p *LinearProbe) cosineLossGrad(pred [][]float64, target []float64) (float64, [][]float64) {
	t := remapTarget(target)
	k := len(p.params.Weights)
	normT := floats.Norm(t) + normEpsilon

	grad := make([][]float64, len(pred))
	for i := range pred {
		grad[i] = make([]float64, k)
	}

	loss := 0.0
	for col := 0; col < k; col++ {
		pv := make([]float64, len(pred))
		for i, row := range pred {
			pv[i] = row[col]
		}
		normP := floats.Norm(pv) + normEpsilon
		cos := floats.Dot(pv, t) / (normP * normT)
		loss += 1 - cos

		for i := range pv {
			g := -(t[i]/(normP*normT) - cos*pv[i]/(normP*normP))
			grad[i][col] = g / float64(k)
		}
	}
	return loss/float64(k) + p.l2Term(), grad
}

func (p *LinearProbe) setDirection(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: empty direction", ErrDimensionMismatch)
	}
	p.params.Weights = floats.CloneMatrix(rows)
	if p.params.Bias != nil && len(p.params.Bias) != len(rows) {
		p.params.Bias = make([]float64, len(rows))
	}
	// The stored direction is already transformed; re-applying either
	// transform would corrupt it.
	p.cfg.setFlag(flagUnscaled)
	p.cfg.setFlag(flagNormalized)
	return nil
}

func (p *LinearProbe) restoreState(st *paramState) error {
	p.restore(st)
	return nil
}

func (p *LinearProbe) configValue() any { return p.cfg }

func (p *LinearProbe) Save(path string) error     { return saveBinary(p, path) }
func (p *LinearProbe) SaveJSON(path string) error { return saveJSON(p, path) }
