package probe

import (
	"fmt"

	"probekit/internal/floats"
)

// MeanDiffProbe computes its direction as the mean activation of label-1
// rows minus the mean of label-0 rows. No iterative optimization.
type MeanDiffProbe struct {
	cfg       *MeanDiffProbeConfig
	direction []float64
}

func NewMeanDiffProbe(cfg *MeanDiffProbeConfig) *MeanDiffProbe {
	return &MeanDiffProbe{cfg: cfg}
}

func (p *MeanDiffProbe) Kind() string { return KindMeanDiff }

func (p *MeanDiffProbe) BaseConfig() *ProbeConfig { return &p.cfg.ProbeConfig }

func (p *MeanDiffProbe) Config() *MeanDiffProbeConfig { return p.cfg }

func (p *MeanDiffProbe) Fit(x [][]float64, y []float64) error {
	if err := checkActivations(x, p.cfg.InputSize); err != nil {
		return err
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d rows vs %d labels", ErrDimensionMismatch, len(x), len(y))
	}

	var pos, neg [][]float64
	for i, row := range x {
		if y[i] == 1 {
			pos = append(pos, row)
		} else if y[i] == 0 {
			neg = append(neg, row)
		}
	}
	if len(pos) == 0 || len(neg) == 0 {
		return fmt.Errorf("mean-diff fit: need both classes, got %d positive and %d negative rows",
			len(pos), len(neg))
	}

	direction := floats.Sub(floats.ColumnMean(pos), floats.ColumnMean(neg))
	if p.cfg.NormalizeWeights {
		direction = floats.Normalize(direction)
	}
	p.direction = direction
	return nil
}

func (p *MeanDiffProbe) Direction() ([]float64, error) {
	if p.direction == nil {
		return nil, fmt.Errorf("mean-diff probe: %w", ErrNotFitted)
	}
	return p.direction, nil
}

func (p *MeanDiffProbe) Directions() ([][]float64, error) {
	dir, err := p.Direction()
	if err != nil {
		return nil, err
	}
	return [][]float64{dir}, nil
}

func (p *MeanDiffProbe) Encode(acts [][]float64) ([][]float64, error) {
	dirs, err := p.Directions()
	if err != nil {
		return nil, err
	}
	if err := checkActivations(acts, p.cfg.InputSize); err != nil {
		return nil, err
	}
	return encodeRows(acts, dirs), nil
}

func (p *MeanDiffProbe) NormalizeVector() {
	if p.direction != nil {
		p.direction = floats.Normalize(p.direction)
	}
}

func (p *MeanDiffProbe) setDirection(rows [][]float64) error {
	if len(rows) != 1 {
		return fmt.Errorf("%w: mean-diff probe stores one direction, got %d", ErrDimensionMismatch, len(rows))
	}
	p.direction = floats.Clone(rows[0])
	return nil
}

func (p *MeanDiffProbe) configValue() any          { return p.cfg }
func (p *MeanDiffProbe) state() *paramState        { return nil }
func (p *MeanDiffProbe) Save(path string) error    { return saveBinary(p, path) }
func (p *MeanDiffProbe) SaveJSON(path string) error { return saveJSON(p, path) }
