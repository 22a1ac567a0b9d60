package probe

import (
	"fmt"

	"probekit/internal/floats"
	"probekit/internal/solver"
)

// PCAProbe takes its direction from the first principal component of the
// activations, sign-aligned to correlate positively with the labels.
type PCAProbe struct {
	cfg        *PCAProbeConfig
	direction  []float64
	components [][]float64
}

func NewPCAProbe(cfg *PCAProbeConfig) *PCAProbe {
	return &PCAProbe{cfg: cfg}
}

func (p *PCAProbe) Kind() string { return KindPCA }

func (p *PCAProbe) BaseConfig() *ProbeConfig { return &p.cfg.ProbeConfig }

func (p *PCAProbe) Config() *PCAProbeConfig { return p.cfg }

func (p *PCAProbe) Fit(x [][]float64, y []float64) error {
	if err := checkActivations(x, p.cfg.InputSize); err != nil {
		return err
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d rows vs %d labels", ErrDimensionMismatch, len(x), len(y))
	}

	components, err := solver.PrincipalComponents(x, p.cfg.NumComponents)
	if err != nil {
		return fmt.Errorf("pca fit: %w", err)
	}

	// Flip each component so its projection correlates positively with
	// the labels.
	for _, comp := range components {
		proj := floats.MatVec(x, comp)
		if floats.Pearson(proj, y) < 0 {
			for j := range comp {
				comp[j] = -comp[j]
			}
		}
	}

	direction := floats.Clone(components[0])
	if p.cfg.NormalizeWeights {
		direction = floats.Normalize(direction)
	}

	p.components = components
	p.direction = direction
	return nil
}

// Components returns the fitted sign-corrected basis, or nil before Fit.
func (p *PCAProbe) Components() [][]float64 { return p.components }

func (p *PCAProbe) Direction() ([]float64, error) {
	if p.direction == nil {
		return nil, fmt.Errorf("pca probe: %w", ErrNotFitted)
	}
	return p.direction, nil
}

func (p *PCAProbe) Directions() ([][]float64, error) {
	dir, err := p.Direction()
	if err != nil {
		return nil, err
	}
	return [][]float64{dir}, nil
}

func (p *PCAProbe) Encode(acts [][]float64) ([][]float64, error) {
	dirs, err := p.Directions()
	if err != nil {
		return nil, err
	}
	if err := checkActivations(acts, p.cfg.InputSize); err != nil {
		return nil, err
	}
	return encodeRows(acts, dirs), nil
}

func (p *PCAProbe) NormalizeVector() {
	if p.direction != nil {
		p.direction = floats.Normalize(p.direction)
	}
}

func (p *PCAProbe) setDirection(rows [][]float64) error {
	if len(rows) != 1 {
		return fmt.Errorf("%w: pca probe stores one direction, got %d", ErrDimensionMismatch, len(rows))
	}
	p.direction = floats.Clone(rows[0])
	return nil
}

func (p *PCAProbe) configValue() any          { return p.cfg }
func (p *PCAProbe) state() *paramState        { return nil }
func (p *PCAProbe) Save(path string) error    { return saveBinary(p, path) }
func (p *PCAProbe) SaveJSON(path string) error { return saveJSON(p, path) }
