package probe

import (
	"fmt"

	"probekit/internal/floats"
	"probekit/internal/solver"
)

// KMeansProbe clusters raw activations and takes the direction from the
// negative-mean-label centroid to the positive one.
type KMeansProbe struct {
	cfg       *KMeansProbeConfig
	direction []float64
	centroids [][]float64
	labels    []int
}

func NewKMeansProbe(cfg *KMeansProbeConfig) *KMeansProbe {
	return &KMeansProbe{cfg: cfg}
}

func (p *KMeansProbe) Kind() string { return KindKMeans }

func (p *KMeansProbe) BaseConfig() *ProbeConfig { return &p.cfg.ProbeConfig }

func (p *KMeansProbe) Config() *KMeansProbeConfig { return p.cfg }

// Fit runs k-means and derives the direction from the two centroids whose
// members have the highest and lowest mean label. Ties resolve to the
// first index, matching argmax/argmin semantics.
func (p *KMeansProbe) Fit(x [][]float64, y []float64) error {
	if err := checkActivations(x, p.cfg.InputSize); err != nil {
		return err
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d rows vs %d labels", ErrDimensionMismatch, len(x), len(y))
	}

	res, err := solver.KMeans(x, p.cfg.NumClusters, p.cfg.NumInit, p.cfg.Seed)
	if err != nil {
		return fmt.Errorf("kmeans fit: %w", err)
	}

	clusterMeans := make([]float64, p.cfg.NumClusters)
	counts := make([]int, p.cfg.NumClusters)
	for i, c := range res.Labels {
		clusterMeans[c] += y[i]
		counts[c]++
	}
	for c := range clusterMeans {
		if counts[c] > 0 {
			clusterMeans[c] /= float64(counts[c])
		}
	}

	pos, neg := 0, 0
	for c, m := range clusterMeans {
		if m > clusterMeans[pos] {
			pos = c
		}
		if m < clusterMeans[neg] {
			neg = c
		}
	}

	direction := floats.Sub(res.Centroids[pos], res.Centroids[neg])
	if p.cfg.NormalizeWeights {
		direction = floats.Normalize(direction)
	}

	p.centroids = res.Centroids
	p.labels = res.Labels
	p.direction = direction
	return nil
}

// Centroids returns the fitted cluster centers, or nil before Fit.
func (p *KMeansProbe) Centroids() [][]float64 { return p.centroids }

func (p *KMeansProbe) Direction() ([]float64, error) {
	if p.direction == nil {
		return nil, fmt.Errorf("kmeans probe: %w", ErrNotFitted)
	}
	return p.direction, nil
}

func (p *KMeansProbe) Directions() ([][]float64, error) {
	dir, err := p.Direction()
	if err != nil {
		return nil, err
	}
	return [][]float64{dir}, nil
}

func (p *KMeansProbe) Encode(acts [][]float64) ([][]float64, error) {
	dirs, err := p.Directions()
	if err != nil {
		return nil, err
	}
	if err := checkActivations(acts, p.cfg.InputSize); err != nil {
		return nil, err
	}
	return encodeRows(acts, dirs), nil
}

func (p *KMeansProbe) NormalizeVector() {
	if p.direction != nil {
		p.direction = floats.Normalize(p.direction)
	}
}

func (p *KMeansProbe) setDirection(rows [][]float64) error {
	if len(rows) != 1 {
		return fmt.Errorf("%w: kmeans probe stores one direction, got %d", ErrDimensionMismatch, len(rows))
	}
	p.direction = floats.Clone(rows[0])
	return nil
}

func (p *KMeansProbe) configValue() any      { return p.cfg }
func (p *KMeansProbe) state() *paramState    { return nil }
func (p *KMeansProbe) Save(path string) error { return saveBinary(p, path) }
func (p *KMeansProbe) SaveJSON(path string) error { return saveJSON(p, path) }
