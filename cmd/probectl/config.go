package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"probekit/internal/probe"
)

// fitConfig is the YAML shape accepted by `probectl fit -config`.
// Variant-specific fields are ignored by variants that do not use them.
type fitConfig struct {
	Kind string `yaml:"kind"`

	Name        string `yaml:"name"`
	ModelName   string `yaml:"model_name"`
	HookPoint   string `yaml:"hook_point"`
	HookLayer   int    `yaml:"hook_layer"`
	DatasetPath string `yaml:"dataset_path"`

	NormalizeWeights *bool `yaml:"normalize_weights"`
	Bias             *bool `yaml:"bias"`

	// Gradient variants.
	LossType     string  `yaml:"loss_type"`
	OutputSize   int     `yaml:"output_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Epochs       int     `yaml:"epochs"`
	MinDelta     float64 `yaml:"min_delta"`

	// Clustering / decomposition / classical regression.
	NumClusters   int   `yaml:"n_clusters"`
	NumInit       int   `yaml:"n_init"`
	NumComponents int   `yaml:"n_components"`
	Standardize   *bool `yaml:"standardize"`
	MaxIter       int   `yaml:"max_iter"`
	Seed          int64 `yaml:"seed"`
}

func loadFitConfig(path string) (fitConfig, error) {
	cfg := fitConfig{Kind: probe.KindLinear}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fitConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fitConfig{}, fmt.Errorf("parse fit config %s: %w", path, err)
	}
	if cfg.Kind == "" {
		cfg.Kind = probe.KindLinear
	}
	return cfg, nil
}

func (c fitConfig) buildProbe(dim int) (probe.Probe, error) {
	switch c.Kind {
	case probe.KindLinear:
		cfg := probe.NewLinearProbeConfig(dim)
		c.applyBase(&cfg.ProbeConfig)
		if c.LossType != "" {
			cfg.LossType = c.LossType
		}
		if c.OutputSize > 0 {
			cfg.OutputSize = c.OutputSize
		}
		if c.NormalizeWeights != nil {
			cfg.NormalizeWeights = *c.NormalizeWeights
		}
		if c.Bias != nil {
			cfg.Bias = *c.Bias
		}
		return probe.NewLinearProbe(cfg), nil
	case probe.KindLogistic:
		cfg := probe.NewLogisticProbeConfig(dim)
		c.applyBase(&cfg.ProbeConfig)
		if c.OutputSize > 0 {
			cfg.OutputSize = c.OutputSize
		}
		if c.NormalizeWeights != nil {
			cfg.NormalizeWeights = *c.NormalizeWeights
		}
		if c.Bias != nil {
			cfg.Bias = *c.Bias
		}
		return probe.NewLogisticProbe(cfg), nil
	case probe.KindKMeans:
		cfg := probe.NewKMeansProbeConfig(dim)
		c.applyBase(&cfg.ProbeConfig)
		if c.NumClusters > 0 {
			cfg.NumClusters = c.NumClusters
		}
		if c.NumInit > 0 {
			cfg.NumInit = c.NumInit
		}
		if c.Seed != 0 {
			cfg.Seed = c.Seed
		}
		if c.NormalizeWeights != nil {
			cfg.NormalizeWeights = *c.NormalizeWeights
		}
		return probe.NewKMeansProbe(cfg), nil
	case probe.KindPCA:
		cfg := probe.NewPCAProbeConfig(dim)
		c.applyBase(&cfg.ProbeConfig)
		if c.NumComponents > 0 {
			cfg.NumComponents = c.NumComponents
		}
		if c.NormalizeWeights != nil {
			cfg.NormalizeWeights = *c.NormalizeWeights
		}
		return probe.NewPCAProbe(cfg), nil
	case probe.KindMeanDiff:
		cfg := probe.NewMeanDiffProbeConfig(dim)
		c.applyBase(&cfg.ProbeConfig)
		if c.NormalizeWeights != nil {
			cfg.NormalizeWeights = *c.NormalizeWeights
		}
		return probe.NewMeanDiffProbe(cfg), nil
	case probe.KindLogReg:
		cfg := probe.NewLogRegProbeConfig(dim)
		c.applyBase(&cfg.ProbeConfig)
		if c.MaxIter > 0 {
			cfg.MaxIter = c.MaxIter
		}
		if c.Seed != 0 {
			cfg.Seed = c.Seed
		}
		if c.Standardize != nil {
			cfg.Standardize = *c.Standardize
		}
		if c.NormalizeWeights != nil {
			cfg.NormalizeWeights = *c.NormalizeWeights
		}
		if c.Bias != nil {
			cfg.Bias = *c.Bias
		}
		return probe.NewLogRegProbe(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", probe.ErrUnknownVariant, c.Kind)
	}
}

func (c fitConfig) applyBase(base *probe.ProbeConfig) {
	if c.Name != "" {
		base.Name = c.Name
	}
	if c.ModelName != "" {
		base.ModelName = c.ModelName
	}
	if c.HookPoint != "" {
		base.HookPoint = c.HookPoint
	}
	base.HookLayer = c.HookLayer
	if c.DatasetPath != "" {
		base.DatasetPath = c.DatasetPath
	}
}
