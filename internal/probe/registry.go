package probe

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// variantSpec ties a persisted type tag to the constructors needed to
// rebuild that variant: one from a serialized config blob, one from just a
// vector dimensionality (legacy payloads with no config).
type variantSpec struct {
	fromConfigJSON func(data []byte) (Probe, error)
	defaultProbe   func(dim int) Probe
}

var variantRegistry = struct {
	mu sync.RWMutex
	m  map[string]variantSpec
}{
	m: make(map[string]variantSpec),
}

func init() {
	registerBuiltinVariants()
}

func registerBuiltinVariants() {
	registerVariant(KindLinear, variantSpec{
		fromConfigJSON: func(data []byte) (Probe, error) {
			cfg := NewLinearProbeConfig(0)
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
			ensureInfo(&cfg.ProbeConfig)
			return NewLinearProbe(cfg), nil
		},
		defaultProbe: func(dim int) Probe { return NewLinearProbe(NewLinearProbeConfig(dim)) },
	})
	registerVariant(KindLogistic, variantSpec{
		fromConfigJSON: func(data []byte) (Probe, error) {
			cfg := NewLogisticProbeConfig(0)
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
			ensureInfo(&cfg.ProbeConfig)
			return NewLogisticProbe(cfg), nil
		},
		defaultProbe: func(dim int) Probe { return NewLogisticProbe(NewLogisticProbeConfig(dim)) },
	})
	registerVariant(KindKMeans, variantSpec{
		fromConfigJSON: func(data []byte) (Probe, error) {
			cfg := NewKMeansProbeConfig(0)
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
			ensureInfo(&cfg.ProbeConfig)
			return NewKMeansProbe(cfg), nil
		},
		defaultProbe: func(dim int) Probe { return NewKMeansProbe(NewKMeansProbeConfig(dim)) },
	})
	registerVariant(KindPCA, variantSpec{
		fromConfigJSON: func(data []byte) (Probe, error) {
			cfg := NewPCAProbeConfig(0)
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
			ensureInfo(&cfg.ProbeConfig)
			return NewPCAProbe(cfg), nil
		},
		defaultProbe: func(dim int) Probe { return NewPCAProbe(NewPCAProbeConfig(dim)) },
	})
	registerVariant(KindMeanDiff, variantSpec{
		fromConfigJSON: func(data []byte) (Probe, error) {
			cfg := NewMeanDiffProbeConfig(0)
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
			ensureInfo(&cfg.ProbeConfig)
			return NewMeanDiffProbe(cfg), nil
		},
		defaultProbe: func(dim int) Probe { return NewMeanDiffProbe(NewMeanDiffProbeConfig(dim)) },
	})
	registerVariant(KindLogReg, variantSpec{
		fromConfigJSON: func(data []byte) (Probe, error) {
			cfg := NewLogRegProbeConfig(0)
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
			ensureInfo(&cfg.ProbeConfig)
			return NewLogRegProbe(cfg), nil
		},
		defaultProbe: func(dim int) Probe { return NewLogRegProbe(NewLogRegProbeConfig(dim)) },
	})
}

// ensureInfo repairs a nil AdditionalInfo after JSON decoding so every
// config instance owns a fresh map.
func ensureInfo(c *ProbeConfig) {
	if c.AdditionalInfo == nil {
		c.AdditionalInfo = make(map[string]any)
	}
}

func registerVariant(kind string, spec variantSpec) {
	variantRegistry.mu.Lock()
	defer variantRegistry.mu.Unlock()
	variantRegistry.m[kind] = spec
}

func lookupVariant(kind string) (variantSpec, error) {
	variantRegistry.mu.RLock()
	defer variantRegistry.mu.RUnlock()
	spec, ok := variantRegistry.m[kind]
	if !ok {
		return variantSpec{}, fmt.Errorf("%w: %q", ErrUnknownVariant, kind)
	}
	return spec, nil
}

// Kinds returns the registered variant tags, sorted.
func Kinds() []string {
	variantRegistry.mu.RLock()
	defer variantRegistry.mu.RUnlock()
	kinds := make([]string, 0, len(variantRegistry.m))
	for k := range variantRegistry.m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewDefault constructs an unfitted probe of the given kind with a default
// config sized to dim.
func NewDefault(kind string, dim int) (Probe, error) {
	spec, err := lookupVariant(kind)
	if err != nil {
		return nil, err
	}
	return spec.defaultProbe(dim), nil
}
