package probe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProbeSet is an ordered collection of probes sharing an input dimension,
// supporting one batched projection across all members.
type ProbeSet struct {
	ModelName string
	HookPoint string
	HookLayer int

	probes []Probe
}

type manifestEntry struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	ProbeType string `json:"probe_type"`
}

type manifest struct {
	ModelName string          `json:"model_name"`
	HookPoint string          `json:"hook_point"`
	HookLayer int             `json:"hook_layer"`
	Probes    []manifestEntry `json:"probes"`
}

const manifestFile = "index.json"

// NewProbeSet validates that every member reports the same direction
// length. Members must already be fitted enough to expose a direction.
func NewProbeSet(probes []Probe) (*ProbeSet, error) {
	dims := make([]int, len(probes))
	for i, p := range probes {
		dir, err := p.Direction()
		if err != nil {
			return nil, fmt.Errorf("probe %d (%s): %w", i, p.Kind(), err)
		}
		dims[i] = len(dir)
	}
	for i := 1; i < len(dims); i++ {
		if dims[i] != dims[0] {
			return nil, fmt.Errorf("%w: probe directions have lengths %v", ErrDimensionMismatch, dims)
		}
	}

	set := &ProbeSet{probes: probes}
	if len(probes) > 0 {
		base := probes[0].BaseConfig()
		set.ModelName = base.ModelName
		set.HookPoint = base.HookPoint
		set.HookLayer = base.HookLayer
	}
	return set, nil
}

func (s *ProbeSet) Len() int { return len(s.probes) }

func (s *ProbeSet) At(i int) Probe { return s.probes[i] }

// Encode stacks every member's direction into one matrix and projects the
// batch once, so output column k always corresponds to probe k.
func (s *ProbeSet) Encode(acts [][]float64) ([][]float64, error) {
	directions := make([][]float64, len(s.probes))
	for i, p := range s.probes {
		dir, err := p.Direction()
		if err != nil {
			return nil, fmt.Errorf("probe %d (%s): %w", i, p.Kind(), err)
		}
		directions[i] = dir
	}
	if len(directions) > 0 {
		if err := checkActivations(acts, len(directions[0])); err != nil {
			return nil, err
		}
	}
	return encodeRows(acts, directions), nil
}

// Save writes one binary container per probe plus an index.json manifest
// into directory.
func (s *ProbeSet) Save(directory string) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}

	m := manifest{
		ModelName: s.ModelName,
		HookPoint: s.HookPoint,
		HookLayer: s.HookLayer,
		Probes:    make([]manifestEntry, 0, len(s.probes)),
	}
	for i, p := range s.probes {
		filename := fmt.Sprintf("probe_%d_%s.bin", i, sanitizeName(p.BaseConfig().Name))
		if err := p.Save(filepath.Join(directory, filename)); err != nil {
			return fmt.Errorf("save probe %d: %w", i, err)
		}
		m.Probes = append(m.Probes, manifestEntry{
			Name:      p.BaseConfig().Name,
			File:      filename,
			ProbeType: p.Kind(),
		})
	}

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(directory, manifestFile), data, 0o644)
}

// LoadProbeSet reads a manifest and dispatches each entry to its
// variant's loader.
func LoadProbeSet(directory string) (*ProbeSet, error) {
	data, err := os.ReadFile(filepath.Join(directory, manifestFile))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode probe set manifest: %w", err)
	}

	probes := make([]Probe, 0, len(m.Probes))
	for _, entry := range m.Probes {
		if _, err := lookupVariant(entry.ProbeType); err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", entry.Name, err)
		}
		p, err := LoadProbe(filepath.Join(directory, entry.File))
		if err != nil {
			return nil, fmt.Errorf("load probe %q: %w", entry.Name, err)
		}
		probes = append(probes, p)
	}
	return NewProbeSet(probes)
}

func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	out := replacer.Replace(name)
	if out == "" {
		out = "unnamed_probe"
	}
	return out
}
