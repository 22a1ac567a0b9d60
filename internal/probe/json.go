package probe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Metadata is the portable JSON description of a probe vector.
type Metadata struct {
	ModelName       string         `json:"model_name"`
	HookPoint       string         `json:"hook_point"`
	HookLayer       int            `json:"hook_layer"`
	HookHeadIndex   *int           `json:"hook_head_index"`
	VectorName      string         `json:"vector_name"`
	VectorDimension int            `json:"vector_dimension"`
	ProbeType       string         `json:"probe_type"`
	DatasetPath     *string        `json:"dataset_path"`
	PrependBOS      bool           `json:"prepend_bos"`
	ContextSize     int            `json:"context_size"`
	DType           string         `json:"dtype"`
	Device          string         `json:"device"`
	AdditionalInfo  map[string]any `json:"additional_info"`
}

type vectorDocument struct {
	Vector   []float64 `json:"vector"`
	Metadata *Metadata `json:"metadata"`
}

// EncodeVectorDoc renders a probe as the portable vector document. The
// stored vector is the fully transformed direction, so is_normalized and
// is_unscaled are written true: a reloading probe must not re-apply
// either transform.
func EncodeVectorDoc(p Probe) ([]byte, error) {
	pp, ok := p.(persistable)
	if !ok {
		return nil, fmt.Errorf("%w: %s probe is not serializable", ErrUnknownVariant, p.Kind())
	}
	return encodeVectorDoc(pp)
}

func encodeVectorDoc(p persistable) ([]byte, error) {
	dirs, err := p.Directions()
	if err != nil {
		return nil, fmt.Errorf("encode %s probe json: %w", p.Kind(), err)
	}
	if len(dirs) != 1 {
		return nil, fmt.Errorf("encode %s probe json: vector format holds a single direction, probe has %d",
			p.Kind(), len(dirs))
	}
	vector := dirs[0]
	base := p.BaseConfig()

	info := make(map[string]any, len(base.AdditionalInfo)+4)
	for k, v := range base.AdditionalInfo {
		info[k] = v
	}
	if st := p.state(); st != nil {
		if st.FeatureMean != nil {
			info["feature_mean"] = st.FeatureMean
		}
		if st.FeatureStd != nil {
			info["feature_std"] = st.FeatureStd
		}
		if st.Bias != nil {
			info["bias"] = st.Bias
		}
	}
	info[flagNormalized] = true
	info[flagUnscaled] = true

	var datasetPath *string
	if base.DatasetPath != "" {
		datasetPath = &base.DatasetPath
	}

	doc := vectorDocument{
		Vector: vector,
		Metadata: &Metadata{
			ModelName:       base.ModelName,
			HookPoint:       base.HookPoint,
			HookLayer:       base.HookLayer,
			HookHeadIndex:   base.HookHeadIndex,
			VectorName:      base.Name,
			VectorDimension: len(vector),
			ProbeType:       p.Kind(),
			DatasetPath:     datasetPath,
			PrependBOS:      base.PrependBOS,
			ContextSize:     base.ContextSize,
			DType:           base.DType,
			Device:          base.Device,
			AdditionalInfo:  info,
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s probe json: %w", p.Kind(), err)
	}
	return data, nil
}

func saveJSON(p persistable, path string) error {
	data, err := encodeVectorDoc(p)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(path, ".json") {
		path += ".json"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadJSON reads a probe vector in the portable format, or one of the
// legacy shapes: {"vectors": [[...], ...]} (first entry), {"direction":
// [...]}, or a bare list of floats. Legacy payloads reconstruct a linear
// probe with a default config sized from the vector.
func LoadJSON(path string) (Probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := DecodeVectorDoc(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// DecodeVectorDoc parses any accepted probe-vector payload shape and
// reconstructs the probe it describes.
func DecodeVectorDoc(data []byte) (Probe, error) {
	var doc struct {
		Vector    []float64  `json:"vector"`
		Metadata  *Metadata  `json:"metadata"`
		Vectors   [][]float64 `json:"vectors"`
		Direction []float64  `json:"direction"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		// Not an object; the remaining accepted shape is a bare list.
		var vector []float64
		if err2 := json.Unmarshal(data, &vector); err2 != nil {
			return nil, ErrUnrecognizedFormat
		}
		return legacyProbe(vector)
	}

	switch {
	case doc.Vector != nil && doc.Metadata != nil:
		return probeFromDocument(doc.Vector, doc.Metadata)
	case len(doc.Vectors) > 0:
		return legacyProbe(doc.Vectors[0])
	case doc.Direction != nil:
		return legacyProbe(doc.Direction)
	default:
		return nil, ErrUnrecognizedFormat
	}
}

func probeFromDocument(vector []float64, meta *Metadata) (Probe, error) {
	p, err := NewDefault(meta.ProbeType, len(vector))
	if err != nil {
		return nil, err
	}

	base := p.BaseConfig()
	base.ModelName = meta.ModelName
	base.HookPoint = meta.HookPoint
	base.HookLayer = meta.HookLayer
	base.HookHeadIndex = meta.HookHeadIndex
	base.Name = meta.VectorName
	if meta.DatasetPath != nil {
		base.DatasetPath = *meta.DatasetPath
	}
	base.PrependBOS = meta.PrependBOS
	base.ContextSize = meta.ContextSize
	if meta.DType != "" {
		base.DType = meta.DType
	}
	if meta.Device != "" {
		base.Device = meta.Device
	}

	info := meta.AdditionalInfo
	if info == nil {
		info = make(map[string]any)
	}
	// A serialized vector is post-transform even when an older writer
	// omitted the flags.
	if _, ok := info[flagNormalized]; !ok {
		info[flagNormalized] = true
		info[flagUnscaled] = true
	}
	base.AdditionalInfo = info

	setter, ok := p.(directionSetter)
	if !ok {
		return nil, fmt.Errorf("%w: %s probe cannot accept a stored vector", ErrUnrecognizedFormat, meta.ProbeType)
	}
	if err := setter.setDirection([][]float64{vector}); err != nil {
		return nil, err
	}

	if restorer, ok := p.(stateRestorer); ok {
		st := &paramState{
			Bias:        floatsFromInfo(info, "bias"),
			FeatureMean: floatsFromInfo(info, "feature_mean"),
			FeatureStd:  floatsFromInfo(info, "feature_std"),
		}
		if err := restorer.restoreState(st); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func legacyProbe(vector []float64) (Probe, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrUnrecognizedFormat)
	}
	p, err := NewDefault(KindLinear, len(vector))
	if err != nil {
		return nil, err
	}
	if err := p.(directionSetter).setDirection([][]float64{vector}); err != nil {
		return nil, err
	}
	return p, nil
}

// floatsFromInfo pulls a numeric list out of an AdditionalInfo map,
// tolerating both []float64 and the []any produced by JSON decoding.
func floatsFromInfo(info map[string]any, key string) []float64 {
	switch v := info[key].(type) {
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]float64, 0, len(v))
		for _, e := range v {
			f, ok := e.(float64)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
		return out
	default:
		return nil
	}
}
