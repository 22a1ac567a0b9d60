package probe

// ProbeConfig carries the metadata shared by every probe variant. The
// AdditionalInfo map transports derived state (standardization buffers,
// bias, transform flags) between fitting and persistence; it is always
// allocated fresh per instance so no two configs share a map.
type ProbeConfig struct {
	InputSize int    `json:"input_size"`
	Device    string `json:"device"`

	ModelName     string `json:"model_name"`
	HookPoint     string `json:"hook_point"`
	HookLayer     int    `json:"hook_layer"`
	HookHeadIndex *int   `json:"hook_head_index"`
	Name          string `json:"name"`

	DatasetPath string `json:"dataset_path"`
	PrependBOS  bool   `json:"prepend_bos"`
	ContextSize int    `json:"context_size"`

	DType string `json:"dtype"`

	AdditionalInfo map[string]any `json:"additional_info"`
}

func NewProbeConfig(inputSize int) ProbeConfig {
	return ProbeConfig{
		InputSize:      inputSize,
		Device:         "cpu",
		ModelName:      "unknown_model",
		HookPoint:      "unknown_hook",
		Name:           "unnamed_probe",
		PrependBOS:     true,
		ContextSize:    128,
		DType:          "float32",
		AdditionalInfo: make(map[string]any),
	}
}

// Transform flags recorded in AdditionalInfo. A set flag means the stored
// weights already went through that transform and it must not run again.
const (
	flagUnscaled   = "is_unscaled"
	flagNormalized = "is_normalized"
)

func (c *ProbeConfig) flag(key string) bool {
	if c.AdditionalInfo == nil {
		return false
	}
	v, ok := c.AdditionalInfo[key].(bool)
	return ok && v
}

func (c *ProbeConfig) setFlag(key string) {
	if c.AdditionalInfo == nil {
		c.AdditionalInfo = make(map[string]any)
	}
	c.AdditionalInfo[key] = true
}

// Loss kinds accepted by LinearProbeConfig. Validated at loss construction,
// not at config construction.
const (
	LossMSE    = "mse"
	LossHinge  = "hinge"
	LossCosine = "cosine"
)

type LinearProbeConfig struct {
	ProbeConfig
	LossType         string `json:"loss_type"`
	NormalizeWeights bool   `json:"normalize_weights"`
	Bias             bool   `json:"bias"`
	OutputSize       int    `json:"output_size"`
}

func NewLinearProbeConfig(inputSize int) *LinearProbeConfig {
	return &LinearProbeConfig{
		ProbeConfig:      NewProbeConfig(inputSize),
		LossType:         LossMSE,
		NormalizeWeights: true,
		OutputSize:       1,
	}
}

type LogisticProbeConfig struct {
	ProbeConfig
	NormalizeWeights bool `json:"normalize_weights"`
	Bias             bool `json:"bias"`
	OutputSize       int  `json:"output_size"`
}

func NewLogisticProbeConfig(inputSize int) *LogisticProbeConfig {
	return &LogisticProbeConfig{
		ProbeConfig:      NewProbeConfig(inputSize),
		NormalizeWeights: true,
		Bias:             true,
		OutputSize:       1,
	}
}

type KMeansProbeConfig struct {
	ProbeConfig
	NumClusters      int   `json:"n_clusters"`
	NumInit          int   `json:"n_init"`
	NormalizeWeights bool  `json:"normalize_weights"`
	Seed             int64 `json:"seed"`
}

func NewKMeansProbeConfig(inputSize int) *KMeansProbeConfig {
	return &KMeansProbeConfig{
		ProbeConfig:      NewProbeConfig(inputSize),
		NumClusters:      2,
		NumInit:          10,
		NormalizeWeights: true,
		Seed:             42,
	}
}

type PCAProbeConfig struct {
	ProbeConfig
	NumComponents    int  `json:"n_components"`
	NormalizeWeights bool `json:"normalize_weights"`
}

func NewPCAProbeConfig(inputSize int) *PCAProbeConfig {
	return &PCAProbeConfig{
		ProbeConfig:      NewProbeConfig(inputSize),
		NumComponents:    1,
		NormalizeWeights: true,
	}
}

type MeanDiffProbeConfig struct {
	ProbeConfig
	NormalizeWeights bool `json:"normalize_weights"`
}

func NewMeanDiffProbeConfig(inputSize int) *MeanDiffProbeConfig {
	return &MeanDiffProbeConfig{
		ProbeConfig:      NewProbeConfig(inputSize),
		NormalizeWeights: true,
	}
}

// LogRegProbeConfig configures the classical logistic-regression probe,
// which delegates fitting to the solver package instead of the trainer.
type LogRegProbeConfig struct {
	ProbeConfig
	Standardize      bool  `json:"standardize"`
	NormalizeWeights bool  `json:"normalize_weights"`
	Bias             bool  `json:"bias"`
	MaxIter          int   `json:"max_iter"`
	Seed             int64 `json:"seed"`
}

func NewLogRegProbeConfig(inputSize int) *LogRegProbeConfig {
	return &LogRegProbeConfig{
		ProbeConfig:      NewProbeConfig(inputSize),
		Standardize:      true,
		NormalizeWeights: true,
		Bias:             true,
		MaxIter:          100,
		Seed:             42,
	}
}
