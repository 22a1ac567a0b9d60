package storage

import (
	"context"
	"encoding/json"
	"time"
)

// VersionedRecord captures schema and codec evolution for persisted data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ProbeRecord is a stored probe: its portable vector document plus the
// metadata needed to list and look it up without decoding the payload.
type ProbeRecord struct {
	VersionedRecord
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	ProbeType string          `json:"probe_type"`
	ModelName string          `json:"model_name"`
	HookPoint string          `json:"hook_point"`
	HookLayer int             `json:"hook_layer"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store defines persistence operations for probe records, keyed by probe
// name.
type Store interface {
	Init(ctx context.Context) error
	SaveProbe(ctx context.Context, record ProbeRecord) error
	GetProbe(ctx context.Context, name string) (ProbeRecord, bool, error)
	ListProbes(ctx context.Context) ([]ProbeRecord, error)
	DeleteProbe(ctx context.Context, name string) error
}
