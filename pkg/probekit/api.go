// Package probekit is the public surface of the probe engine: probe and
// config types re-exported from the internal packages, plus a Client that
// fits probes and persists them through a configurable store backend.
package probekit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"probekit/internal/dataset"
	"probekit/internal/probe"
	"probekit/internal/storage"
	"probekit/internal/trainer"
)

const defaultDBPath = "probekit.db"

// Probe types and configs, re-exported for callers outside the module.
type (
	Probe         = probe.Probe
	Fitter        = probe.Fitter
	GradientProbe = probe.GradientProbe
	ProbeSet      = probe.ProbeSet

	ProbeConfig         = probe.ProbeConfig
	LinearProbeConfig   = probe.LinearProbeConfig
	LogisticProbeConfig = probe.LogisticProbeConfig
	KMeansProbeConfig   = probe.KMeansProbeConfig
	PCAProbeConfig      = probe.PCAProbeConfig
	MeanDiffProbeConfig = probe.MeanDiffProbeConfig
	LogRegProbeConfig   = probe.LogRegProbeConfig

	Dataset = dataset.Dataset
)

var (
	ErrNotFitted          = probe.ErrNotFitted
	ErrDimensionMismatch  = probe.ErrDimensionMismatch
	ErrUnrecognizedFormat = probe.ErrUnrecognizedFormat
	ErrUnknownVariant     = probe.ErrUnknownVariant
	ErrUnknownLoss        = probe.ErrUnknownLoss
)

// Constructors, mirrored from internal/probe.
var (
	NewLinearProbeConfig   = probe.NewLinearProbeConfig
	NewLogisticProbeConfig = probe.NewLogisticProbeConfig
	NewKMeansProbeConfig   = probe.NewKMeansProbeConfig
	NewPCAProbeConfig      = probe.NewPCAProbeConfig
	NewMeanDiffProbeConfig = probe.NewMeanDiffProbeConfig
	NewLogRegProbeConfig   = probe.NewLogRegProbeConfig

	NewLinearProbe   = probe.NewLinearProbe
	NewLogisticProbe = probe.NewLogisticProbe
	NewKMeansProbe   = probe.NewKMeansProbe
	NewPCAProbe      = probe.NewPCAProbe
	NewMeanDiffProbe = probe.NewMeanDiffProbe
	NewLogRegProbe   = probe.NewLogRegProbe

	NewProbe     = probe.NewDefault
	NewProbeSet  = probe.NewProbeSet
	LoadProbe    = probe.LoadProbe
	LoadJSON     = probe.LoadJSON
	LoadProbeSet = probe.LoadProbeSet
	LoadDataset  = dataset.Load
	Kinds        = probe.Kinds
)

type Options struct {
	StoreKind string
	DBPath    string
}

type Client struct {
	store storage.Store
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

type FitRequest struct {
	Probe       Probe
	Activations [][]float64
	Labels      []float64

	// Gradient-probe training knobs; ignored for closed-form variants.
	LearningRate float64
	Epochs       int
	MinDelta     float64
}

type FitSummary struct {
	Kind      string
	Epochs    int
	FinalLoss float64
}

// Fit dispatches on the probe's fitting strategy: closed-form variants
// fit directly, gradient variants run the trainer.
func (c *Client) Fit(ctx context.Context, req FitRequest) (FitSummary, error) {
	if req.Probe == nil {
		return FitSummary{}, fmt.Errorf("fit: probe is required")
	}

	switch p := req.Probe.(type) {
	case probe.Fitter:
		if err := p.Fit(req.Activations, req.Labels); err != nil {
			return FitSummary{}, err
		}
		return FitSummary{Kind: p.Kind()}, nil
	case probe.GradientProbe:
		res, err := trainer.Train(ctx, p, req.Activations, req.Labels, trainer.Options{
			LearningRate: req.LearningRate,
			Epochs:       req.Epochs,
			MinDelta:     req.MinDelta,
		})
		if err != nil {
			return FitSummary{}, err
		}
		return FitSummary{Kind: p.Kind(), Epochs: res.Epochs, FinalLoss: res.FinalLoss}, nil
	default:
		return FitSummary{}, fmt.Errorf("fit: %w: %s", probe.ErrUnknownVariant, req.Probe.Kind())
	}
}

// StoreProbe persists a fitted probe's portable vector document under its
// configured name.
func (c *Client) StoreProbe(ctx context.Context, p Probe) (string, error) {
	payload, err := probe.EncodeVectorDoc(p)
	if err != nil {
		return "", err
	}

	base := p.BaseConfig()
	record := storage.ProbeRecord{
		VersionedRecord: storage.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:        uuid.NewString(),
		Name:      base.Name,
		ProbeType: p.Kind(),
		ModelName: base.ModelName,
		HookPoint: base.HookPoint,
		HookLayer: base.HookLayer,
		Payload:   json.RawMessage(payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.SaveProbe(ctx, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

// FetchProbe reconstructs a stored probe by name.
func (c *Client) FetchProbe(ctx context.Context, name string) (Probe, error) {
	record, ok, err := c.store.GetProbe(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("probe %q not found", name)
	}
	p, err := probe.DecodeVectorDoc(record.Payload)
	if err != nil {
		return nil, fmt.Errorf("probe %q: %w", name, err)
	}
	return p, nil
}

type StoredProbeItem struct {
	ID        string
	Name      string
	ProbeType string
	ModelName string
	HookPoint string
	HookLayer int
	CreatedAt time.Time
}

func (c *Client) ListProbes(ctx context.Context) ([]StoredProbeItem, error) {
	records, err := c.store.ListProbes(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]StoredProbeItem, 0, len(records))
	for _, r := range records {
		items = append(items, StoredProbeItem{
			ID:        r.ID,
			Name:      r.Name,
			ProbeType: r.ProbeType,
			ModelName: r.ModelName,
			HookPoint: r.HookPoint,
			HookLayer: r.HookLayer,
			CreatedAt: r.CreatedAt,
		})
	}
	return items, nil
}

func (c *Client) DeleteProbe(ctx context.Context, name string) error {
	return c.store.DeleteProbe(ctx, name)
}
