package probekit

import (
	"context"
	"math"
	"testing"

	"probekit/internal/floats"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func fitBatch() ([][]float64, []float64) {
	x := [][]float64{
		{-2, -1}, {-1.5, -2}, {-1, -1.5}, {-2.5, -0.5},
		{1, 1.5}, {1.5, 1}, {2, 2}, {0.5, 2.5},
	}
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	return x, y
}

func TestClientFitClosedForm(t *testing.T) {
	client := newTestClient(t)
	x, y := fitBatch()

	p := NewMeanDiffProbe(NewMeanDiffProbeConfig(2))
	summary, err := client.Fit(context.Background(), FitRequest{
		Probe:       p,
		Activations: x,
		Labels:      y,
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if summary.Kind != "meandiff" || summary.Epochs != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if _, err := p.Direction(); err != nil {
		t.Fatalf("direction after fit: %v", err)
	}
}

func TestClientFitGradient(t *testing.T) {
	client := newTestClient(t)
	x, y := fitBatch()

	p := NewLogisticProbe(NewLogisticProbeConfig(2))
	summary, err := client.Fit(context.Background(), FitRequest{
		Probe:        p,
		Activations:  x,
		Labels:       y,
		LearningRate: 0.1,
		Epochs:       100,
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if summary.Kind != "logistic" || summary.Epochs != 100 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.FinalLoss >= math.Ln2 {
		t.Fatalf("final loss %f did not improve on ln 2", summary.FinalLoss)
	}
}

func TestClientFitNilProbe(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Fit(context.Background(), FitRequest{}); err == nil {
		t.Fatal("expected an error for a nil probe")
	}
}

func TestClientStoreFetchRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	x, y := fitBatch()

	cfg := NewMeanDiffProbeConfig(2)
	cfg.Name = "refusal"
	cfg.ModelName = "test-model"
	cfg.HookPoint = "blocks.4.hook_resid_post"
	cfg.HookLayer = 4
	p := NewMeanDiffProbe(cfg)
	if _, err := client.Fit(ctx, FitRequest{Probe: p, Activations: x, Labels: y}); err != nil {
		t.Fatalf("fit: %v", err)
	}
	want, _ := p.Direction()

	id, err := client.StoreProbe(ctx, p)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if id == "" {
		t.Fatal("empty record id")
	}

	fetched, err := client.FetchProbe(ctx, "refusal")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fetched.Kind() != "meandiff" {
		t.Fatalf("kind = %s", fetched.Kind())
	}
	got, err := fetched.Direction()
	if err != nil {
		t.Fatalf("fetched direction: %v", err)
	}
	if !floats.EqualWithin(got, want, 1e-12) {
		t.Fatalf("direction = %v, want %v", got, want)
	}
	base := fetched.BaseConfig()
	if base.ModelName != "test-model" || base.HookLayer != 4 {
		t.Fatalf("metadata = %+v", base)
	}

	items, err := client.ListProbes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Name != "refusal" || items[0].ProbeType != "meandiff" {
		t.Fatalf("items = %+v", items)
	}

	if err := client.DeleteProbe(ctx, "refusal"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := client.FetchProbe(ctx, "refusal"); err == nil {
		t.Fatal("expected an error after delete")
	}
}

func TestClientFetchMissing(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.FetchProbe(context.Background(), "absent"); err == nil {
		t.Fatal("expected an error for a missing probe")
	}
}

func TestNewClientUnknownStore(t *testing.T) {
	if _, err := New(Options{StoreKind: "cassandra"}); err == nil {
		t.Fatal("expected an error for an unsupported store kind")
	}
}
