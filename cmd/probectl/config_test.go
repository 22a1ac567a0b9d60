package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"probekit/internal/probe"
)

func TestLoadFitConfigDefaults(t *testing.T) {
	cfg, err := loadFitConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Kind != probe.KindLinear {
		t.Fatalf("default kind = %q", cfg.Kind)
	}
}

func TestLoadFitConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fit.yaml")
	yamlData := `kind: kmeans
name: refusal
model_name: test-model
hook_point: blocks.2.hook_resid_post
hook_layer: 2
n_clusters: 4
n_init: 3
seed: 7
normalize_weights: false
`
	if err := os.WriteFile(path, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFitConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Kind != probe.KindKMeans || cfg.NumClusters != 4 || cfg.Seed != 7 {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.NormalizeWeights == nil || *cfg.NormalizeWeights {
		t.Fatalf("normalize_weights not parsed: %v", cfg.NormalizeWeights)
	}

	p, err := cfg.buildProbe(16)
	if err != nil {
		t.Fatalf("build probe: %v", err)
	}
	kp, ok := p.(*probe.KMeansProbe)
	if !ok {
		t.Fatalf("built %T", p)
	}
	if kp.Config().NumClusters != 4 || kp.Config().NumInit != 3 || kp.Config().Seed != 7 {
		t.Fatalf("kmeans config = %+v", kp.Config())
	}
	if kp.Config().NormalizeWeights {
		t.Fatal("normalize_weights override not applied")
	}
	base := p.BaseConfig()
	if base.InputSize != 16 || base.Name != "refusal" || base.HookLayer != 2 {
		t.Fatalf("base config = %+v", base)
	}
}

func TestBuildProbeAllKinds(t *testing.T) {
	for _, kind := range probe.Kinds() {
		cfg := fitConfig{Kind: kind}
		p, err := cfg.buildProbe(8)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if p.Kind() != kind {
			t.Fatalf("built kind %s, want %s", p.Kind(), kind)
		}
	}
}

func TestBuildProbeUnknownKind(t *testing.T) {
	cfg := fitConfig{Kind: "quantum"}
	if _, err := cfg.buildProbe(8); !errors.Is(err, probe.ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestLoadFitConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("kind: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadFitConfig(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
