package detector

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/trustmesh/trustmesh/internal/analysis"
)

func TestRegistryRegister(t *testing.T) {
	t.Run("rejects duplicate names", func(t *testing.T) {
		reg := NewRegistry()
		if err := reg.Register(Spec{Name: "linguistic-patterns", Weight: 0.5}, &LinguisticDetector{}); err != nil {
			t.Fatalf("first register: %v", err)
		}
		if err := reg.Register(Spec{Name: "linguistic-patterns", Weight: 0.3}, &LinguisticDetector{}); err == nil {
			t.Error("expected duplicate-name error")
		}
	})

	t.Run("rejects out-of-range weight", func(t *testing.T) {
		reg := NewRegistry()
		if err := reg.Register(Spec{Name: "x", Weight: 1.5}, &LinguisticDetector{}); err == nil {
			t.Error("expected weight error")
		}
	})

	t.Run("defaults timeout", func(t *testing.T) {
		reg := NewRegistry()
		if err := reg.Register(Spec{Name: "x", Weight: 0.5}, &LinguisticDetector{}); err != nil {
			t.Fatal(err)
		}
		if got := reg.Entries()[0].Spec.Timeout; got != DefaultTimeout {
			t.Errorf("expected default timeout %v, got %v", DefaultTimeout, got)
		}
	})
}

func TestRegistryWeightLookupIsExact(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Spec{Name: "ml-authenticity", Weight: 0.8}, &LinguisticDetector{}); err != nil {
		t.Fatal(err)
	}

	if w, ok := reg.Weight("ml-authenticity"); !ok || w != 0.8 {
		t.Errorf("exact lookup failed: %v %v", w, ok)
	}

	// Substring or prefix forms must not resolve.
	for _, name := range []string{"ml", "authenticity", "ml-authenticity-v2", "ML-AUTHENTICITY"} {
		if _, ok := reg.Weight(name); ok {
			t.Errorf("lookup %q should miss", name)
		}
	}
}

const testConfigYAML = `
detectors:
  - name: linguistic-patterns
    kind: internal
    weight: 0.6
    timeout_ms: 2000
  - name: rating-consistency
    weight: 0.4
  - name: ml-authenticity
    kind: external_ml
    weight: 0.8
    timeout_ms: 20000
    endpoint: https://scoring.example.com
    method: POST
    path: /v1/score
    rate_limit: 30
    max_retries: 3
    backoff_ms: 500
    cache_ttl_s: 300
`

func TestBuildRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detectors.yml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	reg, err := BuildRegistry(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if reg.Len() != 3 {
		t.Fatalf("expected 3 detectors, got %d", reg.Len())
	}

	entries := reg.Entries()
	if entries[0].Spec.Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", entries[0].Spec.Timeout)
	}
	if entries[1].Spec.Kind != analysis.KindInternal {
		t.Errorf("builtin without kind should default to internal, got %s", entries[1].Spec.Kind)
	}
	if entries[2].Spec.Kind != analysis.KindExternalML {
		t.Errorf("expected external_ml, got %s", entries[2].Spec.Kind)
	}
	if _, ok := entries[2].Detector.(*ExternalDetector); !ok {
		t.Errorf("expected external detector, got %T", entries[2].Detector)
	}

	core, external := reg.Kinds()
	if core != 2 || external != 1 {
		t.Errorf("expected 2 core / 1 external, got %d / %d", core, external)
	}
}

func TestBuildRegistryRejectsUnknownBuiltin(t *testing.T) {
	cfg := &FileConfig{Detectors: []DetectorConfig{{Name: "no-such-detector", Weight: 0.5}}}
	if _, err := BuildRegistry(cfg); err == nil {
		t.Error("expected unknown-builtin error")
	}
}
