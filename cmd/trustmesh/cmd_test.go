package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadInput(t *testing.T) {
	t.Run("reads a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "input.json")
		body := `{"content": "great product", "rating": 5}`
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		in, err := readInput(path)
		if err != nil {
			t.Fatalf("readInput: %v", err)
		}
		if in.Content != "great product" {
			t.Errorf("unexpected content %q", in.Content)
		}
		if in.Rating == nil || *in.Rating != 5 {
			t.Errorf("unexpected rating %v", in.Rating)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "input.json")
		if err := os.WriteFile(path, []byte(`{"contnet": "typo"}`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := readInput(path); err == nil {
			t.Error("expected decode error for unknown field")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := readInput(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestLoadRegistry(t *testing.T) {
	t.Run("falls back to builtins when file absent", func(t *testing.T) {
		reg, err := loadRegistry(filepath.Join(t.TempDir(), "absent.yml"))
		if err != nil {
			t.Fatalf("loadRegistry: %v", err)
		}
		if reg.Len() != 4 {
			t.Errorf("expected 4 built-in detectors, got %d", reg.Len())
		}
	})

	t.Run("loads a registry file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "detectors.yml")
		body := "detectors:\n  - name: burst-activity\n    kind: internal\n    weight: 0.4\n    timeout_ms: 5000\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		reg, err := loadRegistry(path)
		if err != nil {
			t.Fatalf("loadRegistry: %v", err)
		}
		if reg.Len() != 1 {
			t.Errorf("expected 1 detector, got %d", reg.Len())
		}
	})

	t.Run("surfaces parse errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yml")
		if err := os.WriteFile(path, []byte("detectors: ["), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := loadRegistry(path); err == nil {
			t.Error("expected parse error")
		}
	})
}
