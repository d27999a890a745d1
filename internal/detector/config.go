package detector

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/upstream"
)

// FileConfig is the YAML registry definition loaded at startup.
type FileConfig struct {
	Detectors []DetectorConfig `yaml:"detectors"`
}

// DetectorConfig declares one registry entry. Built-in detectors need only
// name, kind, weight and timeout; external ones add the upstream contract.
type DetectorConfig struct {
	Name      string  `yaml:"name"`
	Kind      string  `yaml:"kind"`
	Weight    float64 `yaml:"weight"`
	TimeoutMs int     `yaml:"timeout_ms"`

	// External upstream settings.
	Endpoint   string            `yaml:"endpoint,omitempty"`
	Method     string            `yaml:"method,omitempty"`
	Path       string            `yaml:"path,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	RateLimit  int               `yaml:"rate_limit,omitempty"`
	MaxRetries int               `yaml:"max_retries,omitempty"`
	BackoffMs  int               `yaml:"backoff_ms,omitempty"`
	CacheTTLs  int               `yaml:"cache_ttl_s,omitempty"`
}

// LoadFile reads a YAML registry definition from path.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry config: %w", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse registry config: %w", err)
	}
	if len(cfg.Detectors) == 0 {
		return nil, fmt.Errorf("registry config %s declares no detectors", path)
	}
	return &cfg, nil
}

// BuildRegistry turns a file config into a populated registry. Built-in
// names resolve through Builtins; anything with an endpoint becomes an
// external detector with its own upstream client.
func BuildRegistry(cfg *FileConfig) (*Registry, error) {
	reg := NewRegistry()
	for _, dc := range cfg.Detectors {
		spec := Spec{
			Name:    dc.Name,
			Kind:    analysis.Kind(dc.Kind),
			Weight:  dc.Weight,
			Timeout: time.Duration(dc.TimeoutMs) * time.Millisecond,
		}

		var det Detector
		switch {
		case dc.Endpoint != "":
			if spec.Kind == "" || spec.Kind == analysis.KindInternal {
				return nil, fmt.Errorf("detector %s: endpoint set but kind is not external", dc.Name)
			}
			client := upstream.NewClient(upstream.Config{
				Name:           dc.Name,
				BaseURL:        dc.Endpoint,
				RateLimit:      dc.RateLimit,
				MaxRetries:     dc.MaxRetries,
				InitialBackoff: time.Duration(dc.BackoffMs) * time.Millisecond,
				CacheTTL:       time.Duration(dc.CacheTTLs) * time.Second,
				Headers:        dc.Headers,
			})
			det = NewExternalDetector(dc.Name, spec.Kind, client, dc.Method, dc.Path)
		default:
			factory, ok := Builtins[dc.Name]
			if !ok {
				return nil, fmt.Errorf("unknown built-in detector: %s", dc.Name)
			}
			det = factory()
			if spec.Kind == "" {
				spec.Kind = analysis.KindInternal
			}
		}

		if err := reg.Register(spec, det); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// DefaultRegistry builds a registry holding every built-in detector with
// equal weight. Used by the one-shot CLI when no config file is given.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, name := range []string{"linguistic-patterns", "rating-consistency", "template-similarity", "burst-activity"} {
		_ = reg.Register(Spec{Name: name, Kind: analysis.KindInternal, Weight: 0.5}, Builtins[name]())
	}
	return reg
}
