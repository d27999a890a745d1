package detector

import (
	"fmt"

	"github.com/trustmesh/trustmesh/internal/analysis"
)

// Entry pairs a registered detector with its static spec.
type Entry struct {
	Spec     Spec
	Detector Detector
}

// Registry is the static table of registered detectors, built once at
// startup and read-only afterwards. Weight lookup is keyed by exact name;
// there is deliberately no fuzzy matching.
type Registry struct {
	entries []Entry
	byName  map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a detector under its spec. Names must be unique and
// weights must lie in [0,1].
func (r *Registry) Register(spec Spec, d Detector) error {
	if spec.Name == "" {
		return fmt.Errorf("detector name must not be empty")
	}
	if _, dup := r.byName[spec.Name]; dup {
		return fmt.Errorf("duplicate detector name: %s", spec.Name)
	}
	if spec.Weight < 0 || spec.Weight > 1 {
		return fmt.Errorf("detector %s: weight %v outside [0,1]", spec.Name, spec.Weight)
	}
	if spec.Timeout <= 0 {
		spec.Timeout = DefaultTimeout
	}
	if spec.Kind == "" {
		spec.Kind = d.Kind()
	}
	r.byName[spec.Name] = len(r.entries)
	r.entries = append(r.entries, Entry{Spec: spec, Detector: d})
	return nil
}

// Entries returns the registered detectors in registration order. The
// returned slice must not be mutated.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Weight resolves a detector's registered weight by exact name.
func (r *Registry) Weight(name string) (float64, bool) {
	i, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return r.entries[i].Spec.Weight, true
}

// Len reports the number of registered detectors.
func (r *Registry) Len() int { return len(r.entries) }

// Kinds counts registered detectors by internal vs external origin.
func (r *Registry) Kinds() (core, external int) {
	for _, e := range r.entries {
		if e.Spec.Kind == analysis.KindInternal {
			core++
		} else {
			external++
		}
	}
	return core, external
}
