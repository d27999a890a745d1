package detector

import (
	"context"
	"time"

	"github.com/trustmesh/trustmesh/internal/analysis"
)

// Detector scores one piece of content for trustworthiness. Implementations
// must be safe for concurrent use and free of side effects on orchestration
// state; persisting results is the caller's job.
type Detector interface {
	Name() string
	Kind() analysis.Kind
	Invoke(ctx context.Context, input analysis.Input) (analysis.DetectorResult, error)
}

// Spec is the static registration record for one detector.
type Spec struct {
	Name    string
	Kind    analysis.Kind
	Weight  float64 // in [0,1]; weights need not sum to 1 across the registry
	Timeout time.Duration
}

// DefaultTimeout bounds a detector invocation when the spec does not set one.
const DefaultTimeout = 20 * time.Second

// FallbackWeight is used when a result's agent name has no registry entry.
// Misconfiguration is logged, never fatal.
const FallbackWeight = 0.05

// newResult assembles an immutable DetectorResult. The verdict is derived
// from the confidence via the shared bands.
func newResult(name string, kind analysis.Kind, confidence int, evidence []string, raw map[string]any) analysis.DetectorResult {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return analysis.DetectorResult{
		AgentName:  name,
		Kind:       kind,
		Confidence: confidence,
		Verdict:    analysis.VerdictFor(confidence),
		Evidence:   evidence,
		RawDetails: raw,
		Timestamp:  time.Now().UTC(),
	}
}
