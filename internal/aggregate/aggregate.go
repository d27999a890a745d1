package aggregate

import (
	"log"
	"math"
	"time"

	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/detector"
)

// Consensus thresholds: agreement is "strong" when the fake-leaning rate is
// near-unanimous either way.
const (
	strongFakeRate    = 0.75
	strongGenuineRate = 0.25
)

const (
	descStrongFake    = "Strong agreement (likely fake)"
	descStrongGenuine = "Strong agreement (likely genuine)"
	descMixed         = "Mixed signals - review recommended"
)

// Aggregator folds per-detector results into one composite result using the
// registry's static weights.
type Aggregator struct {
	registry *detector.Registry
}

// New creates an aggregator over the given registry.
func New(registry *detector.Registry) *Aggregator {
	return &Aggregator{registry: registry}
}

// ZeroConfidence is the fixed result returned when no detector responded.
// Callers always receive a valid CompositeResult shape, never an error.
func ZeroConfidence() analysis.CompositeResult {
	return analysis.CompositeResult{
		Score:   0,
		Verdict: analysis.VerdictInsufficientData,
		Consensus: analysis.Consensus{
			Description: descMixed,
		},
		Metadata: analysis.Metadata{Timestamp: time.Now().UTC()},
	}
}

// Combine builds the composite result from the detectors that actually
// responded. The score is a weighted mean over responders only: an offline
// detector removes itself from the average instead of dragging the score
// toward zero. Results must be passed in completion order; the evidence
// chain preserves that order exactly.
func (a *Aggregator) Combine(results []analysis.DetectorResult) analysis.CompositeResult {
	if len(results) == 0 {
		return ZeroConfidence()
	}

	var weightedSum, totalWeight float64
	fakeLeaning := 0
	chain := make([]analysis.EvidenceEntry, 0, len(results))

	for _, res := range results {
		weight := a.weightFor(res.AgentName)
		weightedSum += float64(res.Confidence) * weight
		totalWeight += weight

		if res.Verdict.FakeLeaning() {
			fakeLeaning++
		}

		chain = append(chain, analysis.EvidenceEntry{
			AgentName:  res.AgentName,
			Kind:       res.Kind,
			Confidence: res.Confidence,
			Evidence:   res.Evidence,
			Timestamp:  res.Timestamp,
		})
	}

	if totalWeight == 0 {
		return ZeroConfidence()
	}

	score := int(math.Round(weightedSum / totalWeight))
	rate := float64(fakeLeaning) / float64(len(results))

	consensus := analysis.Consensus{
		Rate:            rate,
		StrongConsensus: rate > strongFakeRate || rate < strongGenuineRate,
	}
	switch {
	case rate > strongFakeRate:
		consensus.Description = descStrongFake
	case rate < strongGenuineRate:
		consensus.Description = descStrongGenuine
	default:
		consensus.Description = descMixed
	}

	return analysis.CompositeResult{
		Score:         score,
		Verdict:       analysis.VerdictFor(score),
		PerDetector:   results,
		Consensus:     consensus,
		EvidenceChain: chain,
		Metadata: analysis.Metadata{
			TotalRun:  len(results),
			Succeeded: len(results),
			Timestamp: time.Now().UTC(),
		},
	}
}

// weightFor resolves a registered weight by exact name, falling back to a
// small default for unknown names.
func (a *Aggregator) weightFor(name string) float64 {
	if a.registry != nil {
		if w, ok := a.registry.Weight(name); ok {
			return w
		}
	}
	log.Printf("aggregate: no registered weight for %q, using fallback %v", name, detector.FallbackWeight)
	return detector.FallbackWeight
}
