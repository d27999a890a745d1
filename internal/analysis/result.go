package analysis

import "time"

// Kind classifies where a detector's signal comes from.
type Kind string

const (
	KindInternal            Kind = "internal"
	KindExternalML          Kind = "external_ml"
	KindExternalCrowdsource Kind = "external_crowdsource"
	KindExternalScraper     Kind = "external_scraper"
	KindExternalOSINT       Kind = "external_osint"
)

// External reports whether results of this kind came over the network.
func (k Kind) External() bool { return k != KindInternal }

// Verdict is the banded interpretation of a confidence score.
type Verdict string

const (
	VerdictHighlyLikelyFake      Verdict = "highly_likely_fake"
	VerdictLikelyFake            Verdict = "likely_fake"
	VerdictSuspicious            Verdict = "suspicious"
	VerdictPotentiallySuspicious Verdict = "potentially_suspicious"
	VerdictLikelyGenuine         Verdict = "likely_genuine"
	VerdictInsufficientData      Verdict = "insufficient_data"
)

// FakeLeaning reports whether the verdict counts toward the fake side of
// consensus. insufficient_data leans neither way.
func (v Verdict) FakeLeaning() bool {
	switch v {
	case VerdictHighlyLikelyFake, VerdictLikelyFake, VerdictSuspicious:
		return true
	}
	return false
}

// DetectorResult is one detector's finding for one invocation. It is
// constructed once and never mutated afterwards.
type DetectorResult struct {
	AgentName  string         `json:"agent_name"`
	Kind       Kind           `json:"kind"`
	Confidence int            `json:"confidence"` // 0..100
	Verdict    Verdict        `json:"verdict"`
	Evidence   []string       `json:"evidence,omitempty"`
	RawDetails map[string]any `json:"raw_details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// EvidenceEntry is one link of the composite evidence chain. The chain
// preserves detector completion order and is never deduplicated.
type EvidenceEntry struct {
	AgentName  string    `json:"agent_name"`
	Kind       Kind      `json:"kind"`
	Confidence int       `json:"confidence"`
	Evidence   []string  `json:"evidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Consensus describes how strongly the responding detectors agree.
type Consensus struct {
	Rate            float64 `json:"rate"`
	StrongConsensus bool    `json:"strongConsensus"`
	Description     string  `json:"description"`
}

// Metadata summarizes one analysis run.
type Metadata struct {
	TotalRun       int       `json:"totalAgentsRun"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	CoreAgents     int       `json:"coreAgents"`
	ExternalAgents int       `json:"externalAgents"`
	Timestamp      time.Time `json:"timestamp"`
}

// CompositeResult is the aggregate of all responding detectors for a single
// analysis call. Constructed exactly once per call, immutable once returned.
type CompositeResult struct {
	AnalysisID    string           `json:"analysisId,omitempty"`
	Score         int              `json:"overallScore"` // 0..100
	Verdict       Verdict          `json:"verdict"`
	PerDetector   []DetectorResult `json:"agentResults"`
	Consensus     Consensus        `json:"consensus"`
	EvidenceChain []EvidenceEntry  `json:"evidenceProvenance"`
	Metadata      Metadata         `json:"metadata"`
}

// VerdictFor maps a composite score onto the fixed verdict bands. Severity
// is monotonic in the score.
func VerdictFor(score int) Verdict {
	switch {
	case score >= 80:
		return VerdictHighlyLikelyFake
	case score >= 60:
		return VerdictLikelyFake
	case score >= 40:
		return VerdictSuspicious
	case score >= 20:
		return VerdictPotentiallySuspicious
	default:
		return VerdictLikelyGenuine
	}
}
