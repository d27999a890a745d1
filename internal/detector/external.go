package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/upstream"
)

// ExternalDetector calls a remote scoring service through a
// rate-limited, retrying, caching upstream client. One client instance is
// scoped to this detector's upstream and shared by all concurrent calls.
type ExternalDetector struct {
	name   string
	kind   analysis.Kind
	client *upstream.Client
	method string
	path   string
}

// NewExternalDetector wraps an upstream client as a detector.
func NewExternalDetector(name string, kind analysis.Kind, client *upstream.Client, method, path string) *ExternalDetector {
	if method == "" {
		method = http.MethodPost
	}
	return &ExternalDetector{name: name, kind: kind, client: client, method: method, path: path}
}

func (d *ExternalDetector) Name() string        { return d.name }
func (d *ExternalDetector) Kind() analysis.Kind { return d.kind }

// scorePayload is the wire form accepted from upstream scorers. Services
// disagree on the field name for the confidence value, so both are read.
type scorePayload struct {
	Confidence *float64       `json:"confidence,omitempty"`
	Score      *float64       `json:"score,omitempty"`
	Verdict    string         `json:"verdict,omitempty"`
	Evidence   []string       `json:"evidence,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Invoke posts the analysis input upstream and translates the JSON reply
// into a DetectorResult. Retry, backoff, rate limiting, and caching are the
// client's responsibility, never the remote service's.
func (d *ExternalDetector) Invoke(ctx context.Context, input analysis.Input) (analysis.DetectorResult, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return analysis.DetectorResult{}, fmt.Errorf("detector %s: encode input: %w", d.name, err)
	}

	resp, err := d.client.Do(ctx, upstream.Request{
		Method:  d.method,
		Path:    d.path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return analysis.DetectorResult{}, fmt.Errorf("detector %s: %w", d.name, err)
	}

	// A zero-length but well-formed response is valid data: the upstream
	// had nothing to report.
	if len(resp.Body) == 0 {
		return newResult(d.name, d.kind, 0, nil, nil), nil
	}

	var payload scorePayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return analysis.DetectorResult{}, fmt.Errorf("detector %s: decode response: %w", d.name, err)
	}

	confidence := 0
	switch {
	case payload.Confidence != nil:
		confidence = int(math.Round(*payload.Confidence))
	case payload.Score != nil:
		confidence = int(math.Round(*payload.Score))
	}

	result := newResult(d.name, d.kind, confidence, payload.Evidence, payload.Details)
	if payload.Verdict != "" {
		result.Verdict = analysis.Verdict(payload.Verdict)
	}
	return result, nil
}
