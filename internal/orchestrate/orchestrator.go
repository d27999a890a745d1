package orchestrate

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/trustmesh/trustmesh/internal/aggregate"
	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/detector"
	"github.com/trustmesh/trustmesh/internal/metrics"
)

// Per-detector invocation outcomes, used as metric labels.
const (
	OutcomeCompleted = "completed"
	OutcomeTimedOut  = "timed_out"
	OutcomeErrored   = "errored"
)

// Orchestrator fans an analysis call out to every registered detector
// concurrently, joins under the per-detector timeouts, and folds the
// surviving results through the aggregator. There are no orchestrator-level
// retries; retry lives one layer down in the upstream client.
type Orchestrator struct {
	registry *detector.Registry
	agg      *aggregate.Aggregator
	met      *metrics.Metrics

	// MaxConcurrent bounds the fan-out worker pool. Zero or negative
	// means one goroutine per detector, which is fine at registry sizes
	// in the tens.
	MaxConcurrent int
}

// New builds an orchestrator over the registry.
func New(registry *detector.Registry) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		agg:      aggregate.New(registry),
		met:      metrics.GetMetrics(),
	}
	o.met.DetectorsRegistered.Set(float64(registry.Len()))
	return o
}

// Analyze runs every registered detector against the input and returns the
// composite result. A detector error or timeout drops that detector only;
// the call itself never fails. If every detector drops, the caller gets the
// fixed zero-confidence result. Analyze blocks until every detector has
// completed, errored, or hit its individual timeout.
func (o *Orchestrator) Analyze(ctx context.Context, input analysis.Input) analysis.CompositeResult {
	start := time.Now()
	entries := o.registry.Entries()

	// Buffered to registry size so workers never block on the collector.
	// Channel receive order is completion order, which the evidence chain
	// must preserve.
	resultCh := make(chan analysis.DetectorResult, len(entries))

	var g errgroup.Group
	if o.MaxConcurrent > 0 {
		g.SetLimit(o.MaxConcurrent)
	}
	log.Printf("orchestrate: fanning out to %d detectors", len(entries))

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if res, ok := o.invoke(ctx, entry, input); ok {
				resultCh <- res
			}
			return nil
		})
	}
	_ = g.Wait()
	close(resultCh)

	results := make([]analysis.DetectorResult, 0, len(entries))
	for res := range resultCh {
		results = append(results, res)
	}

	log.Printf("orchestrate: aggregating %d/%d detector results", len(results), len(entries))
	composite := o.agg.Combine(results)
	composite.AnalysisID = uuid.NewString()

	core, external := o.registry.Kinds()
	composite.Metadata.TotalRun = len(entries)
	composite.Metadata.Succeeded = len(results)
	composite.Metadata.Failed = len(entries) - len(results)
	composite.Metadata.CoreAgents = core
	composite.Metadata.ExternalAgents = external

	o.met.IncrementAnalyses(string(composite.Verdict))
	o.met.ObserveAnalysisDuration(time.Since(start))
	o.met.ObserveCompositeScore(composite.Score)
	return composite
}

// invoke runs one detector under its hard timeout. The timeout context is
// threaded into Invoke and canceled when the orchestrator stops waiting, so
// abandoned in-flight work is actually aborted instead of silently eating
// the upstream's rate budget.
func (o *Orchestrator) invoke(ctx context.Context, entry detector.Entry, input analysis.Input) (analysis.DetectorResult, bool) {
	invokeCtx, cancel := context.WithTimeout(ctx, entry.Spec.Timeout)
	defer cancel()

	started := time.Now()
	type invocation struct {
		res analysis.DetectorResult
		err error
	}
	done := make(chan invocation, 1)
	go func() {
		res, err := entry.Detector.Invoke(invokeCtx, input)
		done <- invocation{res: res, err: err}
	}()

	var inv invocation
	select {
	case inv = <-done:
	case <-invokeCtx.Done():
		inv.err = invokeCtx.Err()
	}
	elapsed := time.Since(started)
	o.met.ObserveDetectorDuration(entry.Spec.Name, elapsed)

	switch {
	case inv.err == nil:
		o.met.IncrementDetectorInvocations(entry.Spec.Name, OutcomeCompleted)
		return inv.res, true
	case errors.Is(inv.err, context.DeadlineExceeded):
		o.met.IncrementDetectorInvocations(entry.Spec.Name, OutcomeTimedOut)
		log.Printf("orchestrate: detector %s timed out after %v, treating as offline", entry.Spec.Name, elapsed)
	default:
		o.met.IncrementDetectorInvocations(entry.Spec.Name, OutcomeErrored)
		log.Printf("orchestrate: detector %s dropped: %v", entry.Spec.Name, inv.err)
	}
	return analysis.DetectorResult{}, false
}
