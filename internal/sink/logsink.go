package sink

import (
	"context"
	"encoding/json"
	"log"

	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/metrics"
)

type LogSink struct {
	met *metrics.Metrics
}

func NewLogSink() *LogSink { return &LogSink{met: metrics.GetMetrics()} }

func (s *LogSink) Start(ctx context.Context) error { return nil }

func (s *LogSink) Publish(res analysis.CompositeResult) error {
	b, _ := json.Marshal(res)
	log.Printf("result %s", string(b))
	s.met.IncrementResultsPublished(s.Name())
	return nil
}

func (s *LogSink) Close() error { return nil }

func (s *LogSink) Name() string { return "log" }
