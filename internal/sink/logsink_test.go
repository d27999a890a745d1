package sink

import (
	"context"
	"testing"

	"github.com/trustmesh/trustmesh/internal/analysis"
)

func TestLogSink(t *testing.T) {
	s := NewLogSink()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Publish(analysis.CompositeResult{Score: 42, Verdict: analysis.VerdictSuspicious}); err != nil {
		t.Errorf("publish: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if s.Name() != "log" {
		t.Errorf("unexpected name %s", s.Name())
	}
}

func TestForOutputs(t *testing.T) {
	t.Run("builds known sinks", func(t *testing.T) {
		sinks, err := ForOutputs([]string{"log"})
		if err != nil {
			t.Fatalf("for outputs: %v", err)
		}
		if len(sinks) != 1 || sinks[0].Name() != "log" {
			t.Errorf("unexpected sinks %v", sinks)
		}
	})

	t.Run("rejects unknown sink names", func(t *testing.T) {
		if _, err := ForOutputs([]string{"redis"}); err == nil {
			t.Error("expected error for unknown sink")
		}
	})
}
