package sink

import (
	"testing"

	"github.com/trustmesh/trustmesh/internal/analysis"
)

func TestNewKafkaSinkFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := NewKafkaSinkFromEnv()
		if len(s.config.Brokers) != 1 || s.config.Brokers[0] != "localhost:9092" {
			t.Errorf("unexpected default brokers %v", s.config.Brokers)
		}
		if s.config.Topic != "trustmesh.results" {
			t.Errorf("unexpected default topic %s", s.config.Topic)
		}
		if s.config.Acks != "all" {
			t.Errorf("unexpected default acks %s", s.config.Acks)
		}
	})

	t.Run("reads env overrides", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092")
		t.Setenv("KAFKA_TOPIC", "trust.scores")
		t.Setenv("KAFKA_TLS_SKIP_VERIFY", "true")

		s := NewKafkaSinkFromEnv()
		if len(s.config.Brokers) != 2 || s.config.Brokers[1] != "b2:9092" {
			t.Errorf("broker list not trimmed/split: %v", s.config.Brokers)
		}
		if s.config.Topic != "trust.scores" {
			t.Errorf("unexpected topic %s", s.config.Topic)
		}
		if !s.config.TLSSkipVerify {
			t.Error("expected TLSSkipVerify true")
		}
	})
}

func TestKafkaSinkPublishBeforeStart(t *testing.T) {
	s := NewKafkaSink([]string{"localhost:9092"}, "trustmesh.results")
	if err := s.Publish(analysis.CompositeResult{AnalysisID: "x"}); err == nil {
		t.Error("expected error when publishing before Start")
	}
}
