package sink

import (
	"context"
	"fmt"

	"github.com/trustmesh/trustmesh/internal/analysis"
)

// Sink receives finished composite results. Persistence is the caller's
// side of the boundary; detectors and the orchestrator never write here
// themselves.
type Sink interface {
	Start(ctx context.Context) error
	Publish(res analysis.CompositeResult) error
	Close() error
	Name() string // Returns the sink name for metrics and logging
}

// ForOutputs builds the sinks named in the OUTPUTS config value.
func ForOutputs(outputs []string) ([]Sink, error) {
	var sinks []Sink
	for _, name := range outputs {
		switch name {
		case "log":
			sinks = append(sinks, NewLogSink())
		case "kafka":
			sinks = append(sinks, NewKafkaSinkFromEnv())
		case "postgres":
			sinks = append(sinks, NewPGSinkFromEnv())
		default:
			return nil, fmt.Errorf("unknown output sink: %s", name)
		}
	}
	return sinks, nil
}
