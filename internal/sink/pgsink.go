package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	_ "github.com/lib/pq"

	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/metrics"
)

// PGSink stores composite results as JSONB rows keyed by analysis id.
type PGSink struct {
	dsn   string
	table string
	db    *sql.DB
	met   *metrics.Metrics
}

// NewPGSink creates a Postgres sink with explicit configuration.
func NewPGSink(dsn, table string) *PGSink {
	return &PGSink{dsn: dsn, table: table, met: metrics.GetMetrics()}
}

// NewPGSinkFromEnv creates a Postgres sink from environment variables.
func NewPGSinkFromEnv() *PGSink {
	dsn := os.Getenv("PG_DSN")
	table := os.Getenv("PG_TABLE")
	if table == "" {
		table = "composite_results"
	}
	return NewPGSink(dsn, table)
}

func (s *PGSink) Name() string { return "postgres" }

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName rejects anything that could smuggle SQL through the
// table identifier, which cannot be bound as a parameter.
func validateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name: %q", name)
	}
	return nil
}

func (s *PGSink) Start(ctx context.Context) error {
	if err := validateTableName(s.table); err != nil {
		return err
	}

	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		analysis_id TEXT PRIMARY KEY,
		score INTEGER NOT NULL,
		verdict TEXT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("ensure table %s: %w", s.table, err)
	}

	s.db = db
	return nil
}

func (s *PGSink) Publish(res analysis.CompositeResult) error {
	if s.db == nil {
		return fmt.Errorf("postgres sink not started")
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (analysis_id, score, verdict, payload) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (analysis_id) DO NOTHING`, s.table)
	if _, err := s.db.Exec(query, res.AnalysisID, res.Score, string(res.Verdict), payload); err != nil {
		s.met.IncrementSinkErrors(s.Name(), "insert")
		return fmt.Errorf("insert result: %w", err)
	}

	s.met.IncrementResultsPublished(s.Name())
	return nil
}

func (s *PGSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
