package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/detector"
	"github.com/trustmesh/trustmesh/internal/orchestrate"
	cfg "github.com/trustmesh/trustmesh/pkg/config"
)

func testEnv(t *testing.T) (Env, *[]analysis.CompositeResult) {
	t.Helper()
	reg := detector.DefaultRegistry()

	var published []analysis.CompositeResult
	env := Env{
		Cfg:          cfg.Config{MaxBodyBytes: 1 << 20},
		Orchestrator: orchestrate.New(reg),
		Publish: func(res analysis.CompositeResult) {
			published = append(published, res)
		},
	}
	return env, &published
}

func TestAnalyzeEndpoint(t *testing.T) {
	env, published := testEnv(t)
	mux := NewMux(env)

	t.Run("returns composite document", func(t *testing.T) {
		body := `{"content": "Best ever!!! Amazing, must buy!!! Use my discount code!!!", "rating": 5}`
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var doc struct {
			OverallScore int    `json:"overallScore"`
			Verdict      string `json:"verdict"`
			AgentResults []any  `json:"agentResults"`
			Consensus    struct {
				Description string `json:"description"`
			} `json:"consensus"`
			Metadata struct {
				TotalAgentsRun int    `json:"totalAgentsRun"`
				Timestamp      string `json:"timestamp"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if doc.OverallScore < 0 || doc.OverallScore > 100 {
			t.Errorf("score %d outside [0,100]", doc.OverallScore)
		}
		if doc.Verdict == "" {
			t.Error("expected a verdict")
		}
		if doc.Metadata.TotalAgentsRun != 4 {
			t.Errorf("expected 4 agents run, got %d", doc.Metadata.TotalAgentsRun)
		}
		if doc.Metadata.Timestamp == "" {
			t.Error("expected ISO-8601 timestamp in metadata")
		}
		if len(*published) != 1 {
			t.Errorf("expected 1 published result, got %d", len(*published))
		}
	})

	t.Run("rejects GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/analyze", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(`{"content": "  "}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	env, _ := testEnv(t)
	mux := NewMux(env)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
