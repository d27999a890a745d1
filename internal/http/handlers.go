package httpx

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/orchestrate"
	cfg "github.com/trustmesh/trustmesh/pkg/config"
)

type Env struct {
	Cfg          cfg.Config
	Orchestrator *orchestrate.Orchestrator
	Publish      func(analysis.CompositeResult) // injected sink fan-out
}

func (e Env) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (e Env) Readyz(w http.ResponseWriter, r *http.Request) {
	// TODO: verify sink connectivity (Kafka/PG) before returning 200
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Analyze runs the full detector fan-out for one input and returns the
// composite document. Detector failures never surface as HTTP errors; the
// worst outcome is an insufficient_data result.
func (e Env) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, e.Cfg.MaxBodyBytes)
	var input analysis.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(input.Content) == "" && input.URL == "" && input.MediaRef == "" {
		http.Error(w, "content, url, or media_ref required", http.StatusBadRequest)
		return
	}

	result := e.Orchestrator.Analyze(r.Context(), input)
	if e.Publish != nil {
		e.Publish(result)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("analyze: encode response: %v", err)
	}
}
