package metrics

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all the Prometheus metrics for trustmesh
type Metrics struct {
	// Counters
	AnalysesTotal       *prometheus.CounterVec
	DetectorInvocations *prometheus.CounterVec
	UpstreamRetries     *prometheus.CounterVec
	UpstreamCacheHits   *prometheus.CounterVec
	UpstreamCacheMisses *prometheus.CounterVec
	SinkErrors          *prometheus.CounterVec
	ResultsPublished    *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec

	// Gauges
	DetectorsRegistered prometheus.Gauge

	// Histograms
	AnalysisDuration prometheus.Histogram
	DetectorDuration *prometheus.HistogramVec
	RateLimitWait    *prometheus.HistogramVec
	CompositeScore   prometheus.Histogram
	HTTPDuration     *prometheus.HistogramVec
}

// Config holds configuration for the metrics server
type Config struct {
	Enabled bool
	Addr    string
}

// LoadConfig loads metrics configuration from environment variables
func LoadConfig() Config {
	return Config{
		Enabled: getBool("METRICS_ENABLED", false),
		Addr:    getOr("METRICS_ADDR", "127.0.0.1:9090"),
	}
}

// NewMetrics creates and registers all trustmesh metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustmesh_analyses_total",
				Help: "Total analysis calls by final verdict",
			},
			[]string{"verdict"},
		),

		DetectorInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustmesh_detector_invocations_total",
				Help: "Total detector invocations by detector and outcome",
			},
			[]string{"detector", "outcome"},
		),

		UpstreamRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustmesh_upstream_retries_total",
				Help: "Total upstream retry attempts by upstream name",
			},
			[]string{"upstream"},
		),

		UpstreamCacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustmesh_upstream_cache_hits_total",
				Help: "Upstream response cache hits",
			},
			[]string{"upstream"},
		),

		UpstreamCacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustmesh_upstream_cache_misses_total",
				Help: "Upstream response cache misses",
			},
			[]string{"upstream"},
		),

		SinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustmesh_sink_errors_total",
				Help: "Total errors writing to a result sink",
			},
			[]string{"sink", "error_type"},
		),

		ResultsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustmesh_results_published_total",
				Help: "Composite results published by sink type",
			},
			[]string{"sink"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustmesh_http_requests_total",
				Help: "Total HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		DetectorsRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trustmesh_detectors_registered",
				Help: "Number of detectors in the registry",
			},
		),

		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trustmesh_analysis_duration_seconds",
				Help:    "Wall-clock duration of one full Analyze call",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0, 30.0},
			},
		),

		DetectorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trustmesh_detector_duration_seconds",
				Help:    "Duration of a single detector invocation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"detector"},
		),

		RateLimitWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trustmesh_rate_limit_wait_seconds",
				Help:    "Time spent blocked on an upstream rate window",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 15.0, 30.0, 60.0},
			},
			[]string{"upstream"},
		),

		CompositeScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trustmesh_composite_score",
				Help:    "Distribution of composite trust scores",
				Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trustmesh_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint", "method"},
		),
	}

	// Register all metrics
	prometheus.MustRegister(m.AnalysesTotal)
	prometheus.MustRegister(m.DetectorInvocations)
	prometheus.MustRegister(m.UpstreamRetries)
	prometheus.MustRegister(m.UpstreamCacheHits)
	prometheus.MustRegister(m.UpstreamCacheMisses)
	prometheus.MustRegister(m.SinkErrors)
	prometheus.MustRegister(m.ResultsPublished)
	prometheus.MustRegister(m.DetectorsRegistered)
	prometheus.MustRegister(m.AnalysisDuration)
	prometheus.MustRegister(m.DetectorDuration)
	prometheus.MustRegister(m.HTTPRequests)
	prometheus.MustRegister(m.RateLimitWait)
	prometheus.MustRegister(m.CompositeScore)
	prometheus.MustRegister(m.HTTPDuration)

	return m
}

// Server represents the metrics HTTP server
type Server struct {
	server *http.Server
	config Config
}

// NewServer creates a new metrics server
func NewServer(config Config) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:         config.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		server: srv,
		config: config,
	}
}

// Start starts the metrics server in a separate goroutine
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		log.Printf("metrics: disabled (METRICS_ENABLED=false)")
		return nil
	}

	go func() {
		log.Printf("metrics: HTTP server listening on %s", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics: server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	log.Printf("metrics: shutting down server...")
	return s.server.Shutdown(ctx)
}

// Helper functions
func getOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Global metrics instance
var defaultMetrics *Metrics

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	if defaultMetrics == nil {
		defaultMetrics = NewMetrics()
	}
	return defaultMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if defaultMetrics == nil {
		defaultMetrics = NewMetrics()
	}
	return defaultMetrics
}

// Convenience methods for common operations
func (m *Metrics) IncrementAnalyses(verdict string) {
	m.AnalysesTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) IncrementDetectorInvocations(detector, outcome string) {
	m.DetectorInvocations.WithLabelValues(detector, outcome).Inc()
}

func (m *Metrics) IncrementUpstreamRetries(upstream string) {
	m.UpstreamRetries.WithLabelValues(upstream).Inc()
}

func (m *Metrics) IncrementCacheHits(upstream string) {
	m.UpstreamCacheHits.WithLabelValues(upstream).Inc()
}

func (m *Metrics) IncrementCacheMisses(upstream string) {
	m.UpstreamCacheMisses.WithLabelValues(upstream).Inc()
}

func (m *Metrics) IncrementSinkErrors(sink, errorType string) {
	m.SinkErrors.WithLabelValues(sink, errorType).Inc()
}

func (m *Metrics) IncrementResultsPublished(sink string) {
	m.ResultsPublished.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncrementHTTPRequests(endpoint, method, status string) {
	m.HTTPRequests.WithLabelValues(endpoint, method, status).Inc()
}

func (m *Metrics) ObserveHTTPDuration(endpoint, method string, duration time.Duration) {
	m.HTTPDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (m *Metrics) ObserveAnalysisDuration(duration time.Duration) {
	m.AnalysisDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveDetectorDuration(detector string, duration time.Duration) {
	m.DetectorDuration.WithLabelValues(detector).Observe(duration.Seconds())
}

func (m *Metrics) ObserveRateLimitWait(upstream string, duration time.Duration) {
	m.RateLimitWait.WithLabelValues(upstream).Observe(duration.Seconds())
}

func (m *Metrics) ObserveCompositeScore(score int) {
	m.CompositeScore.Observe(float64(score))
}
