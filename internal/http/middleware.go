package httpx

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/trustmesh/trustmesh/internal/metrics"
)

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s ua=%q dur=%s", r.Method, r.URL.Path, r.UserAgent(), time.Since(start))
	})
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func Instrument(next http.Handler) http.Handler {
	m := metrics.GetMetrics()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		m.IncrementHTTPRequests(r.URL.Path, r.Method, strconv.Itoa(rec.status))
		m.ObserveHTTPDuration(r.URL.Path, r.Method, time.Since(start))
	})
}
