package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	AnalysesTotal      uint64
	AnalysesFailed     uint64
	VerdictExceeds     uint64
	VerdictWithin      uint64
	VerdictUnknown     uint64
	Downloads          uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementAnalyses counts one analysis attempt.
func IncrementAnalyses() { atomic.AddUint64(&globalMetrics.AnalysesTotal, 1) }

// IncrementAnalysesFailed counts a failed completion call.
func IncrementAnalysesFailed() { atomic.AddUint64(&globalMetrics.AnalysesFailed, 1) }

// IncrementDownloads counts served audit artifacts.
func IncrementDownloads() { atomic.AddUint64(&globalMetrics.Downloads, 1) }

// RecordVerdict counts a verdict by its value.
func RecordVerdict(verdict bias.Verdict) {
	switch verdict {
	case bias.VerdictExceedsTolerance:
		atomic.AddUint64(&globalMetrics.VerdictExceeds, 1)
	case bias.VerdictWithinTolerance:
		atomic.AddUint64(&globalMetrics.VerdictWithin, 1)
	default:
		atomic.AddUint64(&globalMetrics.VerdictUnknown, 1)
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"analyses_total":       atomic.LoadUint64(&globalMetrics.AnalysesTotal),
		"analyses_failed":      atomic.LoadUint64(&globalMetrics.AnalysesFailed),
		"verdicts": map[string]uint64{
			string(bias.VerdictExceedsTolerance): atomic.LoadUint64(&globalMetrics.VerdictExceeds),
			string(bias.VerdictWithinTolerance):  atomic.LoadUint64(&globalMetrics.VerdictWithin),
			string(bias.VerdictUnknown):          atomic.LoadUint64(&globalMetrics.VerdictUnknown),
		},
		"downloads":      atomic.LoadUint64(&globalMetrics.Downloads),
		"uptime_seconds": time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes": m.Alloc,
			"sys_bytes":   m.Sys,
			"num_gc":      m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
		atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
		defer atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
		} else {
			atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
