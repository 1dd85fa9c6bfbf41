package httpstats

import (
	"net/http"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Recorder records request latencies into an HDR histogram.
// Tracks from 1µs to 60s with 3 significant figures.
type Recorder struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	started   time.Time
}

// Snapshot is a point-in-time view of the recorded latencies
type Snapshot struct {
	Count     int64   `json:"count"`
	P50Millis float64 `json:"p50_ms"`
	P95Millis float64 `json:"p95_ms"`
	P99Millis float64 `json:"p99_ms"`
	MaxMillis float64 `json:"max_ms"`
	Uptime    string  `json:"uptime"`
}

// NewRecorder creates a new latency recorder
func NewRecorder() *Recorder {
	return &Recorder{
		histogram: hdrhistogram.New(1, int64(60*time.Second/time.Microsecond), 3),
		started:   time.Now(),
	}
}

// Record adds one request duration
func (r *Recorder) Record(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histogram.RecordValue(int64(d / time.Microsecond))
}

// Snapshot returns current percentiles
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	toMillis := func(micros int64) float64 { return float64(micros) / 1000.0 }

	return Snapshot{
		Count:     r.histogram.TotalCount(),
		P50Millis: toMillis(r.histogram.ValueAtQuantile(50)),
		P95Millis: toMillis(r.histogram.ValueAtQuantile(95)),
		P99Millis: toMillis(r.histogram.ValueAtQuantile(99)),
		MaxMillis: toMillis(r.histogram.Max()),
		Uptime:    time.Since(r.started).Truncate(time.Second).String(),
	}
}

// Middleware wraps a handler and records its latency
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		r.Record(time.Since(start))
	})
}
