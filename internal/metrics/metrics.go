package metrics

import (
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline metrics
type Metrics struct {
	// Frame counters
	FramesIn      atomic.Uint64
	FramesEncoded atomic.Uint64
	FramesSkipped atomic.Uint64
	FramesDropped atomic.Uint64

	// Error counters
	EncodeErrors    atomic.Uint64
	FallbackEncodes atomic.Uint64
	CycleErrors     atomic.Uint64

	// Adaptive state gauges
	AdaptiveFPS      atomic.Uint64 // float64 bits
	QualityLevel     atomic.Uint64 // Position in the profile ladder
	WorkerCount      atomic.Uint64
	PoolResizes      atomic.Uint64
	CPUPercent       atomic.Uint64 // float64 bits
	MemoryPercent    atomic.Uint64 // float64 bits
	EncodeLatencyMs  atomic.Uint64
	CompressionRatio atomic.Uint64 // float64 bits

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name string
		help string
		val  *atomic.Uint64
	}{
		{"pipeline_frames_in_total", "Total frames offered to the pipeline", &m.FramesIn},
		{"pipeline_frames_encoded_total", "Total frames encoded", &m.FramesEncoded},
		{"pipeline_frames_skipped_total", "Total frames skipped by the frame rate governor", &m.FramesSkipped},
		{"pipeline_frames_dropped_total", "Total frames dropped on pool backpressure", &m.FramesDropped},
		{"pipeline_encode_errors_total", "Total encode failures", &m.EncodeErrors},
		{"pipeline_fallback_encodes_total", "Total encodes served by the baseline codec", &m.FallbackEncodes},
		{"pipeline_cycle_errors_total", "Total failed optimizer cycles", &m.CycleErrors},
		{"pipeline_quality_level", "Current quality profile position (0 = strictest)", &m.QualityLevel},
		{"pipeline_worker_count", "Current encode pool size", &m.WorkerCount},
		{"pipeline_pool_resizes_total", "Total worker pool resizes", &m.PoolResizes},
		{"pipeline_encode_latency_ms", "Most recent encode latency in milliseconds", &m.EncodeLatencyMs},
	}
	for _, c := range counters {
		val := c.val
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(val.Load()) },
		))
	}

	gauges := []struct {
		name string
		help string
		val  *atomic.Uint64
	}{
		{"pipeline_adaptive_fps", "Current adaptive target frame rate", &m.AdaptiveFPS},
		{"pipeline_cpu_percent", "Sampled system CPU utilization", &m.CPUPercent},
		{"pipeline_memory_percent", "Sampled system memory utilization", &m.MemoryPercent},
		{"pipeline_compression_ratio", "Most recent compression ratio", &m.CompressionRatio},
	}
	for _, g := range gauges {
		val := g.val
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return math.Float64frombits(val.Load()) },
		))
	}
}

// SetAdaptiveFPS stores the current adaptive frame rate
func (m *Metrics) SetAdaptiveFPS(fps float64) {
	m.AdaptiveFPS.Store(math.Float64bits(fps))
}

// SetCPUPercent stores the sampled CPU utilization
func (m *Metrics) SetCPUPercent(v float64) {
	m.CPUPercent.Store(math.Float64bits(v))
}

// SetMemoryPercent stores the sampled memory utilization
func (m *Metrics) SetMemoryPercent(v float64) {
	m.MemoryPercent.Store(math.Float64bits(v))
}

// SetCompressionRatio stores the most recent compression ratio
func (m *Metrics) SetCompressionRatio(r float64) {
	m.CompressionRatio.Store(math.Float64bits(r))
}

// UpdateEncodeLatency stores the most recent encode duration
func (m *Metrics) UpdateEncodeLatency(d time.Duration) {
	m.EncodeLatencyMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
