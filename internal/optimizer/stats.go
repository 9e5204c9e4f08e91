package optimizer

import (
	"sync"
	"time"
)

// statsWindow bounds the per-frame timing window the loop aggregates
const statsWindow = 120

// Stats collects per-frame observations from the pipeline. Written by
// frame-processing callers, read once per cycle by the optimizer loop.
type Stats struct {
	mu sync.Mutex

	processingMs []float64
	latencyMs    []float64
	frameTimes   []time.Time

	processed uint64
	dropped   uint64
	errors    uint64
}

// NewStats creates an empty collector
func NewStats() *Stats {
	return &Stats{
		processingMs: make([]float64, 0, statsWindow),
		latencyMs:    make([]float64, 0, statsWindow),
		frameTimes:   make([]time.Time, 0, statsWindow),
	}
}

// RecordFrame records one successfully processed frame
func (s *Stats) RecordFrame(processingMs, latencyMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed++
	s.processingMs = appendBounded(s.processingMs, processingMs)
	s.latencyMs = appendBounded(s.latencyMs, latencyMs)
	s.frameTimes = append(s.frameTimes, time.Now())
	if len(s.frameTimes) > statsWindow {
		s.frameTimes = s.frameTimes[len(s.frameTimes)-statsWindow:]
	}
}

func appendBounded(w []float64, v float64) []float64 {
	w = append(w, v)
	if len(w) > statsWindow {
		w = w[len(w)-statsWindow:]
	}
	return w
}

// RecordDrop records a frame skipped or rejected by backpressure
func (s *Stats) RecordDrop() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// RecordError records an encode failure
func (s *Stats) RecordError() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

// Window is one aggregated view over the recent frame observations
type Window struct {
	AvgProcessingMs  float64
	PeakProcessingMs float64
	AvgLatencyMs     float64
	FPS              float64
	Processed        uint64 // Cumulative
	Dropped          uint64 // Cumulative
	Errors           uint64 // Cumulative
}

// Aggregate summarizes the most recent n frame observations
func (s *Stats) Aggregate(n int) Window {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := Window{Processed: s.processed, Dropped: s.dropped, Errors: s.errors}

	proc := tail(s.processingMs, n)
	for _, v := range proc {
		w.AvgProcessingMs += v
		if v > w.PeakProcessingMs {
			w.PeakProcessingMs = v
		}
	}
	if len(proc) > 0 {
		w.AvgProcessingMs /= float64(len(proc))
	}

	lat := tail(s.latencyMs, n)
	for _, v := range lat {
		w.AvgLatencyMs += v
	}
	if len(lat) > 0 {
		w.AvgLatencyMs /= float64(len(lat))
	}

	times := s.frameTimes
	if len(times) > n {
		times = times[len(times)-n:]
	}
	if len(times) >= 2 {
		span := times[len(times)-1].Sub(times[0]).Seconds()
		if span > 0 {
			w.FPS = float64(len(times)-1) / span
		}
	}
	return w
}

func tail(w []float64, n int) []float64 {
	if len(w) > n {
		return w[len(w)-n:]
	}
	return w
}
