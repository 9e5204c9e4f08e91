package types

import "time"

// PerformanceSample is one observation of pipeline health, produced by
// the optimizer loop once per cycle and appended to a bounded history.
type PerformanceSample struct {
	AvgProcessingMs  float64   `json:"avg_processing_ms"`  // Mean per-frame processing time over the recent window
	PeakProcessingMs float64   `json:"peak_processing_ms"` // Worst per-frame processing time over the recent window
	FPS              float64   `json:"fps"`                // Measured frames per second
	CPUPercent       float64   `json:"cpu_percent"`        // System CPU utilization, 0-100
	MemoryPercent    float64   `json:"memory_percent"`     // System memory utilization, 0-100
	QueueDepth       int       `json:"queue_depth"`        // Pending work in the encode pool
	DroppedFrames    uint64    `json:"dropped_frames"`     // Frames skipped since the previous sample
	ErrorRate        float64   `json:"error_rate"`         // Encode errors / frames processed, 0-1
	LatencyMs        float64   `json:"latency_ms"`         // End-to-end frame latency in milliseconds
	Timestamp        time.Time `json:"timestamp"`          // When the sample was taken
}
