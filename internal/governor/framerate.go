package governor

import (
	"sync"
	"time"

	"github.com/signstream/vision-pipeline/internal/logger"
	"github.com/signstream/vision-pipeline/pkg/types"
)

// recentWindow is how many of the newest samples feed the sustainable
// rate estimate on each recomputation.
const recentWindow = 10

// FrameRate maintains a rolling window of per-frame processing times
// and derives a sustainable target frame rate from it. The derived
// interval is the queueless backpressure mechanism: upstream simply
// skips frames arriving faster than the interval allows.
type FrameRate struct {
	mu sync.Mutex

	window     []float64 // Most recent processing times, ms
	windowSize int
	minSamples int

	minFPS       float64
	maxFPS       float64
	safetyMargin float64
	smoothing    float64 // Weight of the previous target in the EMA

	adaptiveFPS float64
}

// NewFrameRate creates a governor from the pipeline config
func NewFrameRate(cfg types.Config) *FrameRate {
	cfg = cfg.Normalize()
	return &FrameRate{
		window:       make([]float64, 0, cfg.WindowSize),
		windowSize:   cfg.WindowSize,
		minSamples:   cfg.MinSamples,
		minFPS:       cfg.MinFPS,
		maxFPS:       cfg.MaxFPS,
		safetyMargin: cfg.SafetyMargin,
		smoothing:    cfg.SmoothingWeight,
		adaptiveFPS:  cfg.MaxFPS,
	}
}

// Record appends one per-frame processing time and recomputes the
// adaptive target once enough samples have accumulated.
func (g *FrameRate) Record(processingMs float64) {
	if processingMs < 0 {
		processingMs = 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.window = append(g.window, processingMs)
	if len(g.window) > g.windowSize {
		g.window = g.window[len(g.window)-g.windowSize:]
	}
	if len(g.window) < g.minSamples {
		return
	}

	recent := g.window
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	var total float64
	for _, v := range recent {
		total += v
	}
	avg := total / float64(len(recent))

	// Sustainable rate with a safety margin, smoothed against the
	// previous target to damp jitter, then clamped.
	sustainable := g.maxFPS
	if avg > 0 {
		sustainable = 1000.0 / avg
		if sustainable > g.maxFPS {
			sustainable = g.maxFPS
		}
	}
	target := sustainable * g.safetyMargin
	target = g.smoothing*g.adaptiveFPS + (1-g.smoothing)*target

	if target < g.minFPS {
		target = g.minFPS
	} else if target > g.maxFPS {
		target = g.maxFPS
	}

	if target != g.adaptiveFPS {
		logger.Debug("FrameRate", "adaptive fps %.1f -> %.1f (avg %.1fms over %d samples)",
			g.adaptiveFPS, target, avg, len(recent))
	}
	g.adaptiveFPS = target
}

// AdaptiveFPS returns the current target frame rate
func (g *FrameRate) AdaptiveFPS() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.adaptiveFPS
}

// FrameInterval returns the current target spacing between frames
func (g *FrameRate) FrameInterval() time.Duration {
	fps := g.AdaptiveFPS()
	if fps <= 0 {
		fps = 1
	}
	return time.Duration(float64(time.Second) / fps)
}

// ShouldProcess reports whether enough time has elapsed since the last
// processed frame for the next one to be processed.
func (g *FrameRate) ShouldProcess(lastFrame time.Time) bool {
	if lastFrame.IsZero() {
		return true
	}
	return time.Since(lastFrame) >= g.FrameInterval()
}

// SampleCount returns how many processing times are currently windowed
func (g *FrameRate) SampleCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.window)
}
