package types

import "time"

// PressureWeights are the coefficients of the quality manager's
// performance-pressure score. They are empirical tuning values carried
// over as configurable defaults.
type PressureWeights struct {
	Latency float64 // Weight of latency/target ratio
	CPU     float64 // Weight of cpu%/100
	Memory  float64 // Weight of memory%/100
	Errors  float64 // Weight of the raw error rate
}

// Config holds the construction-time options of the adaptive pipeline.
// Zero fields are replaced with documented defaults by Normalize.
type Config struct {
	MinFPS          float64         // Lower clamp of the adaptive frame rate
	MaxFPS          float64         // Upper clamp of the adaptive frame rate
	SafetyMargin    float64         // Fraction of the sustainable rate actually targeted
	SmoothingWeight float64         // EMA weight of the previous fps target
	WindowSize      int             // Frame rate governor sample window
	MinSamples      int             // Samples required before the governor adapts
	Cooldown        time.Duration   // Minimum time between profile transitions
	PressureWeights PressureWeights // Quality pressure score coefficients
	HistoryCapacity int             // Bounded performance history size
	WorkerMin       int             // Lower bound of the encode pool size
	WorkerMax       int             // Upper bound of the encode pool size (0 = logical cores)
	SampleInterval  time.Duration   // Optimizer loop cadence
	ErrorBackoff    time.Duration   // Sleep after a failed optimizer cycle
	ResizeEvery     int             // Pool resize check every Nth cycle
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		MinFPS:          10,
		MaxFPS:          30,
		SafetyMargin:    0.8,
		SmoothingWeight: 0.7,
		WindowSize:      60,
		MinSamples:      10,
		Cooldown:        5 * time.Second,
		PressureWeights: PressureWeights{Latency: 0.4, CPU: 0.3, Memory: 0.2, Errors: 0.1},
		HistoryCapacity: 300,
		WorkerMin:       1,
		WorkerMax:       0,
		SampleInterval:  time.Second,
		ErrorBackoff:    5 * time.Second,
		ResizeEvery:     60,
	}
}

// Normalize fills unset fields with defaults and fixes inverted bounds
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.MinFPS <= 0 {
		c.MinFPS = d.MinFPS
	}
	if c.MaxFPS <= 0 {
		c.MaxFPS = d.MaxFPS
	}
	if c.MaxFPS < c.MinFPS {
		c.MaxFPS = c.MinFPS
	}
	if c.SafetyMargin <= 0 || c.SafetyMargin > 1 {
		c.SafetyMargin = d.SafetyMargin
	}
	if c.SmoothingWeight <= 0 || c.SmoothingWeight >= 1 {
		c.SmoothingWeight = d.SmoothingWeight
	}
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.MinSamples <= 0 || c.MinSamples > c.WindowSize {
		c.MinSamples = d.MinSamples
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	w := c.PressureWeights
	if w.Latency+w.CPU+w.Memory+w.Errors <= 0 {
		c.PressureWeights = d.PressureWeights
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = d.HistoryCapacity
	}
	if c.WorkerMin <= 0 {
		c.WorkerMin = d.WorkerMin
	}
	if c.WorkerMax > 0 && c.WorkerMax < c.WorkerMin {
		c.WorkerMax = c.WorkerMin
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = d.SampleInterval
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = d.ErrorBackoff
	}
	if c.ResizeEvery <= 0 {
		c.ResizeEvery = d.ResizeEvery
	}
	return c
}
