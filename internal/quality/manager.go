package quality

import (
	"sync"
	"time"

	"github.com/signstream/vision-pipeline/internal/logger"
	"github.com/signstream/vision-pipeline/pkg/types"
)

// Pressure thresholds. Above emergency the manager jumps straight to
// the strictest profile; between step and emergency it degrades one
// profile; below relax it recovers one profile.
const (
	emergencyPressure = 1.5
	stepDownPressure  = 1.0
	stepUpPressure    = 0.7
)

// Manager is a state machine over the fixed ordered profile set,
// strictest first. Transitions move one step at a time, gated by a
// cooldown, so adjacent profiles cannot flap. The emergency jump to
// the strictest profile is the only multi-step transition and the only
// one that ignores the cooldown.
type Manager struct {
	mu sync.Mutex

	profiles   []types.QualityProfile // Strictest (cheapest) first
	index      int
	weights    types.PressureWeights
	cooldown   time.Duration
	lastChange time.Time

	transitions uint64
	now         func() time.Time // Injectable clock for tests
}

// NewManager builds a manager over the given profiles (the default
// ladder when nil), starting at the balanced profile when present.
func NewManager(cfg types.Config, profiles []types.QualityProfile) *Manager {
	cfg = cfg.Normalize()
	if len(profiles) == 0 {
		profiles = types.DefaultProfiles()
	}

	start := len(profiles) - 1
	for i, p := range profiles {
		if p.Name == types.ProfileBalanced {
			start = i
			break
		}
	}

	return &Manager{
		profiles: profiles,
		index:    start,
		weights:  cfg.PressureWeights,
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}
}

// Pressure computes the weighted performance-pressure score of a sample
// against the current profile's latency budget.
func (m *Manager) Pressure(sample types.PerformanceSample) float64 {
	m.mu.Lock()
	target := m.profiles[m.index].TargetLatencyMs
	w := m.weights
	m.mu.Unlock()

	if target <= 0 {
		target = 1
	}
	return w.Latency*(sample.LatencyMs/target) +
		w.CPU*(sample.CPUPercent/100) +
		w.Memory*(sample.MemoryPercent/100) +
		w.Errors*sample.ErrorRate
}

// Update evaluates one sample and possibly transitions the profile.
// Returns true when the profile changed.
func (m *Manager) Update(sample types.PerformanceSample) bool {
	pressure := m.Pressure(sample)

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.index
	switch {
	case pressure > emergencyPressure:
		next = 0
	case pressure > stepDownPressure:
		if m.index > 0 {
			next = m.index - 1
		}
	case pressure < stepUpPressure:
		if m.index < len(m.profiles)-1 {
			next = m.index + 1
		}
	}

	if next == m.index {
		return false
	}

	// Emergency degrade skips the cooldown; every other transition
	// waits it out to prevent flapping between adjacent profiles.
	if pressure <= emergencyPressure &&
		!m.lastChange.IsZero() && m.now().Sub(m.lastChange) < m.cooldown {
		return false
	}

	old := m.profiles[m.index]
	m.index = next
	m.lastChange = m.now()
	m.transitions++

	logger.Info("Quality", "profile %s -> %s (pressure %.2f, latency %.1fms, cpu %.1f%%, mem %.1f%%, errors %.3f)",
		old.Name, m.profiles[next].Name, pressure,
		sample.LatencyMs, sample.CPUPercent, sample.MemoryPercent, sample.ErrorRate)
	return true
}

// Current returns a read-only snapshot of the active profile
func (m *Manager) Current() types.QualityProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[m.index]
}

// Transitions returns how many profile changes have occurred
func (m *Manager) Transitions() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions
}

// Level returns the current position in the ladder (0 = strictest)
func (m *Manager) Level() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}
