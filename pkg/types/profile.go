package types

// QualityProfile describes one named operating point of the pipeline.
// Profiles form a fixed ordered set, strictest (cheapest) first; the
// quality manager moves between adjacent profiles one step at a time.
type QualityProfile struct {
	Name            string  `json:"name"`              // Profile name (e.g. "balanced")
	EncodeQuality   int     `json:"encode_quality"`    // Encoder quality knob, 0-100
	ResolutionScale float64 `json:"resolution_scale"`  // Downscale factor applied before encoding, 0-1
	FrameSkip       int     `json:"frame_skip"`        // Process every (FrameSkip+1)th frame
	ModelComplexity int     `json:"model_complexity"`  // Downstream inference complexity knob (0=lite, 2=full)
	TargetFPS       float64 `json:"target_fps"`        // Frame rate this profile aims for
	TargetLatencyMs float64 `json:"target_latency_ms"` // Per-frame latency budget in milliseconds
}

// Profile names, strictest first
const (
	ProfileUltraPerformance = "ultra_performance"
	ProfileHighPerformance  = "high_performance"
	ProfileBalanced         = "balanced"
	ProfileHighQuality      = "high_quality"
)

// DefaultProfiles returns the built-in profile ladder, strictest first.
// The values are operational tuning points, not correctness requirements.
func DefaultProfiles() []QualityProfile {
	return []QualityProfile{
		{
			Name:            ProfileUltraPerformance,
			EncodeQuality:   40,
			ResolutionScale: 0.5,
			FrameSkip:       2,
			ModelComplexity: 0,
			TargetFPS:       15,
			TargetLatencyMs: 30,
		},
		{
			Name:            ProfileHighPerformance,
			EncodeQuality:   55,
			ResolutionScale: 0.65,
			FrameSkip:       1,
			ModelComplexity: 0,
			TargetFPS:       20,
			TargetLatencyMs: 40,
		},
		{
			Name:            ProfileBalanced,
			EncodeQuality:   70,
			ResolutionScale: 0.8,
			FrameSkip:       0,
			ModelComplexity: 1,
			TargetFPS:       25,
			TargetLatencyMs: 50,
		},
		{
			Name:            ProfileHighQuality,
			EncodeQuality:   85,
			ResolutionScale: 1.0,
			FrameSkip:       0,
			ModelComplexity: 2,
			TargetFPS:       30,
			TargetLatencyMs: 80,
		},
	}
}
