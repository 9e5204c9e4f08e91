package governor

import (
	"testing"
	"time"

	"github.com/signstream/vision-pipeline/pkg/types"
)

func testConfig() types.Config {
	cfg := types.DefaultConfig()
	cfg.MinFPS = 10
	cfg.MaxFPS = 30
	return cfg
}

func assertClamped(t *testing.T, g *FrameRate, minFPS, maxFPS float64) {
	t.Helper()
	fps := g.AdaptiveFPS()
	if fps < minFPS || fps > maxFPS {
		t.Fatalf("adaptive fps %.2f outside [%.1f, %.1f]", fps, minFPS, maxFPS)
	}
}

func TestAdaptiveFPSStaysClampedForSlowFrames(t *testing.T) {
	g := NewFrameRate(testConfig())

	// 500ms per frame would imply 2fps, far below the floor
	for i := 0; i < 100; i++ {
		g.Record(500)
		assertClamped(t, g, 10, 30)
	}
	if fps := g.AdaptiveFPS(); fps != 10 {
		t.Errorf("sustained slow frames should settle at min fps, got %.2f", fps)
	}
}

func TestAdaptiveFPSStaysClampedForZeroTimes(t *testing.T) {
	g := NewFrameRate(testConfig())
	for i := 0; i < 100; i++ {
		g.Record(0)
		assertClamped(t, g, 10, 30)
	}
	// Converges to maxFPS * safetyMargin = 24
	if fps := g.AdaptiveFPS(); fps < 23.5 || fps > 24.5 {
		t.Errorf("instant frames should settle near 24 fps, got %.2f", fps)
	}
}

func TestAdaptiveFPSStaysClampedForHugeTimes(t *testing.T) {
	g := NewFrameRate(testConfig())
	for i := 0; i < 100; i++ {
		g.Record(1e9)
		assertClamped(t, g, 10, 30)
	}
}

func TestNoAdaptationBeforeMinSamples(t *testing.T) {
	g := NewFrameRate(testConfig())
	initial := g.AdaptiveFPS()

	for i := 0; i < 9; i++ {
		g.Record(500)
	}
	if fps := g.AdaptiveFPS(); fps != initial {
		t.Errorf("governor adapted with %d samples: %.2f -> %.2f",
			g.SampleCount(), initial, fps)
	}

	g.Record(500)
	if fps := g.AdaptiveFPS(); fps == initial {
		t.Error("governor should adapt once min samples reached")
	}
}

func TestWindowIsBounded(t *testing.T) {
	cfg := testConfig()
	g := NewFrameRate(cfg)
	for i := 0; i < cfg.WindowSize*3; i++ {
		g.Record(20)
	}
	if n := g.SampleCount(); n != cfg.WindowSize {
		t.Errorf("window holds %d samples, want %d", n, cfg.WindowSize)
	}
}

func TestSmoothingDampsSingleOutlier(t *testing.T) {
	g := NewFrameRate(testConfig())

	for i := 0; i < 30; i++ {
		g.Record(33) // ~30fps sustainable
	}
	before := g.AdaptiveFPS()

	g.Record(400) // one slow frame
	after := g.AdaptiveFPS()

	// EMA keeps 70% of the old target; a lone outlier must not crater it
	if after < before*0.6 {
		t.Errorf("single outlier dropped fps %.2f -> %.2f", before, after)
	}
}

func TestFrameInterval(t *testing.T) {
	g := NewFrameRate(testConfig())
	for i := 0; i < 50; i++ {
		g.Record(0)
	}
	// Settled target is ~24fps, so the interval is ~41.7ms
	interval := g.FrameInterval()
	if interval < 38*time.Millisecond || interval > 46*time.Millisecond {
		t.Errorf("interval %v, want ~42ms", interval)
	}
}

func TestShouldProcess(t *testing.T) {
	g := NewFrameRate(testConfig())

	if !g.ShouldProcess(time.Time{}) {
		t.Error("zero last-frame time must always process")
	}
	if !g.ShouldProcess(time.Now().Add(-time.Second)) {
		t.Error("a second of elapsed time must allow processing")
	}
	if g.ShouldProcess(time.Now()) {
		t.Error("no elapsed time must skip")
	}
}
