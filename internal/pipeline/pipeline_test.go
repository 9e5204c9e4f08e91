package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/signstream/vision-pipeline/internal/codec"
	"github.com/signstream/vision-pipeline/internal/governor"
	"github.com/signstream/vision-pipeline/internal/optimizer"
	"github.com/signstream/vision-pipeline/internal/quality"
	"github.com/signstream/vision-pipeline/internal/sysmon"
	"github.com/signstream/vision-pipeline/internal/workerpool"
	"github.com/signstream/vision-pipeline/pkg/types"
)

type testRig struct {
	pipeline   *Pipeline
	qualityMgr *quality.Manager
	poolGov    *workerpool.Governor
	stats      *optimizer.Stats
}

func newTestRig(t *testing.T, sampler sysmon.Sampler) *testRig {
	t.Helper()

	cfg := types.DefaultConfig()
	registry := codec.NewRegistry()
	compressor := codec.NewAdaptiveCompressor(registry)
	qualityMgr := quality.NewManager(cfg, nil)
	frameRate := governor.NewFrameRate(cfg)
	poolGov, err := workerpool.NewGovernor(sampler, cfg)
	if err != nil {
		t.Fatalf("new pool governor: %v", err)
	}
	t.Cleanup(poolGov.Shutdown)

	stats := optimizer.NewStats()
	return &testRig{
		pipeline:   New(frameRate, qualityMgr, poolGov, compressor, stats, nil),
		qualityMgr: qualityMgr,
		poolGov:    poolGov,
		stats:      stats,
	}
}

func testFrame(w, h, ch int) *types.Frame {
	data := make([]byte, w*h*ch)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return &types.Frame{
		Data: data, Width: w, Height: h, Channels: ch,
		Timestamp: time.Now(),
	}
}

func TestProcessEncodesFrame(t *testing.T) {
	rig := newTestRig(t, &sysmon.Static{Physical: 2, Logical: 4})

	payload, err := rig.pipeline.Process(testFrame(64, 48, 3))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(payload.Data) == 0 {
		t.Fatal("empty payload")
	}
	if payload.Ratio <= 0 {
		t.Errorf("ratio %.3f", payload.Ratio)
	}
	// Balanced profile downscales to 0.8
	if payload.Width >= 64 || payload.Height >= 48 {
		t.Errorf("frame not downscaled: %dx%d", payload.Width, payload.Height)
	}
	if w := rig.stats.Aggregate(10); w.Processed != 1 {
		t.Errorf("processed %d, want 1", w.Processed)
	}
}

func TestProcessRejectsInvalidFrame(t *testing.T) {
	rig := newTestRig(t, &sysmon.Static{Physical: 2, Logical: 4})

	bad := &types.Frame{Data: []byte{1, 2, 3}, Width: 10, Height: 10, Channels: 3}
	_, err := rig.pipeline.Process(bad)
	if err == nil {
		t.Fatal("invalid frame accepted")
	}
	if errors.Is(err, ErrSkipped) || errors.Is(err, ErrDropped) {
		t.Errorf("validation failure misreported as %v", err)
	}
	if w := rig.stats.Aggregate(10); w.Errors != 1 {
		t.Errorf("errors %d, want 1", w.Errors)
	}
}

func TestProcessSkipsWithinFrameInterval(t *testing.T) {
	rig := newTestRig(t, &sysmon.Static{Physical: 2, Logical: 4})

	if _, err := rig.pipeline.Process(testFrame(32, 24, 1)); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	// Immediately offering a second frame lands inside the ~33ms
	// interval of the 30fps startup target
	_, err := rig.pipeline.Process(testFrame(32, 24, 1))
	if !errors.Is(err, ErrSkipped) {
		t.Fatalf("second frame err %v, want ErrSkipped", err)
	}
	if w := rig.stats.Aggregate(10); w.Dropped != 1 {
		t.Errorf("dropped %d, want 1", w.Dropped)
	}
}

func TestProcessHonorsProfileFrameSkip(t *testing.T) {
	rig := newTestRig(t, &sysmon.Static{Physical: 2, Logical: 4})

	// Emergency pressure forces ultra_performance, which skips two
	// frames between processed ones
	rig.qualityMgr.Update(types.PerformanceSample{LatencyMs: 200})
	if got := rig.qualityMgr.Current().Name; got != types.ProfileUltraPerformance {
		t.Fatalf("profile %s, want %s", got, types.ProfileUltraPerformance)
	}

	var processed, skipped int
	for i := 0; i < 9; i++ {
		_, err := rig.pipeline.Process(testFrame(32, 24, 1))
		switch {
		case err == nil:
			processed++
		case errors.Is(err, ErrSkipped):
			skipped++
		default:
			t.Fatalf("frame %d: %v", i, err)
		}
		time.Sleep(40 * time.Millisecond) // Clear the rate governor interval
	}
	if processed != 3 || skipped != 6 {
		t.Errorf("processed=%d skipped=%d, want 3/6 with frame skip 2", processed, skipped)
	}
}

func TestProcessDropsOnSaturatedPool(t *testing.T) {
	rig := newTestRig(t, &sysmon.Static{Physical: 1, Logical: 2})

	// Occupy every worker and fill the queue so the encode submit
	// has nowhere to go
	release := make(chan struct{})
	pool := rig.poolGov.Pool()
	for pool.Submit(func() { <-release }) == nil {
	}
	defer close(release)

	_, err := rig.pipeline.Process(testFrame(32, 24, 1))
	if !errors.Is(err, ErrDropped) {
		t.Fatalf("err %v, want ErrDropped", err)
	}
	if w := rig.stats.Aggregate(10); w.Dropped != 1 {
		t.Errorf("dropped %d, want 1", w.Dropped)
	}
}
