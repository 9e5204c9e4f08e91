package optimizer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/signstream/vision-pipeline/internal/codec"
	"github.com/signstream/vision-pipeline/internal/governor"
	"github.com/signstream/vision-pipeline/internal/logger"
	"github.com/signstream/vision-pipeline/internal/metrics"
	"github.com/signstream/vision-pipeline/internal/quality"
	"github.com/signstream/vision-pipeline/internal/sysmon"
	"github.com/signstream/vision-pipeline/internal/workerpool"
	"github.com/signstream/vision-pipeline/pkg/types"
)

// aggregateWindow is how many recent frame observations feed each cycle
const aggregateWindow = 10

// Snapshot is the consolidated settings view exposed to status callers.
// Immutable once published; readers always see a complete value.
type Snapshot struct {
	Profile         types.QualityProfile `json:"profile"`
	AdaptiveFPS     float64              `json:"adaptive_fps"`
	FrameIntervalMs float64              `json:"frame_interval_ms"`
	Backend         string               `json:"compression_backend"`
	Workers         int                  `json:"worker_count"`
	Active          bool                 `json:"active"`
	Healthy         bool                 `json:"healthy"`
	Timestamp       time.Time            `json:"timestamp"`
}

// Loop is the periodic coordinator: it samples system metrics, feeds
// the governors, appends to the bounded history and republishes the
// settings snapshot. It owns all governor mutation; frame-processing
// callers only read published snapshots.
type Loop struct {
	cfg        types.Config
	sampler    sysmon.Sampler
	qualityMgr *quality.Manager
	frameRate  *governor.FrameRate
	poolGov    *workerpool.Governor
	compressor *codec.AdaptiveCompressor
	stats      *Stats
	mets       *metrics.Metrics
	hist       *history

	snapshot atomic.Pointer[Snapshot]
	healthy  atomic.Bool

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stop    sync.Once
	start   sync.Once
	started atomic.Bool

	cycle         uint64
	prevProcessed uint64
	prevDropped   uint64
	prevErrors    uint64
}

// New wires the loop to its collaborators. Nothing runs until Start.
func New(cfg types.Config, sampler sysmon.Sampler, qualityMgr *quality.Manager,
	frameRate *governor.FrameRate, poolGov *workerpool.Governor,
	compressor *codec.AdaptiveCompressor, stats *Stats, mets *metrics.Metrics) *Loop {

	cfg = cfg.Normalize()
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		cfg:        cfg,
		sampler:    sampler,
		qualityMgr: qualityMgr,
		frameRate:  frameRate,
		poolGov:    poolGov,
		compressor: compressor,
		stats:      stats,
		mets:       mets,
		hist:       newHistory(cfg.HistoryCapacity),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	l.healthy.Store(true)
	l.publish(false)
	return l
}

// Start launches the background loop. Safe to call once.
func (l *Loop) Start() {
	l.start.Do(func() {
		l.started.Store(true)
		go l.run()
	})
}

func (l *Loop) run() {
	defer close(l.done)

	logger.Info("Optimizer", "loop started (interval %v)", l.cfg.SampleInterval)
	ticker := time.NewTicker(l.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			l.publish(false)
			return
		case <-ticker.C:
			fatal, err := l.runCycle()
			if err == nil {
				continue
			}
			if fatal {
				// Cannot continue without a worker pool; surface
				// the condition through the snapshot and stop.
				logger.Error("Optimizer", "fatal: %v", err)
				l.healthy.Store(false)
				l.publish(false)
				return
			}
			logger.Warn("Optimizer", "cycle failed, backing off %v: %v",
				l.cfg.ErrorBackoff, err)
			if l.mets != nil {
				l.mets.CycleErrors.Add(1)
			}
			select {
			case <-l.ctx.Done():
				l.publish(false)
				return
			case <-time.After(l.cfg.ErrorBackoff):
			}
		}
	}
}

// runCycle executes one sampling cycle. The bool result marks errors
// the loop cannot survive (pool construction failure).
func (l *Loop) runCycle() (bool, error) {
	cpuPct, err := l.sampler.CPUPercent()
	if err != nil {
		return false, err
	}
	memPct, err := l.sampler.MemoryPercent()
	if err != nil {
		return false, err
	}

	win := l.stats.Aggregate(aggregateWindow)

	processedDelta := win.Processed - l.prevProcessed
	droppedDelta := win.Dropped - l.prevDropped
	errorsDelta := win.Errors - l.prevErrors
	l.prevProcessed = win.Processed
	l.prevDropped = win.Dropped
	l.prevErrors = win.Errors

	errorRate := 0.0
	if processedDelta+errorsDelta > 0 {
		errorRate = float64(errorsDelta) / float64(processedDelta+errorsDelta)
	}

	sample := types.PerformanceSample{
		AvgProcessingMs:  win.AvgProcessingMs,
		PeakProcessingMs: win.PeakProcessingMs,
		FPS:              win.FPS,
		CPUPercent:       cpuPct,
		MemoryPercent:    memPct,
		QueueDepth:       l.poolGov.Pool().QueueDepth(),
		DroppedFrames:    droppedDelta,
		ErrorRate:        errorRate,
		LatencyMs:        win.AvgLatencyMs,
		Timestamp:        time.Now(),
	}

	l.qualityMgr.Update(sample)

	l.cycle++
	if l.cycle%uint64(l.cfg.ResizeEvery) == 0 {
		resized, err := l.poolGov.MaybeResize(cpuPct)
		if err != nil {
			return true, err
		}
		if resized && l.mets != nil {
			l.mets.PoolResizes.Add(1)
		}
	}

	l.hist.append(sample)
	l.updateMetrics(sample)
	l.publish(true)
	return false, nil
}

func (l *Loop) updateMetrics(sample types.PerformanceSample) {
	if l.mets == nil {
		return
	}
	l.mets.SetCPUPercent(sample.CPUPercent)
	l.mets.SetMemoryPercent(sample.MemoryPercent)
	l.mets.SetAdaptiveFPS(l.frameRate.AdaptiveFPS())
	l.mets.QualityLevel.Store(uint64(l.qualityMgr.Level()))
	l.mets.WorkerCount.Store(uint64(l.poolGov.WorkerCount()))
}

// publish swaps in a fresh snapshot; readers never see a torn value
func (l *Loop) publish(active bool) {
	s := &Snapshot{
		Profile:         l.qualityMgr.Current(),
		AdaptiveFPS:     l.frameRate.AdaptiveFPS(),
		FrameIntervalMs: float64(l.frameRate.FrameInterval()) / float64(time.Millisecond),
		Backend:         l.compressor.Selected().String(),
		Workers:         l.poolGov.WorkerCount(),
		Active:          active,
		Healthy:         l.healthy.Load(),
		Timestamp:       time.Now(),
	}
	l.snapshot.Store(s)
}

// Snapshot returns the most recently published settings view
func (l *Loop) Snapshot() Snapshot {
	return *l.snapshot.Load()
}

// History returns the stored performance samples, oldest first
func (l *Loop) History() []types.PerformanceSample {
	return l.hist.snapshot()
}

// Healthy reports whether the loop has hit a fatal condition
func (l *Loop) Healthy() bool {
	return l.healthy.Load()
}

// Stop cancels the loop, waits for the in-flight cycle to finish and
// releases the worker pool. Idempotent.
func (l *Loop) Stop() {
	l.stop.Do(func() {
		l.cancel()
		if l.started.Load() {
			<-l.done
		}
		l.poolGov.Shutdown()
		logger.Info("Optimizer", "loop stopped")
	})
}
