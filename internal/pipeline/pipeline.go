// Package pipeline is the frame-processing front door. It applies the
// admission decisions of the rate governor and the active quality
// profile, runs encodes through the bounded worker pool, and feeds the
// observations every governor adapts on.
package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/signstream/vision-pipeline/internal/codec"
	"github.com/signstream/vision-pipeline/internal/governor"
	"github.com/signstream/vision-pipeline/internal/metrics"
	"github.com/signstream/vision-pipeline/internal/optimizer"
	"github.com/signstream/vision-pipeline/internal/quality"
	"github.com/signstream/vision-pipeline/internal/workerpool"
	"github.com/signstream/vision-pipeline/pkg/types"
)

// Expected non-failure outcomes of Process. Callers drop the frame and
// move on; neither indicates a pipeline fault.
var (
	ErrSkipped = errors.New("frame skipped by rate governor")
	ErrDropped = errors.New("frame dropped on pool backpressure")
)

// Pipeline encodes frames under the currently published settings.
// Safe for concurrent use; admission is serialized, encoding runs on
// the worker pool.
type Pipeline struct {
	frameRate  *governor.FrameRate
	qualityMgr *quality.Manager
	poolGov    *workerpool.Governor
	compressor *codec.AdaptiveCompressor
	stats      *optimizer.Stats
	mets       *metrics.Metrics

	mu        sync.Mutex
	lastFrame time.Time
	skipped   int // Frames skipped since the last processed one
}

// New wires the front door to the shared governors and collectors
func New(frameRate *governor.FrameRate, qualityMgr *quality.Manager,
	poolGov *workerpool.Governor, compressor *codec.AdaptiveCompressor,
	stats *optimizer.Stats, mets *metrics.Metrics) *Pipeline {

	return &Pipeline{
		frameRate:  frameRate,
		qualityMgr: qualityMgr,
		poolGov:    poolGov,
		compressor: compressor,
		stats:      stats,
		mets:       mets,
	}
}

// Process runs one frame through admission, scaling and encoding.
// Returns ErrSkipped when the rate governor or the profile's frame
// skip rejects the frame, ErrDropped when the pool is saturated.
func (p *Pipeline) Process(frame *types.Frame) (*types.EncodedPayload, error) {
	if p.mets != nil {
		p.mets.FramesIn.Add(1)
	}
	if err := frame.Validate(); err != nil {
		p.recordError()
		return nil, err
	}

	profile := p.qualityMgr.Current()
	if !p.admit(profile.FrameSkip) {
		p.stats.RecordDrop()
		if p.mets != nil {
			p.mets.FramesSkipped.Add(1)
		}
		return nil, ErrSkipped
	}

	scaled, err := quality.Scale(frame, profile.ResolutionScale)
	if err != nil {
		p.recordError()
		return nil, err
	}

	var payload *types.EncodedPayload
	var encErr error
	start := time.Now()
	if err := p.poolGov.Pool().Do(func() {
		payload, encErr = p.compressor.Encode(scaled, profile.EncodeQuality, 0)
	}); err != nil {
		p.stats.RecordDrop()
		if p.mets != nil {
			p.mets.FramesDropped.Add(1)
		}
		return nil, ErrDropped
	}
	if encErr != nil {
		p.recordError()
		return nil, encErr
	}

	elapsed := time.Since(start)
	elapsedMs := float64(elapsed) / float64(time.Millisecond)
	latencyMs := elapsedMs
	if !frame.Timestamp.IsZero() {
		latencyMs = float64(time.Since(frame.Timestamp)) / float64(time.Millisecond)
	}

	p.frameRate.Record(elapsedMs)
	p.stats.RecordFrame(elapsedMs, latencyMs)
	if p.mets != nil {
		p.mets.FramesEncoded.Add(1)
		p.mets.UpdateEncodeLatency(elapsed)
		p.mets.SetCompressionRatio(payload.Ratio)
		if payload.Fallback {
			p.mets.FallbackEncodes.Add(1)
		}
	}
	return payload, nil
}

// admit decides whether the frame proceeds. The profile's frame skip
// runs first (process every skip+1th frame), then the rate governor's
// interval check.
func (p *Pipeline) admit(frameSkip int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frameSkip > 0 && p.skipped < frameSkip {
		p.skipped++
		return false
	}
	if !p.frameRate.ShouldProcess(p.lastFrame) {
		return false
	}
	p.skipped = 0
	p.lastFrame = time.Now()
	return true
}

func (p *Pipeline) recordError() {
	p.stats.RecordError()
	if p.mets != nil {
		p.mets.EncodeErrors.Add(1)
	}
}
