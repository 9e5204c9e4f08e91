package codec

import (
	"fmt"
	"time"

	"github.com/signstream/vision-pipeline/internal/logger"
	"github.com/signstream/vision-pipeline/pkg/types"
)

// maxTargetAttempts bounds the quality-reduction retries when a target
// payload size is requested.
const maxTargetAttempts = 3

// AdaptiveCompressor encodes and decodes frames through the single best
// backend picked at construction. Every per-call failure falls back to
// the baseline codec; the global selection never changes at runtime.
type AdaptiveCompressor struct {
	registry *Registry
	selected types.Format
}

// NewAdaptiveCompressor selects a backend from the registry and returns
// a compressor bound to it for the process lifetime.
func NewAdaptiveCompressor(registry *Registry) *AdaptiveCompressor {
	c := &AdaptiveCompressor{registry: registry}
	c.selected = c.SelectBackend()
	logger.Info("Compressor", "selected backend: %s (available: %v)",
		c.selected, registry.AvailableNames())
	return c
}

// SelectBackend walks the fixed priority order and returns the first
// available format. If nothing probed available it returns the baseline
// unconditionally. Deterministic for a fixed availability set.
func (c *AdaptiveCompressor) SelectBackend() types.Format {
	for _, f := range c.registry.PriorityOrder() {
		if c.registry.IsAvailable(f) {
			return f
		}
	}
	return BaselineFormat
}

// Selected returns the backend chosen at construction
func (c *AdaptiveCompressor) Selected() types.Format {
	return c.selected
}

// Encode compresses a frame at the given quality. targetSize > 0 asks
// lossy backends to step quality down until the payload fits (bounded
// attempts). On any backend failure the call is retried once against
// the baseline codec; only a baseline failure is returned as an error.
func (c *AdaptiveCompressor) Encode(frame *types.Frame, quality int, targetSize int) (*types.EncodedPayload, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	format := c.selected
	fallback := false

	data, usedQuality, err := c.encodeWith(format, frame, quality, targetSize)
	if err != nil {
		logger.Warn("Compressor", "%s encode failed, falling back to %s: %v",
			format, BaselineFormat, err)
		format = BaselineFormat
		fallback = true
		data, usedQuality, err = c.encodeWith(format, frame, quality, targetSize)
		if err != nil {
			return nil, &BackendError{Backend: format.String(), Stage: "encode", Err: err}
		}
	}

	original := frame.Size()
	ratio := 1.0
	if len(data) > 0 {
		ratio = float64(original) / float64(len(data))
	}

	return &types.EncodedPayload{
		Data:           data,
		Format:         format,
		Width:          frame.Width,
		Height:         frame.Height,
		Channels:       frame.Channels,
		Quality:        usedQuality,
		OriginalSize:   original,
		CompressedSize: len(data),
		Ratio:          ratio,
		EncodeDuration: time.Since(start),
		Fallback:       fallback,
	}, nil
}

// encodeWith runs one backend, honoring the optional target size for
// lossy codecs by stepping the quality down.
func (c *AdaptiveCompressor) encodeWith(format types.Format, frame *types.Frame, quality, targetSize int) ([]byte, int, error) {
	backend, ok := c.registry.Backend(format)
	if !ok {
		return nil, 0, fmt.Errorf("no backend registered for %s", format)
	}

	data, err := backend.Encode(frame, quality)
	if err != nil {
		return nil, 0, err
	}

	if targetSize > 0 && backend.Lossy() {
		for attempt := 0; attempt < maxTargetAttempts && len(data) > targetSize && quality > 10; attempt++ {
			quality = quality * 2 / 3
			data, err = backend.Encode(frame, quality)
			if err != nil {
				return nil, 0, err
			}
		}
	}
	return data, quality, nil
}

// Decode reconstructs a frame from a payload, dispatching on its format
// tag. A failed decode is retried through the baseline codec; if that
// also fails the error propagates, since unrecoverable data must be
// visible to the caller.
func (c *AdaptiveCompressor) Decode(payload *types.EncodedPayload) (*types.Frame, error) {
	shape := Shape{Width: payload.Width, Height: payload.Height, Channels: payload.Channels}

	backend, ok := c.registry.Backend(payload.Format)
	if !ok {
		return nil, &BackendError{Backend: payload.Format.String(), Stage: "decode",
			Err: fmt.Errorf("no backend registered")}
	}

	frame, err := backend.Decode(payload.Data, shape)
	if err == nil {
		return frame, nil
	}

	if payload.Format != BaselineFormat {
		logger.Warn("Compressor", "%s decode failed, trying %s: %v",
			payload.Format, BaselineFormat, err)
		if baseline, ok := c.registry.Backend(BaselineFormat); ok {
			if frame, berr := baseline.Decode(payload.Data, shape); berr == nil {
				return frame, nil
			}
		}
	}

	return nil, &BackendError{Backend: payload.Format.String(), Stage: "decode", Err: err}
}
