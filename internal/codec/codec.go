package codec

import (
	"fmt"

	"github.com/signstream/vision-pipeline/internal/logger"
	"github.com/signstream/vision-pipeline/pkg/types"
)

// BaselineFormat is the codec guaranteed present in any runtime.
// Encode falls back to it per call; selection returns it when nothing
// else probes available.
const BaselineFormat = types.FormatJPEG

// Shape carries the original frame geometry needed by decode paths
// whose byte stream does not self-describe.
type Shape struct {
	Width    int
	Height   int
	Channels int
}

// Size returns the raw pixel buffer size the shape implies
func (s Shape) Size() int {
	return s.Width * s.Height * s.Channels
}

// Backend is the uniform encode/decode contract every codec implements
type Backend interface {
	// Format returns the tag stamped on payloads this backend produces
	Format() types.Format
	// Encode compresses a frame at the given quality (0-100)
	Encode(frame *types.Frame, quality int) ([]byte, error)
	// Decode reconstructs a frame from payload bytes
	Decode(data []byte, shape Shape) (*types.Frame, error)
	// Lossy reports whether the quality knob trades fidelity for size
	Lossy() bool
}

// BackendError wraps a codec failure with enough detail to tell which
// backend failed and at which stage.
type BackendError struct {
	Backend string // Backend name (format string)
	Stage   string // "probe", "encode" or "decode"
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Backend, e.Stage, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// priorityOrder is the fixed selection order: fast raw compressors
// first, ratio-optimal codecs later, the universal baseline last.
var priorityOrder = []types.Format{
	types.FormatLZ4,
	types.FormatSnappy,
	types.FormatZstd,
	types.FormatBrotli,
	types.FormatPNG,
	types.FormatJPEG,
}

// Registry enumerates codec backends and records which ones passed a
// startup self-test. Built once; a fresh probe requires a new Registry.
type Registry struct {
	backends  map[types.Format]Backend
	available map[types.Format]bool
}

// NewRegistry constructs every candidate backend and probes each with a
// cheap in-memory round trip. Probe failures are logged and recorded as
// unavailable for that backend only; they never propagate.
func NewRegistry() *Registry {
	r := &Registry{
		backends:  make(map[types.Format]Backend),
		available: make(map[types.Format]bool),
	}

	for _, construct := range []func() (Backend, error){
		newLZ4Backend,
		newSnappyBackend,
		newZstdBackend,
		newBrotliBackend,
		newPNGBackend,
		newJPEGBackend,
	} {
		b, err := construct()
		if err != nil {
			logger.Warn("Codec", "backend construction failed: %v", err)
			continue
		}
		r.backends[b.Format()] = b
		if err := probe(b); err != nil {
			logger.Warn("Codec", "backend %s unavailable: %v", b.Format(), err)
			continue
		}
		r.available[b.Format()] = true
		logger.Debug("Codec", "backend %s available", b.Format())
	}

	logger.Info("Codec", "probed %d backends, %d available",
		len(r.backends), len(r.available))
	return r
}

// probe self-tests a backend with a trivial frame
func probe(b Backend) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &BackendError{Backend: b.Format().String(), Stage: "probe",
				Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	frame := testFrame(8, 8, 3)
	data, err := b.Encode(frame, 75)
	if err != nil {
		return &BackendError{Backend: b.Format().String(), Stage: "probe", Err: err}
	}
	decoded, err := b.Decode(data, Shape{Width: 8, Height: 8, Channels: 3})
	if err != nil {
		return &BackendError{Backend: b.Format().String(), Stage: "probe", Err: err}
	}
	if decoded.Width != 8 || decoded.Height != 8 {
		return &BackendError{Backend: b.Format().String(), Stage: "probe",
			Err: fmt.Errorf("shape mismatch: got %dx%d", decoded.Width, decoded.Height)}
	}
	return nil
}

// testFrame builds a small gradient frame for probing
func testFrame(w, h, channels int) *types.Frame {
	data := make([]byte, w*h*channels)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return &types.Frame{Data: data, Width: w, Height: h, Channels: channels}
}

// Available returns a copy of the availability set
func (r *Registry) Available() map[types.Format]bool {
	out := make(map[types.Format]bool, len(r.available))
	for f, ok := range r.available {
		out[f] = ok
	}
	return out
}

// AvailableNames returns the available backend names in priority order
func (r *Registry) AvailableNames() []string {
	names := make([]string, 0, len(r.available))
	for _, f := range priorityOrder {
		if r.available[f] {
			names = append(names, f.String())
		}
	}
	return names
}

// PriorityOrder returns the fixed selection order
func (r *Registry) PriorityOrder() []types.Format {
	out := make([]types.Format, len(priorityOrder))
	copy(out, priorityOrder)
	return out
}

// Backend returns the backend registered for a format
func (r *Registry) Backend(f types.Format) (Backend, bool) {
	b, ok := r.backends[f]
	return b, ok
}

// IsAvailable reports whether a format passed its probe
func (r *Registry) IsAvailable(f types.Format) bool {
	return r.available[f]
}
