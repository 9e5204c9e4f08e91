package codec

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/signstream/vision-pipeline/pkg/types"
)

func newTestFrame(t *testing.T, w, h, channels int) *types.Frame {
	t.Helper()
	data := make([]byte, w*h*channels)
	for i := range data {
		data[i] = byte((i*7 + i/w) % 256)
	}
	return &types.Frame{Data: data, Width: w, Height: h, Channels: channels}
}

func TestRegistryProbesAllBackends(t *testing.T) {
	r := NewRegistry()

	for _, f := range r.PriorityOrder() {
		if !r.IsAvailable(f) {
			t.Errorf("backend %s did not probe available", f)
		}
	}
	if len(r.AvailableNames()) != len(r.PriorityOrder()) {
		t.Errorf("expected %d available backends, got %v",
			len(r.PriorityOrder()), r.AvailableNames())
	}
}

func TestPriorityOrderBaselineLast(t *testing.T) {
	r := NewRegistry()
	order := r.PriorityOrder()
	if order[len(order)-1] != BaselineFormat {
		t.Fatalf("baseline %s must be last in priority order, got %v",
			BaselineFormat, order)
	}
}

func TestRoundTripShape(t *testing.T) {
	r := NewRegistry()

	for _, channels := range []int{1, 3} {
		frame := newTestFrame(t, 16, 12, channels)
		for _, f := range r.PriorityOrder() {
			backend, ok := r.Backend(f)
			if !ok {
				t.Fatalf("no backend for %s", f)
			}

			data, err := backend.Encode(frame, 75)
			if err != nil {
				t.Fatalf("%s encode (%d ch): %v", f, channels, err)
			}
			decoded, err := backend.Decode(data, Shape{Width: 16, Height: 12, Channels: channels})
			if err != nil {
				t.Fatalf("%s decode (%d ch): %v", f, channels, err)
			}
			if decoded.Width != frame.Width || decoded.Height != frame.Height ||
				decoded.Channels != frame.Channels {
				t.Errorf("%s round trip changed shape: %dx%dx%d -> %dx%dx%d",
					f, frame.Width, frame.Height, frame.Channels,
					decoded.Width, decoded.Height, decoded.Channels)
			}

			// Lossless paths must preserve pixels exactly
			if !backend.Lossy() && !bytes.Equal(decoded.Data, frame.Data) {
				t.Errorf("%s is lossless but pixels changed", f)
			}
		}
	}
}

func TestSelectBackendDeterministic(t *testing.T) {
	r := NewRegistry()
	c := NewAdaptiveCompressor(r)

	first := c.SelectBackend()
	for i := 0; i < 5; i++ {
		if got := c.SelectBackend(); got != first {
			t.Fatalf("selection not deterministic: %s then %s", first, got)
		}
	}
	if !r.IsAvailable(first) {
		t.Fatalf("selected %s is not in the availability set", first)
	}
}

func TestSelectBackendEmptyAvailability(t *testing.T) {
	r := NewRegistry()
	r.available = map[types.Format]bool{}

	c := &AdaptiveCompressor{registry: r}
	if got := c.SelectBackend(); got != BaselineFormat {
		t.Fatalf("empty availability must select baseline %s, got %s", BaselineFormat, got)
	}
}

// failBackend always errors, simulating a broken optional codec
type failBackend struct{}

func (failBackend) Format() types.Format { return types.FormatLZ4 }
func (failBackend) Lossy() bool          { return false }
func (failBackend) Encode(*types.Frame, int) ([]byte, error) {
	return nil, fmt.Errorf("simulated encode failure")
}
func (failBackend) Decode([]byte, Shape) (*types.Frame, error) {
	return nil, fmt.Errorf("simulated decode failure")
}

func TestEncodeFallsBackToBaseline(t *testing.T) {
	r := NewRegistry()
	r.backends[types.FormatLZ4] = failBackend{}
	r.available = map[types.Format]bool{types.FormatLZ4: true}

	c := NewAdaptiveCompressor(r)
	if c.Selected() != types.FormatLZ4 {
		t.Fatalf("expected failing backend selected, got %s", c.Selected())
	}

	payload, err := c.Encode(newTestFrame(t, 16, 16, 3), 75, 0)
	if err != nil {
		t.Fatalf("encode should succeed via fallback: %v", err)
	}
	if payload.Format != BaselineFormat {
		t.Errorf("fallback payload tagged %s, want %s", payload.Format, BaselineFormat)
	}
	if !payload.Fallback {
		t.Error("payload should be marked as fallback")
	}
}

func TestEncodePayloadMetrics(t *testing.T) {
	r := NewRegistry()
	c := NewAdaptiveCompressor(r)
	frame := newTestFrame(t, 32, 24, 3)

	payload, err := c.Encode(frame, 80, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if payload.OriginalSize != frame.Size() {
		t.Errorf("original size %d, want %d", payload.OriginalSize, frame.Size())
	}
	if payload.CompressedSize != len(payload.Data) {
		t.Errorf("compressed size %d, want %d", payload.CompressedSize, len(payload.Data))
	}
	if payload.Ratio <= 0 {
		t.Errorf("ratio must be positive, got %f", payload.Ratio)
	}
	if payload.EncodeDuration < 0 {
		t.Errorf("negative encode duration %v", payload.EncodeDuration)
	}
}

func TestEncodeHonorsTargetSize(t *testing.T) {
	r := NewRegistry()
	c := &AdaptiveCompressor{registry: r, selected: types.FormatJPEG}
	frame := newTestFrame(t, 64, 64, 3)

	unbounded, err := c.Encode(frame, 95, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	bounded, err := c.Encode(frame, 95, unbounded.CompressedSize/2)
	if err != nil {
		t.Fatalf("encode with target: %v", err)
	}
	if bounded.Quality >= unbounded.Quality {
		t.Errorf("target size should reduce quality: %d -> %d",
			unbounded.Quality, bounded.Quality)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	r := NewRegistry()
	c := NewAdaptiveCompressor(r)
	frame := newTestFrame(t, 20, 20, 3)

	payload, err := c.Encode(frame, 75, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := c.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Width != frame.Width || decoded.Height != frame.Height ||
		decoded.Channels != frame.Channels {
		t.Errorf("round trip changed shape: got %dx%dx%d",
			decoded.Width, decoded.Height, decoded.Channels)
	}
}

func TestDecodeFailurePropagates(t *testing.T) {
	r := NewRegistry()
	c := NewAdaptiveCompressor(r)

	payload := &types.EncodedPayload{
		Data:     []byte{0xde, 0xad, 0xbe, 0xef},
		Format:   BaselineFormat,
		Width:    8,
		Height:   8,
		Channels: 3,
	}
	_, err := c.Decode(payload)
	if err == nil {
		t.Fatal("decoding garbage must fail")
	}
	var berr *BackendError
	if !errors.As(err, &berr) {
		t.Fatalf("expected BackendError, got %T: %v", err, err)
	}
	if berr.Stage != "decode" {
		t.Errorf("error stage %q, want decode", berr.Stage)
	}
}
