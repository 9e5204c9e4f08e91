package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/signstream/vision-pipeline/pkg/types"
)

// brotliBackend compresses raw pixel buffers with brotli. Best ratio of
// the raw compressors; the quality knob maps to encoder effort.
type brotliBackend struct{}

func newBrotliBackend() (Backend, error) {
	return &brotliBackend{}, nil
}

func (b *brotliBackend) Format() types.Format { return types.FormatBrotli }
func (b *brotliBackend) Lossy() bool          { return false }

func (b *brotliBackend) Encode(frame *types.Frame, quality int) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	level := quality * brotli.BestCompression / 100
	if level < brotli.BestSpeed {
		level = brotli.BestSpeed
	}
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, level)
	if _, err := w.Write(frame.Data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *brotliBackend) Decode(data []byte, shape Shape) (*types.Frame, error) {
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, err
	}
	if len(raw) != shape.Size() {
		return nil, fmt.Errorf("decompressed size %d does not match shape %dx%dx%d",
			len(raw), shape.Width, shape.Height, shape.Channels)
	}
	return &types.Frame{Data: raw, Width: shape.Width, Height: shape.Height,
		Channels: shape.Channels}, nil
}
