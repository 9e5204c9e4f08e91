package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/signstream/vision-pipeline/pkg/types"
)

// lz4Backend compresses raw pixel buffers with the LZ4 frame format.
// Fastest of the raw compressors, first in the priority order.
type lz4Backend struct{}

func newLZ4Backend() (Backend, error) {
	return &lz4Backend{}, nil
}

func (b *lz4Backend) Format() types.Format { return types.FormatLZ4 }
func (b *lz4Backend) Lossy() bool          { return false }

func (b *lz4Backend) Encode(frame *types.Frame, quality int) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(frame.Data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *lz4Backend) Decode(data []byte, shape Shape) (*types.Frame, error) {
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
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
