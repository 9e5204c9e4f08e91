package codec

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/signstream/vision-pipeline/pkg/types"
)

// snappyBackend compresses raw pixel buffers with snappy block encoding.
type snappyBackend struct{}

func newSnappyBackend() (Backend, error) {
	return &snappyBackend{}, nil
}

func (b *snappyBackend) Format() types.Format { return types.FormatSnappy }
func (b *snappyBackend) Lossy() bool          { return false }

func (b *snappyBackend) Encode(frame *types.Frame, quality int) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	return snappy.Encode(nil, frame.Data), nil
}

func (b *snappyBackend) Decode(data []byte, shape Shape) (*types.Frame, error) {
	raw, err := snappy.Decode(nil, data)
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
