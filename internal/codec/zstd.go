package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/signstream/vision-pipeline/pkg/types"
)

// zstdBackend compresses raw pixel buffers with zstandard. Encoder and
// decoder are stateless for the EncodeAll/DecodeAll paths and safe for
// concurrent use by pool workers.
type zstdBackend struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdBackend() (Backend, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &zstdBackend{enc: enc, dec: dec}, nil
}

func (b *zstdBackend) Format() types.Format { return types.FormatZstd }
func (b *zstdBackend) Lossy() bool          { return false }

func (b *zstdBackend) Encode(frame *types.Frame, quality int) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	return b.enc.EncodeAll(frame.Data, nil), nil
}

func (b *zstdBackend) Decode(data []byte, shape Shape) (*types.Frame, error) {
	raw, err := b.dec.DecodeAll(data, nil)
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
