package codec

import (
	"bytes"
	"image/png"

	"github.com/signstream/vision-pipeline/pkg/types"
)

// pngBackend is the lossless image codec. The quality knob selects the
// compression effort rather than fidelity.
type pngBackend struct{}

func newPNGBackend() (Backend, error) {
	return &pngBackend{}, nil
}

func (b *pngBackend) Format() types.Format { return types.FormatPNG }
func (b *pngBackend) Lossy() bool          { return false }

func (b *pngBackend) Encode(frame *types.Frame, quality int) ([]byte, error) {
	img, err := frameToImage(frame)
	if err != nil {
		return nil, err
	}
	level := png.DefaultCompression
	if quality < 50 {
		level = png.BestSpeed
	} else if quality > 90 {
		level = png.BestCompression
	}
	enc := &png.Encoder{CompressionLevel: level}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *pngBackend) Decode(data []byte, shape Shape) (*types.Frame, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return imageToFrame(img, shape.Channels)
}
