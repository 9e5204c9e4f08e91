package codec

import (
	"bytes"
	"image/jpeg"

	"github.com/signstream/vision-pipeline/pkg/types"
)

// jpegBackend is the universally available baseline codec. It wraps the
// standard library encoder, so it can never be missing at runtime.
type jpegBackend struct{}

func newJPEGBackend() (Backend, error) {
	return &jpegBackend{}, nil
}

func (b *jpegBackend) Format() types.Format { return types.FormatJPEG }
func (b *jpegBackend) Lossy() bool          { return true }

func (b *jpegBackend) Encode(frame *types.Frame, quality int) ([]byte, error) {
	img, err := frameToImage(frame)
	if err != nil {
		return nil, err
	}
	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *jpegBackend) Decode(data []byte, shape Shape) (*types.Frame, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return imageToFrame(img, shape.Channels)
}
