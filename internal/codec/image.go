package codec

import (
	"fmt"
	"image"
	"image/color"

	"github.com/signstream/vision-pipeline/pkg/types"
)

// frameToImage converts a raw frame into a stdlib image.
// Grayscale frames map to *image.Gray, RGB frames to *image.RGBA.
func frameToImage(frame *types.Frame) (image.Image, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	switch frame.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, frame.Width, frame.Height))
		copy(img.Pix, frame.Data)
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
		src := frame.Data
		dst := img.Pix
		for i, j := 0, 0; i < len(src); i, j = i+3, j+4 {
			dst[j] = src[i]
			dst[j+1] = src[i+1]
			dst[j+2] = src[i+2]
			dst[j+3] = 0xFF
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", frame.Channels)
	}
}

// imageToFrame converts a decoded image back into a raw frame with the
// requested channel count.
func imageToFrame(img image.Image, channels int) (*types.Frame, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch channels {
	case 1:
		data := make([]byte, w*h)
		if gray, ok := img.(*image.Gray); ok && gray.Stride == w {
			copy(data, gray.Pix)
		} else {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
					data[y*w+x] = g.Y
				}
			}
		}
		return &types.Frame{Data: data, Width: w, Height: h, Channels: 1}, nil
	case 3:
		data := make([]byte, w*h*3)
		if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == w*4 {
			src := rgba.Pix
			for i, j := 0, 0; j < len(data); i, j = i+4, j+3 {
				data[j] = src[i]
				data[j+1] = src[i+1]
				data[j+2] = src[i+2]
			}
		} else {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
					off := (y*w + x) * 3
					data[off] = byte(r >> 8)
					data[off+1] = byte(g >> 8)
					data[off+2] = byte(b >> 8)
				}
			}
		}
		return &types.Frame{Data: data, Width: w, Height: h, Channels: 3}, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
}
