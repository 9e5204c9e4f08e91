package quality

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/signstream/vision-pipeline/pkg/types"
)

// Scale downscales a frame by the profile's resolution factor.
// A factor at or above 1.0 returns the input frame untouched.
func Scale(frame *types.Frame, factor float64) (*types.Frame, error) {
	if factor >= 1.0 {
		return frame, nil
	}
	if factor <= 0 {
		return nil, fmt.Errorf("invalid resolution scale %f", factor)
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	w := int(float64(frame.Width) * factor)
	h := int(float64(frame.Height) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	switch frame.Channels {
	case 1:
		src := &image.Gray{
			Pix:    frame.Data,
			Stride: frame.Width,
			Rect:   image.Rect(0, 0, frame.Width, frame.Height),
		}
		dst := image.NewGray(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		return &types.Frame{
			Data:      dst.Pix,
			Width:     w,
			Height:    h,
			Channels:  1,
			Timestamp: frame.Timestamp,
			FrameNum:  frame.FrameNum,
		}, nil
	case 3:
		src := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
		for i, j := 0, 0; i < len(frame.Data); i, j = i+3, j+4 {
			src.Pix[j] = frame.Data[i]
			src.Pix[j+1] = frame.Data[i+1]
			src.Pix[j+2] = frame.Data[i+2]
			src.Pix[j+3] = 0xFF
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		out := make([]byte, w*h*3)
		for i, j := 0, 0; j < len(out); i, j = i+4, j+3 {
			out[j] = dst.Pix[i]
			out[j+1] = dst.Pix[i+1]
			out[j+2] = dst.Pix[i+2]
		}
		return &types.Frame{
			Data:      out,
			Width:     w,
			Height:    h,
			Channels:  3,
			Timestamp: frame.Timestamp,
			FrameNum:  frame.FrameNum,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", frame.Channels)
	}
}
