package quality

import (
	"testing"

	"github.com/signstream/vision-pipeline/pkg/types"
)

func grayFrame(w, h int, value byte) *types.Frame {
	data := make([]byte, w*h)
	for i := range data {
		data[i] = value
	}
	return &types.Frame{Data: data, Width: w, Height: h, Channels: 1}
}

func rgbFrame(w, h int) *types.Frame {
	data := make([]byte, w*h*3)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return &types.Frame{Data: data, Width: w, Height: h, Channels: 3}
}

func TestScaleIdentity(t *testing.T) {
	frame := rgbFrame(32, 24)
	scaled, err := Scale(frame, 1.0)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if scaled != frame {
		t.Error("factor 1.0 should return the input frame untouched")
	}
}

func TestScaleHalf(t *testing.T) {
	frame := rgbFrame(32, 24)
	scaled, err := Scale(frame, 0.5)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if scaled.Width != 16 || scaled.Height != 12 {
		t.Errorf("scaled to %dx%d, want 16x12", scaled.Width, scaled.Height)
	}
	if err := scaled.Validate(); err != nil {
		t.Errorf("scaled frame invalid: %v", err)
	}
	if scaled.Channels != 3 {
		t.Errorf("channels changed to %d", scaled.Channels)
	}
}

func TestScaleGrayPreservesUniformValue(t *testing.T) {
	frame := grayFrame(40, 40, 128)
	scaled, err := Scale(frame, 0.25)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if scaled.Width != 10 || scaled.Height != 10 {
		t.Fatalf("scaled to %dx%d, want 10x10", scaled.Width, scaled.Height)
	}
	for i, v := range scaled.Data {
		if v != 128 {
			t.Fatalf("uniform frame changed at %d: %d", i, v)
		}
	}
}

func TestScaleNeverBelowOnePixel(t *testing.T) {
	frame := grayFrame(4, 4, 10)
	scaled, err := Scale(frame, 0.1)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if scaled.Width < 1 || scaled.Height < 1 {
		t.Errorf("degenerate scale produced %dx%d", scaled.Width, scaled.Height)
	}
}

func TestScaleRejectsInvalidFactor(t *testing.T) {
	if _, err := Scale(rgbFrame(8, 8), 0); err == nil {
		t.Error("zero factor must be rejected")
	}
	if _, err := Scale(rgbFrame(8, 8), -1); err == nil {
		t.Error("negative factor must be rejected")
	}
}
