package types

import (
	"fmt"
	"time"
)

// Frame represents a raw video frame as an 8-bit pixel buffer.
// The buffer is owned by the caller; pipeline stages never retain it
// past the call that received it.
type Frame struct {
	Data      []byte    // Pixel data, len == Width*Height*Channels
	Width     int       // Frame width in pixels
	Height    int       // Frame height in pixels
	Channels  int       // 1 (grayscale) or 3 (RGB)
	Timestamp time.Time // Frame capture timestamp
	FrameNum  uint64    // Sequential frame number
}

// Size returns the expected byte size of the pixel buffer
func (f *Frame) Size() int {
	return f.Width * f.Height * f.Channels
}

// Validate checks that the frame dimensions and buffer agree
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if f.Channels != 1 && f.Channels != 3 {
		return fmt.Errorf("unsupported channel count %d", f.Channels)
	}
	if len(f.Data) != f.Size() {
		return fmt.Errorf("frame buffer size %d does not match %dx%dx%d",
			len(f.Data), f.Width, f.Height, f.Channels)
	}
	return nil
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	c := *f
	c.Data = data
	return &c
}

// Format identifies the codec that produced an encoded payload
type Format int

// Supported payload formats, ordered by selection priority
// (fast raw compressors first, ratio-optimal later, universal baseline last)
const (
	FormatLZ4 Format = iota
	FormatSnappy
	FormatZstd
	FormatBrotli
	FormatPNG
	FormatJPEG
)

var formatNames = map[Format]string{
	FormatLZ4:    "lz4",
	FormatSnappy: "snappy",
	FormatZstd:   "zstd",
	FormatBrotli: "brotli",
	FormatPNG:    "png",
	FormatJPEG:   "jpeg",
}

// String returns the canonical name of the format
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return FormatJPEG, fmt.Errorf("unknown format: %s", s)
}

// EncodedPayload is the immutable result of encoding a frame.
// The shape metadata is required by the raw/lossless decode paths.
type EncodedPayload struct {
	Data           []byte        // Encoded bytes
	Format         Format        // Codec that produced Data
	Width          int           // Original frame width
	Height         int           // Original frame height
	Channels       int           // Original channel count
	Quality        int           // Quality the encoder ran at (0-100)
	OriginalSize   int           // Raw pixel buffer size in bytes
	CompressedSize int           // len(Data)
	Ratio          float64       // OriginalSize / CompressedSize (1.0 when empty)
	EncodeDuration time.Duration // Wall time spent encoding
	Fallback       bool          // True if produced by the baseline after a primary failure
}
