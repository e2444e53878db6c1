// Package soft is a CPU implementation of the buffer pool and pass executor.
// It is slow but exact, which makes it the backend of choice for tests and
// headless rendering.
package soft

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"golang.org/x/image/draw"

	"linux-datamosh/internal/mosh"
)

// Channels returns the number of float32 channels per pixel for a format.
func Channels(f mosh.Format) int {
	switch f {
	case mosh.FormatMotion:
		return 2
	case mosh.FormatDepth:
		return 1
	}
	return 4
}

// Buffer is a planar-interleaved float32 image.
type Buffer struct {
	w, h   int
	format mosh.Format
	Pix    []float32
}

func NewBuffer(w, h int, format mosh.Format) *Buffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Buffer{
		w:      w,
		h:      h,
		format: format,
		Pix:    make([]float32, w*h*Channels(format)),
	}
}

func (b *Buffer) Width() int          { return b.w }
func (b *Buffer) Height() int         { return b.h }
func (b *Buffer) Format() mosh.Format { return b.format }

// At returns the channels of pixel (x, y). The slice aliases Pix.
func (b *Buffer) At(x, y int) []float32 {
	n := Channels(b.format)
	i := (y*b.w + x) * n
	return b.Pix[i : i+n]
}

// Set writes v into pixel (x, y). Extra values are ignored.
func (b *Buffer) Set(x, y int, v ...float32) {
	copy(b.At(x, y), v)
}

// Fill sets every pixel to v.
func (b *Buffer) Fill(v ...float32) {
	n := Channels(b.format)
	for i := 0; i < len(b.Pix); i += n {
		copy(b.Pix[i:i+n], v)
	}
}

// Sample returns the nearest pixel to normalized coordinates (u, v),
// clamped to the edges.
func (b *Buffer) Sample(u, v float32) []float32 {
	if b.w == 0 || b.h == 0 {
		return make([]float32, Channels(b.format))
	}
	x := clampInt(int(math32.Floor(u*float32(b.w))), 0, b.w-1)
	y := clampInt(int(math32.Floor(v*float32(b.h))), 0, b.h-1)
	return b.At(x, y)
}

// FromImage converts img to a FormatColor buffer.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	b := NewBuffer(bounds.Dx(), bounds.Dy(), mosh.FormatColor)
	for i, p := range rgba.Pix {
		b.Pix[i] = float32(p) / 255
	}
	return b
}

// ToImage converts a color buffer to 8-bit RGBA. Non-color buffers are
// written channel by channel with missing channels set to opaque black.
func (b *Buffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.w, b.h))
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			px := b.At(x, y)
			c := [4]float32{0, 0, 0, 1}
			copy(c[:], px)
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(c[0]),
				G: toByte(c[1]),
				B: toByte(c[2]),
				A: toByte(c[3]),
			})
		}
	}
	return img
}

// NewMotionField builds a per-pixel motion buffer from fn, which returns
// the motion of pixel (x, y) in normalized screen units.
func NewMotionField(w, h int, fn func(x, y int) (dx, dy float32)) *Buffer {
	b := NewBuffer(w, h, mosh.FormatMotion)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := fn(x, y)
			b.Set(x, y, dx, dy)
		}
	}
	return b
}

// UniformMotion is a motion field where every pixel moves by (dx, dy).
func UniformMotion(w, h int, dx, dy float32) *Buffer {
	b := NewBuffer(w, h, mosh.FormatMotion)
	b.Fill(dx, dy)
	return b
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
