package soft

import (
	"image"
	"math"

	"linux-datamosh/internal/convert"
	"linux-datamosh/internal/mosh"
)

// PanCamera sweeps a crop window back and forth across an oversized copy of
// a still image and reports the matching uniform motion. Each eye sees the
// same sweep shifted horizontally.
type PanCamera struct {
	canvas *image.RGBA
	w, h   int
	margin int
	speed  float64

	prev [2]int
	seen [2]bool
}

func NewPanCamera(src image.Image, w, h int, speed float64) *PanCamera {
	margin := max(w/8, 1)
	return &PanCamera{
		canvas: convert.Fill(src, w+2*margin, h+2*margin),
		w:      w,
		h:      h,
		margin: margin,
		speed:  speed,
	}
}

// Offset is the crop x of frame n for eye, in canvas pixels.
func (c *PanCamera) Offset(n uint64, eye mosh.Eye, stereo bool) int {
	x := float64(c.margin) * (1 + 0.8*math.Sin(float64(n)*0.05*c.speed))
	if stereo {
		shift := float64(c.margin) * 0.1
		if eye == mosh.Left {
			x -= shift
		} else {
			x += shift
		}
	}
	return clampInt(int(math.Round(x)), 0, 2*c.margin)
}

// Render returns the source and motion buffers of frame n for eye. The first
// frame of an eye has zero motion.
func (c *PanCamera) Render(n uint64, eye mosh.Eye, stereo bool) (*Buffer, *Buffer) {
	x := c.Offset(n, eye, stereo)
	b := c.canvas.Bounds()
	crop := c.canvas.SubImage(image.Rect(b.Min.X+x, b.Min.Y+c.margin, b.Min.X+x+c.w, b.Min.Y+c.margin+c.h))
	src := FromImage(crop)

	var dx float32
	if c.seen[eye] {
		// The camera moved right by x - prev, so the scene moved left.
		dx = -float32(x-c.prev[eye]) / float32(c.w)
	}
	c.prev[eye], c.seen[eye] = x, true
	return src, UniformMotion(c.w, c.h, dx, 0)
}
