package soft

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linux-datamosh/internal/mosh"
)

func stripes(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), 128, 255})
		}
	}
	return img
}

func TestPanCameraMotion(t *testing.T) {
	cam := NewPanCamera(stripes(64, 32), 64, 32, 1)

	src, motion := cam.Render(1, mosh.Left, false)
	assert.Equal(t, 64, src.Width())
	assert.Equal(t, 32, src.Height())
	assert.Equal(t, []float32{0, 0}, motion.At(10, 10), "first frame is still")

	_, motion = cam.Render(2, mosh.Left, false)
	want := -float32(cam.Offset(2, mosh.Left, false)-cam.Offset(1, mosh.Left, false)) / 64
	assert.InDelta(t, want, motion.At(0, 0)[0], 1e-6)
	assert.Equal(t, float32(0), motion.At(0, 0)[1])
}

func TestPanCameraStereoShift(t *testing.T) {
	cam := NewPanCamera(stripes(64, 32), 64, 32, 1)
	for n := uint64(1); n < 50; n++ {
		left := cam.Offset(n, mosh.Left, true)
		right := cam.Offset(n, mosh.Right, true)
		assert.Less(t, left, right, "frame %d", n)
		assert.GreaterOrEqual(t, left, 0)
		assert.LessOrEqual(t, right, 16)
	}
}

func TestPanCameraDrivesController(t *testing.T) {
	pool := NewPool()
	ctrl := mosh.NewController(pool, NewExecutor())
	cam := NewPanCamera(stripes(64, 32), 64, 32, 2)
	dst := NewBuffer(64, 32, mosh.FormatColor)

	ctrl.Start()
	for n := uint64(1); n <= 12; n++ {
		for _, eye := range []mosh.Eye{mosh.Left, mosh.Right} {
			src, motion := cam.Render(n, eye, true)
			ctrl.RenderFrame(mosh.Frame{
				Source:      src,
				Destination: dst,
				Motion:      motion,
				Counter:     n,
				Stereo:      true,
				Eye:         eye,
			})
		}
	}

	for _, eye := range []mosh.Eye{mosh.Left, mosh.Right} {
		snap := ctrl.Eye(eye)
		assert.Equal(t, mosh.Active, snap.Sequence)
		assert.Equal(t, 4, snap.DisplacementWidth)
		assert.Equal(t, 2, snap.DisplacementHeight)
	}
	assert.Equal(t, 4, pool.Live())

	require.NoError(t, ctrl.Close())
	assert.Zero(t, pool.Live())
	assert.Zero(t, pool.BadReleases())
}
