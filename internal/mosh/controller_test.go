package mosh_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linux-datamosh/internal/mosh"
	"linux-datamosh/internal/soft"
)

type call struct {
	blit bool
	pass mosh.PassID
	in   mosh.PassInputs
	src  mosh.Buffer
	dst  mosh.Buffer
}

// recorder forwards to the CPU executor and remembers every call.
type recorder struct {
	inner *soft.Executor
	calls []call
}

func (r *recorder) Blit(src, dst mosh.Buffer) {
	r.calls = append(r.calls, call{blit: true, src: src, dst: dst})
	r.inner.Blit(src, dst)
}

func (r *recorder) Execute(pass mosh.PassID, in mosh.PassInputs, u mosh.Uniforms, dst mosh.Buffer) {
	r.calls = append(r.calls, call{pass: pass, in: in, dst: dst})
	r.inner.Execute(pass, in, u, dst)
}

func (r *recorder) passes() []mosh.PassID {
	var out []mosh.PassID
	for _, c := range r.calls {
		if !c.blit {
			out = append(out, c.pass)
		}
	}
	return out
}

func (r *recorder) reset() { r.calls = nil }

// failingPool refuses every acquisition once fail is set.
type failingPool struct {
	*soft.Pool
	fail bool
}

var errOutOfMemory = errors.New("out of video memory")

func (p *failingPool) Acquire(w, h int, f mosh.Format) (mosh.Buffer, error) {
	if p.fail {
		return nil, errOutOfMemory
	}
	return p.Pool.Acquire(w, h, f)
}

type rig struct {
	pool *soft.Pool
	exec *recorder
	ctrl *mosh.Controller
}

func newRig(opts ...mosh.Option) *rig {
	pool := soft.NewPool()
	exec := &recorder{inner: soft.NewExecutor()}
	return &rig{
		pool: pool,
		exec: exec,
		ctrl: mosh.NewController(pool, exec, opts...),
	}
}

// gradient returns a color buffer whose pixels differ from each other and
// from frame to frame.
func gradient(w, h int, shift int) *soft.Buffer {
	b := soft.NewBuffer(w, h, mosh.FormatColor)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y,
				float32((x+shift)%w)/float32(w),
				float32(y)/float32(h),
				float32((x+y+shift)%7)/7,
				1)
		}
	}
	return b
}

func frame(src *soft.Buffer, counter uint64) (mosh.Frame, *soft.Buffer) {
	dst := soft.NewBuffer(src.Width(), src.Height(), mosh.FormatColor)
	return mosh.Frame{
		Source:      src,
		Destination: dst,
		Motion:      soft.UniformMotion(src.Width(), src.Height(), 0.01, 0),
		Counter:     counter,
	}, dst
}

func assertBalanced(t *testing.T, r *rig) {
	t.Helper()
	for _, e := range []mosh.Eye{mosh.Left, mosh.Right} {
		snap := r.ctrl.Eye(e)
		assert.LessOrEqual(t, snap.Live, 2, "%s eye live buffers", e)
		assert.Equal(t, snap.Live, snap.Acquired-snap.Released, "%s eye acquire/release balance", e)
	}
	left, right := r.ctrl.Eye(mosh.Left), r.ctrl.Eye(mosh.Right)
	assert.Equal(t, left.Live+right.Live, r.pool.Live())
	assert.Zero(t, r.pool.BadReleases())
}

func TestStartThenOneFrameIsActive(t *testing.T) {
	r := newRig()
	src := gradient(64, 32, 0)

	r.ctrl.Start()
	assert.Equal(t, mosh.Priming, r.ctrl.Eye(mosh.Left).Sequence)

	f, _ := frame(src, 1)
	r.ctrl.RenderFrame(f)
	assert.Equal(t, mosh.Active, r.ctrl.Eye(mosh.Left).Sequence)
	assertBalanced(t, r)
}

func TestScenario640x360(t *testing.T) {
	params := mosh.EffectParameters{
		BlockSize:     16,
		Entropy:       0.5,
		VelocityScale: 0.8,
		NoiseContrast: 1.0,
		Diffusion:     0.4,
	}
	r := newRig(mosh.WithParameters(params))
	r.ctrl.Start()

	src := gradient(640, 360, 0)
	f, dst := frame(src, 1)
	r.ctrl.RenderFrame(f)

	snap := r.ctrl.Eye(mosh.Left)
	assert.Equal(t, mosh.Active, snap.Sequence)
	assert.Equal(t, 40, snap.DisplacementWidth)
	assert.Equal(t, 22, snap.DisplacementHeight)
	assert.Equal(t, src.Pix, dst.Pix, "priming frame shows pre-effect content")
	assert.Equal(t, []mosh.PassID{mosh.PassInit}, r.exec.passes())
	assertBalanced(t, r)

	for counter := uint64(2); counter <= 3; counter++ {
		r.exec.reset()
		before := r.ctrl.Eye(mosh.Left)

		f, _ := frame(gradient(640, 360, int(counter)), counter)
		r.ctrl.RenderFrame(f)

		after := r.ctrl.Eye(mosh.Left)
		assert.Equal(t, mosh.Active, after.Sequence)
		assert.Equal(t, []mosh.PassID{mosh.PassAccumulate, mosh.PassMosh}, r.exec.passes())
		assert.Equal(t, before.Acquired+2, after.Acquired, "one new work and one new displacement buffer")
		assert.Equal(t, before.Released+2, after.Released)
		assert.True(t, after.HasLastUpdatedFrame)
		assert.Equal(t, counter, after.LastUpdatedFrame)
		assertBalanced(t, r)
	}
}

func TestActivePassInputs(t *testing.T) {
	r := newRig()
	r.ctrl.Start()

	f, _ := frame(gradient(64, 64, 0), 1)
	r.ctrl.RenderFrame(f)

	var oldWork, oldDisp mosh.Buffer
	for _, c := range r.exec.calls {
		if !c.blit && c.pass == mosh.PassInit {
			oldDisp = c.dst
		}
		if c.blit && c.src == f.Source && c.dst != f.Destination {
			oldWork = c.dst
		}
	}
	require.NotNil(t, oldWork)
	require.NotNil(t, oldDisp)

	r.exec.reset()
	f2, _ := frame(gradient(64, 64, 3), 2)
	r.ctrl.RenderFrame(f2)

	var acc, mo *call
	for i := range r.exec.calls {
		c := &r.exec.calls[i]
		switch {
		case c.blit:
		case c.pass == mosh.PassAccumulate:
			acc = c
		case c.pass == mosh.PassMosh:
			mo = c
		}
	}
	require.NotNil(t, acc)
	require.NotNil(t, mo)

	assert.Same(t, oldDisp, acc.in.Main, "accumulate reads the previous displacement")
	assert.Same(t, f2.Motion, acc.in.Motion)
	assert.Same(t, f2.Source, mo.in.Main)
	assert.Same(t, oldWork, mo.in.Work, "mosh reads the pre-update work buffer")
	assert.Same(t, acc.dst, mo.in.Displacement, "mosh reads the new displacement")

	last := r.exec.calls[len(r.exec.calls)-1]
	assert.True(t, last.blit)
	assert.Same(t, mo.dst, last.src, "destination shows the updated work buffer")
	assert.False(t, r.pool.IsLive(oldWork))
	assert.False(t, r.pool.IsLive(oldDisp))
}

func TestIdleIsPassThrough(t *testing.T) {
	r := newRig()
	for counter := uint64(1); counter <= 5; counter++ {
		src := gradient(48, 24, int(counter))
		f, dst := frame(src, counter)
		r.ctrl.RenderFrame(f)

		assert.Equal(t, src.Pix, dst.Pix)
		snap := r.ctrl.Eye(mosh.Left)
		assert.Equal(t, mosh.Idle, snap.Sequence)
		assert.True(t, snap.HasWork)
		assert.False(t, snap.HasDisplacement)
		assertBalanced(t, r)
	}
	assert.Empty(t, r.exec.passes())
}

func TestFrameOnceGuard(t *testing.T) {
	r := newRig()
	r.ctrl.Start()
	f, _ := frame(gradient(64, 48, 0), 1)
	r.ctrl.RenderFrame(f)

	f1, dst1 := frame(gradient(64, 48, 5), 2)
	r.ctrl.RenderFrame(f1)
	before := r.ctrl.Eye(mosh.Left)

	r.exec.reset()
	f2, dst2 := frame(gradient(64, 48, 9), 2)
	r.ctrl.RenderFrame(f2)
	after := r.ctrl.Eye(mosh.Left)

	assert.Empty(t, r.exec.passes())
	assert.Equal(t, before.Acquired, after.Acquired)
	assert.Equal(t, before.Released, after.Released)
	assert.Equal(t, dst1.Pix, dst2.Pix)
	assertBalanced(t, r)
}

func TestSecondCallOnPrimingFrameDoesNotAdvance(t *testing.T) {
	r := newRig()
	r.ctrl.Start()

	f, dst1 := frame(gradient(32, 32, 0), 7)
	r.ctrl.RenderFrame(f)
	r.exec.reset()

	f2, dst2 := frame(gradient(32, 32, 4), 7)
	r.ctrl.RenderFrame(f2)

	assert.Empty(t, r.exec.passes())
	assert.Equal(t, dst1.Pix, dst2.Pix)
}

func TestResolutionChange(t *testing.T) {
	r := newRig()
	r.ctrl.Start()

	for counter, size := range [][2]int{{640, 360}, {640, 360}, {320, 180}, {320, 180}} {
		f, _ := frame(gradient(size[0], size[1], counter), uint64(counter+1))
		r.ctrl.RenderFrame(f)
		snap := r.ctrl.Eye(mosh.Left)
		assert.Equal(t, size[0]/16, snap.DisplacementWidth)
		assert.Equal(t, size[1]/16, snap.DisplacementHeight)
		assert.Equal(t, size[0], snap.WorkWidth)
		assert.Equal(t, size[1], snap.WorkHeight)
		assert.Equal(t, 2, r.pool.Live())
		assertBalanced(t, r)
	}
}

func TestStopMidActive(t *testing.T) {
	r := newRig()
	r.ctrl.Start()
	for counter := uint64(1); counter <= 4; counter++ {
		f, _ := frame(gradient(64, 64, int(counter)), counter)
		r.ctrl.RenderFrame(f)
	}

	r.ctrl.Stop()
	r.exec.reset()
	src := gradient(64, 64, 11)
	f, dst := frame(src, 5)
	r.ctrl.RenderFrame(f)

	snap := r.ctrl.Eye(mosh.Left)
	assert.Equal(t, mosh.Idle, snap.Sequence)
	assert.Equal(t, src.Pix, dst.Pix, "no residual smear")
	assert.True(t, snap.HasDisplacement, "displacement stays until priming resumes")
	assert.Empty(t, r.exec.passes())

	var work mosh.Buffer
	for _, c := range r.exec.calls {
		if c.blit && c.src == src && c.dst != dst {
			work = c.dst
		}
	}
	require.NotNil(t, work)
	assert.Equal(t, src.Pix, work.(*soft.Buffer).Pix, "work buffer is a clean copy")
	assertBalanced(t, r)
}

func TestStartRestartsRamp(t *testing.T) {
	r := newRig()
	r.ctrl.Start()
	for counter := uint64(1); counter <= 3; counter++ {
		f, _ := frame(gradient(32, 32, 0), counter)
		r.ctrl.RenderFrame(f)
	}

	r.ctrl.Start()
	assert.Equal(t, mosh.Priming, r.ctrl.Eye(mosh.Left).Sequence)

	r.exec.reset()
	f, _ := frame(gradient(32, 32, 0), 4)
	r.ctrl.RenderFrame(f)
	assert.Equal(t, []mosh.PassID{mosh.PassInit}, r.exec.passes())
	assert.Equal(t, mosh.Active, r.ctrl.Eye(mosh.Left).Sequence)
	assertBalanced(t, r)
}

func TestStereoEyesArePartitioned(t *testing.T) {
	r := newRig()
	r.ctrl.Start()

	src := gradient(64, 32, 0)
	f, _ := frame(src, 1)
	f.Stereo = true
	f.Eye = mosh.Right
	r.ctrl.RenderFrame(f)

	assert.Equal(t, mosh.Active, r.ctrl.Eye(mosh.Right).Sequence)
	left := r.ctrl.Eye(mosh.Left)
	assert.Equal(t, mosh.Priming, left.Sequence)
	assert.Zero(t, left.Acquired)

	f, _ = frame(src, 1)
	f.Stereo = true
	f.Eye = mosh.Left
	r.ctrl.RenderFrame(f)
	assert.Equal(t, mosh.Active, r.ctrl.Eye(mosh.Left).Sequence)
	assert.Equal(t, 4, r.pool.Live())
	assertBalanced(t, r)
}

func TestMonoAlwaysTargetsLeft(t *testing.T) {
	r := newRig()
	f, _ := frame(gradient(16, 16, 0), 1)
	f.Eye = mosh.Right
	r.ctrl.RenderFrame(f)

	assert.Equal(t, 1, r.ctrl.Eye(mosh.Left).Live)
	assert.Zero(t, r.ctrl.Eye(mosh.Right).Live)
}

func TestDisableReleasesEverything(t *testing.T) {
	r := newRig()
	r.ctrl.Start()
	for counter := uint64(1); counter <= 3; counter++ {
		for _, e := range []mosh.Eye{mosh.Left, mosh.Right} {
			f, _ := frame(gradient(32, 32, 0), counter)
			f.Stereo, f.Eye = true, e
			r.ctrl.RenderFrame(f)
		}
	}
	require.Equal(t, 4, r.pool.Live())

	require.NoError(t, r.ctrl.Close())
	assert.Zero(t, r.pool.Live())
	assert.False(t, r.ctrl.Enabled())
	assert.Equal(t, mosh.Idle, r.ctrl.Eye(mosh.Left).Sequence)
	assertBalanced(t, r)

	src := gradient(32, 32, 3)
	f, dst := frame(src, 4)
	r.ctrl.RenderFrame(f)
	assert.Equal(t, src.Pix, dst.Pix)
	assert.Zero(t, r.pool.Live())

	r.ctrl.Enable()
	r.ctrl.RenderFrame(f)
	assert.Equal(t, 1, r.pool.Live())
}

func TestInvalidSourceIsNoOp(t *testing.T) {
	r := newRig()
	r.ctrl.Start()

	empty := soft.NewBuffer(0, 0, mosh.FormatColor)
	r.ctrl.RenderFrame(mosh.Frame{
		Source:      empty,
		Destination: soft.NewBuffer(8, 8, mosh.FormatColor),
		Counter:     1,
	})
	r.ctrl.RenderFrame(mosh.Frame{Destination: soft.NewBuffer(8, 8, mosh.FormatColor), Counter: 2})
	r.ctrl.RenderFrame(mosh.Frame{Source: gradient(8, 8, 0), Counter: 3})

	snap := r.ctrl.Eye(mosh.Left)
	assert.Equal(t, mosh.Priming, snap.Sequence)
	assert.Zero(t, snap.Acquired)
	assert.Zero(t, r.pool.Live())
}

func TestPoolFailureFallsBackToPassThrough(t *testing.T) {
	pool := &failingPool{Pool: soft.NewPool()}
	ctrl := mosh.NewController(pool, soft.NewExecutor())

	src := gradient(32, 32, 0)
	f, _ := frame(src, 1)
	ctrl.RenderFrame(f)
	ctrl.Start()
	f, _ = frame(src, 2)
	ctrl.RenderFrame(f)

	pool.fail = true
	for counter := uint64(3); counter <= 5; counter++ {
		next := gradient(32, 32, int(counter))
		f, dst := frame(next, counter)
		ctrl.RenderFrame(f)
		assert.NotEqual(t, make([]float32, len(dst.Pix)), dst.Pix, "destination is always written")
	}
	snap := ctrl.Eye(mosh.Left)
	assert.Equal(t, 2, snap.Live)
	assert.Equal(t, snap.Live, snap.Acquired-snap.Released)
	assert.Equal(t, 2, pool.Live())

	ctrl.Stop()
	f, dst := frame(src, 6)
	ctrl.RenderFrame(f)
	assert.Equal(t, src.Pix, dst.Pix)
	assert.Equal(t, 2, pool.Live())
}

func TestParametersApplyOnNextFrame(t *testing.T) {
	r := newRig()
	p := mosh.DefaultParameters()
	p.BlockSize = 32

	r.ctrl.SetParameters(p)
	assert.Equal(t, 16, r.ctrl.Parameters().BlockSize)

	r.ctrl.Start()
	f, _ := frame(gradient(128, 64, 0), 1)
	r.ctrl.RenderFrame(f)
	assert.Equal(t, 32, r.ctrl.Parameters().BlockSize)

	snap := r.ctrl.Eye(mosh.Left)
	assert.Equal(t, 4, snap.DisplacementWidth)
	assert.Equal(t, 2, snap.DisplacementHeight)
}

func TestBlockSizeIsClamped(t *testing.T) {
	p := mosh.DefaultParameters()
	p.BlockSize = 1
	r := newRig(mosh.WithParameters(p))
	r.ctrl.Start()

	f, _ := frame(gradient(640, 360, 0), 1)
	r.ctrl.RenderFrame(f)

	snap := r.ctrl.Eye(mosh.Left)
	assert.Equal(t, 160, snap.DisplacementWidth)
	assert.Equal(t, 90, snap.DisplacementHeight)
}

func TestPrimingShowsDisplacement(t *testing.T) {
	r := newRig(mosh.WithPrimingOutput(mosh.PrimingShowDisplacement))
	r.ctrl.Start()

	f, dst := frame(gradient(64, 64, 0), 1)
	r.ctrl.RenderFrame(f)

	last := r.exec.calls[len(r.exec.calls)-1]
	require.True(t, last.blit)
	assert.Equal(t, mosh.FormatDisplacement, last.src.Format())
	assert.Equal(t, make([]float32, len(dst.Pix)), dst.Pix, "seeded field is zero")
}

func TestRandomCommandSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := newRig()
	prev := mosh.Idle
	sizes := [][2]int{{64, 32}, {48, 48}, {20, 12}}
	counter := uint64(0)

	for step := 0; step < 400; step++ {
		switch op := rng.Intn(10); {
		case op == 0:
			r.ctrl.Start()
			prev = mosh.Priming
		case op == 1:
			r.ctrl.Stop()
			prev = mosh.Idle
		default:
			if rng.Intn(4) != 0 {
				counter++
			}
			size := sizes[rng.Intn(len(sizes))]
			f, _ := frame(gradient(size[0], size[1], step), counter)
			f.Stereo = rng.Intn(2) == 0
			f.Eye = mosh.Eye(rng.Intn(2))
			r.ctrl.RenderFrame(f)
		}

		for _, e := range []mosh.Eye{mosh.Left, mosh.Right} {
			seq := r.ctrl.Eye(e).Sequence
			assert.Contains(t, []mosh.Sequence{mosh.Idle, mosh.Priming, mosh.Active}, seq)
			if prev == mosh.Idle {
				assert.NotEqual(t, mosh.Active, seq, "active without priming")
			}
			if seq != mosh.Idle {
				snap := r.ctrl.Eye(e)
				if seq == mosh.Active {
					assert.True(t, snap.HasWork)
					assert.True(t, snap.HasDisplacement)
				}
			}
		}
		assertBalanced(t, r)
	}
}
