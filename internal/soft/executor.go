package soft

import (
	"github.com/chewxy/math32"

	"linux-datamosh/internal/mosh"
	"linux-datamosh/internal/utils"
)

// Executor runs the effect passes on CPU buffers.
type Executor struct{}

func NewExecutor() *Executor { return &Executor{} }

// Blit copies src into dst, resampling with nearest filtering when the sizes
// differ. Channels missing from src are written as zero, except alpha of a
// color destination which is written as one.
func (e *Executor) Blit(msrc, mdst mosh.Buffer) {
	src, dst, ok := buffers(msrc, mdst)
	if !ok {
		return
	}
	if src.w == dst.w && src.h == dst.h && src.format == dst.format {
		copy(dst.Pix, src.Pix)
		return
	}

	sn, dn := Channels(src.format), Channels(dst.format)
	for y := 0; y < dst.h; y++ {
		v := (float32(y) + 0.5) / float32(dst.h)
		for x := 0; x < dst.w; x++ {
			u := (float32(x) + 0.5) / float32(dst.w)
			s := src.Sample(u, v)
			d := dst.At(x, y)
			for c := 0; c < dn; c++ {
				switch {
				case c < sn:
					d[c] = s[c]
				case dst.format == mosh.FormatColor && c == 3:
					d[c] = 1
				default:
					d[c] = 0
				}
			}
		}
	}
}

func (e *Executor) Execute(pass mosh.PassID, in mosh.PassInputs, u mosh.Uniforms, mdst mosh.Buffer) {
	dst, ok := mdst.(*Buffer)
	if !ok || dst == nil {
		utils.Error("soft: %s pass into foreign buffer %T", pass, mdst)
		return
	}
	switch pass {
	case mosh.PassInit:
		initPass(dst)
	case mosh.PassAccumulate:
		accumulatePass(asBuffer(in.Main), asBuffer(in.Motion), u, dst)
	case mosh.PassMosh:
		moshPass(asBuffer(in.Main), asBuffer(in.Work), asBuffer(in.Displacement), u, dst)
	default:
		utils.Error("soft: unknown pass %d", pass)
	}
}

func initPass(dst *Buffer) {
	for i := range dst.Pix {
		dst.Pix[i] = 0
	}
}

// accumulatePass updates the per-block displacement. Channels of the result:
// xy motion in normalized units, a random seed driven by motion, and the
// accumulated motion amount.
func accumulatePass(prev, motion *Buffer, u mosh.Uniforms, dst *Buffer) {
	screenW := float32(dst.w) * u.BlockSize
	screenH := float32(dst.h) * u.BlockSize

	for by := 0; by < dst.h; by++ {
		v := (float32(by) + 0.5) / float32(dst.h)
		for bx := 0; bx < dst.w; bx++ {
			uu := (float32(bx) + 0.5) / float32(dst.w)

			seed := float32(0)
			acc := float32(0)
			if prev != nil {
				p := prev.Sample(uu, v)
				seed, acc = p[2], p[3]
			}
			r1 := uvRandom(uu+10+seed, v)
			r2 := uvRandom(uu+20+seed, v)
			r3 := uvRandom(uu+30+seed, v)

			var mx, my float32
			if motion != nil {
				m := motion.Sample(uu, v)
				mx, my = m[0], m[1]
			}
			mx *= u.Velocity * screenW
			my *= u.Velocity * screenH

			mx += (r1 - 0.5) * u.Diffusion
			my += (r2 - 0.5) * u.Diffusion

			mx = math32.Floor(mx + 0.5)
			my = math32.Floor(my + 0.5)

			mvLen := math32.Hypot(mx, my)
			if mvLen > u.BlockSize {
				acc = r3*0.5 + u.Quality
			} else {
				acc += math32.Min(mvLen, u.BlockSize) * 0.005
				acc += r3 * lerp(-0.02, 0.02, u.Quality)
			}

			dst.Set(bx, by,
				mx/screenW,
				my/screenH,
				uvRandom(uu+mvLen, v),
				acc,
			)
		}
	}
}

// moshPass resamples the retained work image through the displacement field
// and overlays DCT-like block noise. Blocks whose accumulated motion passed
// one are refreshed from the clean source.
func moshPass(src, work, disp *Buffer, u mosh.Uniforms, dst *Buffer) {
	if src == nil {
		initPass(dst)
		return
	}
	if work == nil {
		work = src
	}

	contrast := math32.Max(u.Contrast, 0.01)
	blocksW, blocksH := float32(1), float32(1)
	if disp != nil {
		blocksW, blocksH = float32(disp.w), float32(disp.h)
	}

	for y := 0; y < dst.h; y++ {
		v := (float32(y) + 0.5) / float32(dst.h)
		for x := 0; x < dst.w; x++ {
			uu := (float32(x) + 0.5) / float32(dst.w)

			s := src.Sample(uu, v)
			var d [4]float32
			if disp != nil {
				copy(d[:], disp.Sample(uu, v))
			}

			out := dst.At(x, y)
			if d[3] > 1 {
				copy(out, s)
				continue
			}

			w := work.Sample(uu-d[0]*0.98, v-d[1]*0.98)

			rx := frac(d[2] * 1)
			ry := frac(d[2] * 17.37135)
			freq := rx * 80 / contrast
			dct := math32.Cos(uu*blocksW*freq) * math32.Cos(v*blocksH*freq)
			amp := (1 - u.Quality) * 0.1 * (ry*0.5 + 0.5)

			n := len(out)
			for c := 0; c < n && c < 3; c++ {
				out[c] = w[c] + dct*amp
			}
			if n > 3 {
				out[3] = s[3]
			}
		}
	}
}

func uvRandom(u, v float32) float32 {
	return frac(math32.Sin(u*12.9898+v*78.233) * 43758.5453)
}

func frac(x float32) float32 {
	return x - math32.Floor(x)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func asBuffer(mb mosh.Buffer) *Buffer {
	if mb == nil {
		return nil
	}
	b, _ := mb.(*Buffer)
	return b
}

func buffers(msrc, mdst mosh.Buffer) (*Buffer, *Buffer, bool) {
	src, dst := asBuffer(msrc), asBuffer(mdst)
	if src == nil || dst == nil {
		utils.Error("soft: blit between foreign buffers %T -> %T", msrc, mdst)
		return nil, nil, false
	}
	return src, dst, true
}
