package mosh

// MinBlockSize is the smallest macroblock edge the controller will allocate
// a displacement buffer for.
const MinBlockSize = 4

// EffectParameters tunes the look of the effect. Out-of-range values other
// than BlockSize are passed through untouched; they only change visual
// strength.
type EffectParameters struct {
	BlockSize     int     `toml:"block_size"`
	VelocityScale float32 `toml:"velocity_scale"`
	Entropy       float32 `toml:"entropy"`
	NoiseContrast float32 `toml:"noise_contrast"`
	Diffusion     float32 `toml:"diffusion"`
}

func DefaultParameters() EffectParameters {
	return EffectParameters{
		BlockSize:     16,
		VelocityScale: 0.8,
		Entropy:       0.5,
		NoiseContrast: 1.0,
		Diffusion:     0.4,
	}
}

// EffectiveBlockSize returns BlockSize clamped to MinBlockSize.
func (p EffectParameters) EffectiveBlockSize() int {
	if p.BlockSize < MinBlockSize {
		return MinBlockSize
	}
	return p.BlockSize
}

// Quality is the inverse of Entropy.
func (p EffectParameters) Quality() float32 {
	return 1 - p.Entropy
}

// Uniforms is the per-frame parameter block bound to every pass.
type Uniforms struct {
	BlockSize float32
	Quality   float32
	Contrast  float32
	Velocity  float32
	Diffusion float32
}

func (p EffectParameters) Uniforms() Uniforms {
	return Uniforms{
		BlockSize: float32(p.EffectiveBlockSize()),
		Quality:   p.Quality(),
		Contrast:  p.NoiseContrast,
		Velocity:  p.VelocityScale,
		Diffusion: p.Diffusion,
	}
}

// DisplacementSize returns the block-resolution size of the displacement
// field for a width x height source. Both results are at least 1.
func (p EffectParameters) DisplacementSize(width, height int) (int, int) {
	bs := p.EffectiveBlockSize()
	w, h := width/bs, height/bs
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
