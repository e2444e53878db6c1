package mosh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveBlockSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, 4},
		{0, 4},
		{3, 4},
		{4, 4},
		{16, 16},
		{33, 33},
	}
	for _, tt := range tests {
		p := EffectParameters{BlockSize: tt.in}
		assert.Equal(t, tt.want, p.EffectiveBlockSize(), "block size %d", tt.in)
	}
}

func TestUniforms(t *testing.T) {
	u := DefaultParameters().Uniforms()
	assert.Equal(t, float32(16), u.BlockSize)
	assert.InDelta(t, 0.5, u.Quality, 1e-6)
	assert.Equal(t, float32(1), u.Contrast)
	assert.Equal(t, float32(0.8), u.Velocity)
	assert.Equal(t, float32(0.4), u.Diffusion)

	p := DefaultParameters()
	p.Entropy = 0.2
	p.BlockSize = 2
	u = p.Uniforms()
	assert.InDelta(t, 0.8, u.Quality, 1e-6)
	assert.Equal(t, float32(MinBlockSize), u.BlockSize)
}

func TestDisplacementSize(t *testing.T) {
	p := DefaultParameters()

	w, h := p.DisplacementSize(640, 360)
	assert.Equal(t, 40, w)
	assert.Equal(t, 22, h)

	w, h = p.DisplacementSize(8, 8)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "priming", Priming.String())
	assert.Equal(t, "right", Right.String())
	assert.Equal(t, "mosh", PassMosh.String())
	assert.Equal(t, "displacement", FormatDisplacement.String())
	assert.Equal(t, "displacement", PrimingShowDisplacement.String())
}
