package mosh

import "errors"

// ErrInvalidSize is returned by pools asked for a buffer with a non-positive
// dimension.
var ErrInvalidSize = errors.New("mosh: invalid buffer size")

// Format describes what a buffer stores.
type Format int

const (
	// FormatColor is a full-resolution RGBA color image.
	FormatColor Format = iota
	// FormatDisplacement is a block-resolution field: xy offset in
	// normalized screen units, a per-block random seed and the accumulated
	// motion amount.
	FormatDisplacement
	// FormatMotion is a per-pixel xy motion vector in normalized screen units.
	FormatMotion
	// FormatDepth is a per-pixel linear depth.
	FormatDepth
)

func (f Format) String() string {
	switch f {
	case FormatColor:
		return "color"
	case FormatDisplacement:
		return "displacement"
	case FormatMotion:
		return "motion"
	case FormatDepth:
		return "depth"
	}
	return "unknown"
}

// Buffer is an opaque 2-D image handle owned by a BufferPool.
type Buffer interface {
	Width() int
	Height() int
	Format() Format
}

// BufferPool hands out transient buffers. A released handle must not be
// used again.
type BufferPool interface {
	Acquire(width, height int, format Format) (Buffer, error)
	Release(b Buffer)
}

// PassID names one of the three effect passes.
type PassID int

const (
	// PassInit seeds a displacement field from nothing.
	PassInit PassID = iota
	// PassAccumulate integrates motion vectors into the previous
	// displacement field.
	PassAccumulate
	// PassMosh resamples the retained work buffer through the displacement
	// field.
	PassMosh
)

func (p PassID) String() string {
	switch p {
	case PassInit:
		return "init"
	case PassAccumulate:
		return "accumulate"
	case PassMosh:
		return "mosh"
	}
	return "unknown"
}

// PassInputs are the textures bound for a pass. Main is the pass's source
// buffer (nil for PassInit); the others are auxiliary samplers and may be
// nil when the pass does not read them or the data is unavailable.
type PassInputs struct {
	Main         Buffer
	Work         Buffer
	Displacement Buffer
	Motion       Buffer
	Depth        Buffer
}

// PassExecutor runs effect passes. Each call writes a deterministic
// function of its inputs into dst; executors carry no state between calls.
type PassExecutor interface {
	Blit(src, dst Buffer)
	Execute(pass PassID, in PassInputs, u Uniforms, dst Buffer)
}
