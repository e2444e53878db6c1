package mosh

import (
	"linux-datamosh/internal/utils"
)

// PrimingOutput selects what the Priming frame shows.
type PrimingOutput int

const (
	// PrimingShowWork emits the retained work buffer, i.e. the last clean
	// frame.
	PrimingShowWork PrimingOutput = iota
	// PrimingShowDisplacement emits the freshly seeded displacement field.
	PrimingShowDisplacement
)

func (p PrimingOutput) String() string {
	if p == PrimingShowDisplacement {
		return "displacement"
	}
	return "work"
}

// Frame is the input of one render callback.
type Frame struct {
	Source      Buffer
	Destination Buffer

	// Motion and Depth are the current frame's camera data. Motion is nil
	// when motion vectors are unavailable.
	Motion Buffer
	Depth  Buffer

	// Counter is the host's monotonically increasing frame number.
	Counter uint64

	// Stereo reports stereo rendering; Eye is only read when it is set.
	Stereo bool
	Eye    Eye
}

type Option func(*Controller)

func WithParameters(p EffectParameters) Option {
	return func(c *Controller) { c.params = p }
}

func WithPrimingOutput(p PrimingOutput) Option {
	return func(c *Controller) { c.priming = p }
}

// Controller drives the datamosh state machine for up to two eyes.
// It is not safe for concurrent use; the host calls it from its render loop.
type Controller struct {
	pool BufferPool
	exec PassExecutor

	eyes [2]EyeState

	params  EffectParameters
	priming PrimingOutput

	pendingParams  *EffectParameters
	pendingPriming *PrimingOutput

	enabled bool
}

// NewController returns an enabled controller with both eyes Idle.
func NewController(pool BufferPool, exec PassExecutor, opts ...Option) *Controller {
	c := &Controller{
		pool:    pool,
		exec:    exec,
		params:  DefaultParameters(),
		priming: PrimingShowWork,
		enabled: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start restarts the glitch ramp on every eye. It takes effect on the next
// RenderFrame.
func (c *Controller) Start() {
	utils.Debug("Datamosh: start")
	for i := range c.eyes {
		c.eyes[i].Sequence = Priming
	}
}

// Stop returns every eye to pass-through. Buffers are kept until the next
// Idle frame replaces them.
func (c *Controller) Stop() {
	utils.Debug("Datamosh: stop")
	for i := range c.eyes {
		c.eyes[i].Sequence = Idle
	}
}

// SetParameters schedules p for the next RenderFrame.
func (c *Controller) SetParameters(p EffectParameters) {
	c.pendingParams = &p
}

// SetPrimingOutput schedules the priming variant for the next RenderFrame.
func (c *Controller) SetPrimingOutput(p PrimingOutput) {
	c.pendingPriming = &p
}

// Parameters returns the parameters the last frame rendered with.
func (c *Controller) Parameters() EffectParameters {
	return c.params
}

func (c *Controller) PrimingOutput() PrimingOutput {
	return c.priming
}

func (c *Controller) Enabled() bool {
	return c.enabled
}

// Enable re-attaches the controller. Eyes start Idle.
func (c *Controller) Enable() {
	c.enabled = true
}

// Disable releases every buffer of both eyes and resets them to Idle.
// While disabled RenderFrame copies source to destination.
func (c *Controller) Disable() {
	if !c.enabled {
		return
	}
	for i := range c.eyes {
		s := &c.eyes[i]
		c.release(s, s.work)
		c.release(s, s.disp)
		s.work, s.disp = nil, nil
		s.Sequence = Idle
		s.updated = false
		s.lastUpdatedFrame = 0
	}
	c.enabled = false
}

func (c *Controller) Close() error {
	c.Disable()
	return nil
}

// Eye returns a snapshot of one eye's state.
func (c *Controller) Eye(e Eye) EyeSnapshot {
	return c.eye(e).snapshot()
}

func (c *Controller) eye(e Eye) *EyeState {
	if e == Right {
		return &c.eyes[Right]
	}
	return &c.eyes[Left]
}

func (c *Controller) resolveEye(f Frame) *EyeState {
	if !f.Stereo {
		return &c.eyes[Left]
	}
	return c.eye(f.Eye)
}

// RenderFrame composites one frame for the eye selected by f.
func (c *Controller) RenderFrame(f Frame) {
	if c.pendingParams != nil {
		c.params = *c.pendingParams
		c.pendingParams = nil
	}
	if c.pendingPriming != nil {
		c.priming = *c.pendingPriming
		c.pendingPriming = nil
	}

	if f.Destination == nil {
		utils.Debug("Datamosh: frame %d has no destination, skipping", f.Counter)
		return
	}
	if f.Source == nil {
		utils.Debug("Datamosh: frame %d has no source, skipping", f.Counter)
		return
	}
	if f.Source.Width() <= 0 || f.Source.Height() <= 0 {
		utils.Debug("Datamosh: frame %d source is %dx%d, passing through", f.Counter, f.Source.Width(), f.Source.Height())
		c.exec.Blit(f.Source, f.Destination)
		return
	}
	if !c.enabled {
		c.exec.Blit(f.Source, f.Destination)
		return
	}

	s := c.resolveEye(f)
	switch s.Sequence {
	case Idle:
		c.renderIdle(s, f)
	case Priming:
		c.renderPriming(s, f)
	default:
		c.renderActive(s, f)
	}
}

// renderIdle keeps a clean copy of the source as the next work buffer and
// passes the source through.
func (c *Controller) renderIdle(s *EyeState, f Frame) {
	w, h := f.Source.Width(), f.Source.Height()
	work, err := c.acquire(s, w, h, FormatColor)
	if err != nil {
		utils.Warn("Datamosh: idle work buffer %dx%d: %v", w, h, err)
		c.exec.Blit(f.Source, f.Destination)
		return
	}
	c.release(s, s.work)
	s.work = work

	c.exec.Blit(f.Source, s.work)
	c.exec.Blit(f.Source, f.Destination)
}

// renderPriming seeds a new displacement field and shows pre-effect content
// for one frame, since motion vectors right after a cut are unreliable.
func (c *Controller) renderPriming(s *EyeState, f Frame) {
	w, h := f.Source.Width(), f.Source.Height()

	if s.work == nil || s.work.Width() != w || s.work.Height() != h {
		work, err := c.acquire(s, w, h, FormatColor)
		if err != nil {
			utils.Warn("Datamosh: priming work buffer %dx%d: %v", w, h, err)
			c.exec.Blit(f.Source, f.Destination)
			return
		}
		c.release(s, s.work)
		s.work = work
		c.exec.Blit(f.Source, s.work)
	}

	dw, dh := c.params.DisplacementSize(w, h)
	disp, err := c.acquire(s, dw, dh, FormatDisplacement)
	if err != nil {
		utils.Warn("Datamosh: priming displacement buffer %dx%d: %v", dw, dh, err)
		c.exec.Blit(s.work, f.Destination)
		return
	}
	c.release(s, s.disp)
	s.disp = disp

	c.exec.Execute(PassInit, PassInputs{Motion: f.Motion, Depth: f.Depth}, c.params.Uniforms(), s.disp)

	if c.priming == PrimingShowDisplacement {
		c.exec.Blit(s.disp, f.Destination)
	} else {
		c.exec.Blit(s.work, f.Destination)
	}

	s.markUpdated(f.Counter)
	s.Sequence = Active
}

// renderActive advances the displacement field, re-moshes the work buffer
// through it and shows the result. A second call for the same frame only
// re-emits the work buffer.
func (c *Controller) renderActive(s *EyeState, f Frame) {
	if s.work == nil || s.disp == nil {
		c.renderPriming(s, f)
		return
	}
	if s.updatedAt(f.Counter) {
		c.exec.Blit(s.work, f.Destination)
		return
	}

	w, h := f.Source.Width(), f.Source.Height()
	u := c.params.Uniforms()

	dw, dh := c.params.DisplacementSize(w, h)
	disp, err := c.acquire(s, dw, dh, FormatDisplacement)
	if err != nil {
		utils.Warn("Datamosh: displacement buffer %dx%d: %v", dw, dh, err)
		c.exec.Blit(s.work, f.Destination)
		return
	}
	c.exec.Execute(PassAccumulate, PassInputs{
		Main:   s.disp,
		Motion: f.Motion,
		Depth:  f.Depth,
	}, u, disp)
	c.release(s, s.disp)
	s.disp = disp

	work, err := c.acquire(s, w, h, FormatColor)
	if err != nil {
		utils.Warn("Datamosh: work buffer %dx%d: %v", w, h, err)
		s.markUpdated(f.Counter)
		c.exec.Blit(s.work, f.Destination)
		return
	}
	c.exec.Execute(PassMosh, PassInputs{
		Main:         f.Source,
		Work:         s.work,
		Displacement: s.disp,
		Motion:       f.Motion,
		Depth:        f.Depth,
	}, u, work)
	c.release(s, s.work)
	s.work = work

	s.markUpdated(f.Counter)
	c.exec.Blit(s.work, f.Destination)
}

func (c *Controller) acquire(s *EyeState, w, h int, format Format) (Buffer, error) {
	b, err := c.pool.Acquire(w, h, format)
	if err != nil {
		return nil, err
	}
	s.acquired++
	return b, nil
}

func (c *Controller) release(s *EyeState, b Buffer) {
	if b == nil {
		return
	}
	c.pool.Release(b)
	s.released++
}
