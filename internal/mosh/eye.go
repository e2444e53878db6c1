package mosh

// Sequence is the phase of an eye's state machine.
type Sequence int

const (
	Idle Sequence = iota
	Priming
	Active
)

func (s Sequence) String() string {
	switch s {
	case Idle:
		return "idle"
	case Priming:
		return "priming"
	case Active:
		return "active"
	}
	return "unknown"
}

// Eye selects one of the two stereo eyes. Mono rendering always uses Left.
type Eye int

const (
	Left Eye = iota
	Right
)

func (e Eye) String() string {
	if e == Right {
		return "right"
	}
	return "left"
}

// EyeState is the mutable state of one eye. The controller owns both
// buffers; they never leave it.
type EyeState struct {
	Sequence Sequence

	work Buffer
	disp Buffer

	lastUpdatedFrame uint64
	updated          bool

	acquired int
	released int
}

// live reports how many buffers the eye currently holds.
func (s *EyeState) live() int {
	n := 0
	if s.work != nil {
		n++
	}
	if s.disp != nil {
		n++
	}
	return n
}

func (s *EyeState) markUpdated(frame uint64) {
	s.lastUpdatedFrame = frame
	s.updated = true
}

func (s *EyeState) updatedAt(frame uint64) bool {
	return s.updated && s.lastUpdatedFrame == frame
}

// EyeSnapshot is a read-only view of an EyeState.
type EyeSnapshot struct {
	Sequence Sequence

	HasWork             bool
	WorkWidth           int
	WorkHeight          int
	HasDisplacement     bool
	DisplacementWidth   int
	DisplacementHeight  int
	LastUpdatedFrame    uint64
	HasLastUpdatedFrame bool

	Live     int
	Acquired int
	Released int
}

func (s *EyeState) snapshot() EyeSnapshot {
	snap := EyeSnapshot{
		Sequence:            s.Sequence,
		LastUpdatedFrame:    s.lastUpdatedFrame,
		HasLastUpdatedFrame: s.updated,
		Live:                s.live(),
		Acquired:            s.acquired,
		Released:            s.released,
	}
	if s.work != nil {
		snap.HasWork = true
		snap.WorkWidth, snap.WorkHeight = s.work.Width(), s.work.Height()
	}
	if s.disp != nil {
		snap.HasDisplacement = true
		snap.DisplacementWidth, snap.DisplacementHeight = s.disp.Width(), s.disp.Height()
	}
	return snap
}
