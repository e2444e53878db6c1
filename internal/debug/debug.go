package debug

import (
	"fmt"
	"runtime"
	"time"

	"linux-datamosh/internal/mosh"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Stats is what the overlay shows for one frame.
type Stats struct {
	Frame    uint64
	Enabled  bool
	Stereo   bool
	Params   mosh.EffectParameters
	Priming  mosh.PrimingOutput
	Eyes     []mosh.EyeSnapshot
	PoolLive int
}

type DebugOverlay struct {
	ShowEyeBounds bool

	fontHeight int
	lineHeight int
	panelWidth int

	lastUpdateTime time.Time
	memStats       runtime.MemStats
}

func NewDebugOverlay() *DebugOverlay {
	d := &DebugOverlay{
		ShowEyeBounds:  true,
		fontHeight:     16,
		lineHeight:     20,
		panelWidth:     340,
		lastUpdateTime: time.Now(),
	}
	runtime.ReadMemStats(&d.memStats)
	return d
}

// Update refreshes the slow counters about once a second.
func (d *DebugOverlay) Update() {
	if time.Since(d.lastUpdateTime) < time.Second {
		return
	}
	d.lastUpdateTime = time.Now()
	runtime.ReadMemStats(&d.memStats)
}

// Lines formats stats as the text rows of the panel.
func (d *DebugOverlay) Lines(s Stats) []string {
	lines := []string{
		fmt.Sprintf("FPS: %d  Frame Time: %.2f ms", rl.GetFPS(), rl.GetFrameTime()*1000),
		fmt.Sprintf("Frame: %d", s.Frame),
		fmt.Sprintf("Heap Alloc: %.2f MB", float64(d.memStats.HeapAlloc)/1024/1024),
		"",
	}

	mode := "mono"
	if s.Stereo {
		mode = "stereo"
	}
	state := "enabled"
	if !s.Enabled {
		state = "disabled"
	}
	lines = append(lines,
		fmt.Sprintf("Effect: %s, %s, priming shows %s", state, mode, s.Priming),
		fmt.Sprintf("Block Size: %d (effective %d)", s.Params.BlockSize, s.Params.EffectiveBlockSize()),
		fmt.Sprintf("Velocity: %.2f  Entropy: %.2f", s.Params.VelocityScale, s.Params.Entropy),
		fmt.Sprintf("Contrast: %.2f  Diffusion: %.2f", s.Params.NoiseContrast, s.Params.Diffusion),
		fmt.Sprintf("Pool Live: %d", s.PoolLive),
	)

	for i, eye := range s.Eyes {
		lines = append(lines, "",
			fmt.Sprintf("%s eye: %s", mosh.Eye(i), eye.Sequence))
		if eye.HasWork {
			lines = append(lines, fmt.Sprintf("  work %dx%d", eye.WorkWidth, eye.WorkHeight))
		}
		if eye.HasDisplacement {
			lines = append(lines, fmt.Sprintf("  displacement %dx%d", eye.DisplacementWidth, eye.DisplacementHeight))
		}
		if eye.HasLastUpdatedFrame {
			lines = append(lines, fmt.Sprintf("  updated at %d", eye.LastUpdatedFrame))
		}
		lines = append(lines, fmt.Sprintf("  buffers %d live, %d/%d acq/rel", eye.Live, eye.Acquired, eye.Released))
	}
	return lines
}

// Draw paints the panel in the top-left corner and, with ShowEyeBounds, an
// outline around each eye rectangle.
func (d *DebugOverlay) Draw(s Stats, eyeRects []rl.Rectangle) {
	if d.ShowEyeBounds {
		for i, rect := range eyeRects {
			col := rl.NewColor(0, 255, 0, 255)
			if i == int(mosh.Right) {
				col = rl.NewColor(0, 255, 255, 255)
			}
			rl.DrawRectangleLinesEx(rect, 2, col)
		}
	}

	lines := d.Lines(s)
	height := int32(len(lines)*d.lineHeight + 20)
	rl.DrawRectangle(0, 0, int32(d.panelWidth), height, rl.NewColor(0, 0, 0, 180))

	y := int32(10)
	for _, line := range lines {
		if line != "" {
			rl.DrawText(line, 10, y, int32(d.fontHeight), rl.White)
		}
		y += int32(d.lineHeight)
	}
}
