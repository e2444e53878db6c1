package engine2D

import (
	"math"

	"linux-datamosh/internal/mosh"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer owns the per-eye camera views and output targets and lays them
// out on the window. Stereo puts the left eye on the left half.
type Renderer struct {
	Stereo bool
	// EyeSeparation is the horizontal camera offset between eyes, in view
	// widths.
	EyeSeparation float64

	ScreenWidth  int
	ScreenHeight int

	Views   [2]*View
	Outputs [2]*Target
}

func NewRenderer(stereo bool) *Renderer {
	return &Renderer{Stereo: stereo, EyeSeparation: 0.03}
}

// Eyes returns the eyes rendered each frame.
func (r *Renderer) Eyes() []mosh.Eye {
	if r.Stereo {
		return []mosh.Eye{mosh.Left, mosh.Right}
	}
	return []mosh.Eye{mosh.Left}
}

// EyeSize is the render resolution of one eye for the current screen.
func (r *Renderer) EyeSize() (int, int) {
	w := r.ScreenWidth
	if r.Stereo {
		w /= 2
	}
	return max(w, 1), max(r.ScreenHeight, 1)
}

// UpdateViewport reallocates the views and outputs when the window size or
// stereo mode changed. The controller notices the new size on its own.
func (r *Renderer) UpdateViewport(screenWidth, screenHeight int) error {
	if screenWidth == r.ScreenWidth && screenHeight == r.ScreenHeight && r.Views[0] != nil &&
		(r.Views[1] != nil) == r.Stereo {
		return nil
	}
	r.ScreenWidth, r.ScreenHeight = screenWidth, screenHeight
	r.Unload()

	w, h := r.EyeSize()
	for _, eye := range r.Eyes() {
		view, err := NewView(w, h)
		if err != nil {
			return err
		}
		out, err := NewTarget(w, h, mosh.FormatColor)
		if err != nil {
			view.Unload()
			return err
		}
		r.Views[eye], r.Outputs[eye] = view, out
	}
	return nil
}

// EyeOffset returns the camera offset for eye.
func (r *Renderer) EyeOffset(eye mosh.Eye) float64 {
	if !r.Stereo {
		return 0
	}
	if eye == mosh.Left {
		return -r.EyeSeparation / 2
	}
	return r.EyeSeparation / 2
}

// Frame builds the controller input for eye.
func (r *Renderer) Frame(eye mosh.Eye, counter uint64) mosh.Frame {
	view := r.Views[eye]
	return mosh.Frame{
		Source:      view.Scene,
		Destination: r.Outputs[eye],
		Motion:      view.Motion,
		Counter:     counter,
		Stereo:      r.Stereo,
		Eye:         eye,
	}
}

// EyeRect is where eye's output goes on screen.
func (r *Renderer) EyeRect(eye mosh.Eye) rl.Rectangle {
	w, h := r.EyeSize()
	x := 0
	if r.Stereo && eye == mosh.Right {
		x = int(math.Ceil(float64(r.ScreenWidth) / 2))
	}
	return rl.NewRectangle(float32(x), 0, float32(w), float32(h))
}

// Render draws every eye output. Call between BeginDrawing and EndDrawing.
func (r *Renderer) Render() {
	rl.ClearBackground(rl.Black)
	for _, eye := range r.Eyes() {
		if out := r.Outputs[eye]; out != nil {
			out.Draw(r.EyeRect(eye))
		}
	}
}

func (r *Renderer) Unload() {
	for i := range r.Views {
		if r.Views[i] != nil {
			r.Views[i].Unload()
			r.Views[i] = nil
		}
		if r.Outputs[i] != nil {
			r.Outputs[i].Unload()
			r.Outputs[i] = nil
		}
	}
}
