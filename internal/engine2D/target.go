package engine2D

import (
	"fmt"

	"linux-datamosh/internal/mosh"
	"linux-datamosh/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Target is a render texture tagged with what it stores. Displacement and
// motion targets hold biased values, see the shader encodings.
type Target struct {
	RT     rl.RenderTexture2D
	format mosh.Format
}

// NewTarget allocates a standalone target. Hosts use it for the source,
// destination and motion buffers they hand to the controller.
func NewTarget(width, height int, format mosh.Format) (*Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("engine2D: %dx%d %s target: %w", width, height, format, mosh.ErrInvalidSize)
	}
	rt := rl.LoadRenderTexture(int32(width), int32(height))
	if rt.ID == 0 {
		return nil, fmt.Errorf("engine2D: failed to allocate %dx%d %s render texture", width, height, format)
	}
	rl.SetTextureWrap(rt.Texture, rl.TextureWrapClamp)
	return &Target{RT: rt, format: format}, nil
}

func (t *Target) Width() int          { return int(t.RT.Texture.Width) }
func (t *Target) Height() int         { return int(t.RT.Texture.Height) }
func (t *Target) Format() mosh.Format { return t.format }

// Texture returns the color attachment for sampling.
func (t *Target) Texture() rl.Texture2D { return t.RT.Texture }

// Unload frees the GPU memory. The target must not be used afterwards.
func (t *Target) Unload() {
	if t.RT.ID == 0 {
		return
	}
	rl.UnloadRenderTexture(t.RT)
	t.RT = rl.RenderTexture2D{}
}

// Draw renders the target into dest on the current framebuffer, undoing the
// render texture flip.
func (t *Target) Draw(dest rl.Rectangle) {
	w, h := float32(t.RT.Texture.Width), float32(t.RT.Texture.Height)
	sourceRec := rl.NewRectangle(0, 0, w, -h)
	rl.DrawTexturePro(t.RT.Texture, sourceRec, dest, rl.NewVector2(0, 0), 0, rl.White)
}

func asTarget(b mosh.Buffer) (*Target, bool) {
	if b == nil {
		return nil, false
	}
	t, ok := b.(*Target)
	if !ok {
		utils.Error("engine2D: %T is not a render target", b)
		return nil, false
	}
	return t, t.RT.ID != 0
}
