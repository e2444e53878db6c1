package engine2D

import (
	"image"
	"math"

	"linux-datamosh/internal/mosh"
	"linux-datamosh/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// View is one eye's camera output: the rendered scene and its motion vectors.
type View struct {
	Scene  *Target
	Motion *Target

	prev    rl.Rectangle
	hasPrev bool
}

func NewView(width, height int) (*View, error) {
	scene, err := NewTarget(width, height, mosh.FormatColor)
	if err != nil {
		return nil, err
	}
	motion, err := NewTarget(width, height, mosh.FormatMotion)
	if err != nil {
		scene.Unload()
		return nil, err
	}
	return &View{Scene: scene, Motion: motion}, nil
}

func (v *View) Width() int  { return v.Scene.Width() }
func (v *View) Height() int { return v.Scene.Height() }

func (v *View) Unload() {
	v.Scene.Unload()
	v.Motion.Unload()
}

// Camera flies over a still image. Steering sets the pan velocity, the zoom
// breathes slowly so the motion field is never purely uniform.
type Camera struct {
	Speed float64 // view widths per second at full steer
	Zoom  float64 // base zoom over the cover fit, at least 1
	Sway  float64 // zoom oscillation amplitude

	source rl.Texture2D
	srcW   float64
	srcH   float64

	x, y   float64 // view center in source pixels
	vx, vy float64
	time   float64

	motion  loadedPass
	panLoc  int32
	zoomLoc int32
	dummy   rl.Texture2D
}

// NewCamera uploads img and centers the camera on it.
func NewCamera(img image.Image) *Camera {
	rlImg := rl.NewImageFromImage(img)
	tex := rl.LoadTextureFromImage(rlImg)
	rl.UnloadImage(rlImg)
	rl.SetTextureWrap(tex, rl.TextureWrapClamp)

	white := rl.GenImageColor(1, 1, rl.White)
	dummy := rl.LoadTextureFromImage(white)
	rl.UnloadImage(white)

	motion := loadPass("camera_motion", motionFragment)

	c := &Camera{
		Speed:   0.25,
		Zoom:    1.15,
		Sway:    0.05,
		source:  tex,
		srcW:    float64(tex.Width),
		srcH:    float64(tex.Height),
		x:       float64(tex.Width) / 2,
		y:       float64(tex.Height) / 2,
		motion:  motion,
		panLoc:  rl.GetShaderLocation(motion.shader, "u_Pan"),
		zoomLoc: rl.GetShaderLocation(motion.shader, "u_Zoom"),
		dummy:   dummy,
	}
	utils.Debug("Camera: source %dx%d", tex.Width, tex.Height)
	return c
}

func (c *Camera) Close() {
	rl.UnloadTexture(c.source)
	rl.UnloadTexture(c.dummy)
	if c.motion.shader.ID != 0 {
		rl.UnloadShader(c.motion.shader)
	}
}

// Update advances the camera by dt seconds. steerX and steerY in [-1, 1]
// set the target velocity; the actual velocity eases toward it.
func (c *Camera) Update(dt, steerX, steerY float64) {
	c.time += dt

	ease := 1 - math.Exp(-dt*4)
	c.vx += (steerX*c.Speed - c.vx) * ease
	c.vy += (steerY*c.Speed - c.vy) * ease

	c.x += c.vx * dt * c.srcW
	c.y += c.vy * dt * c.srcH
}

func (c *Camera) zoom() float64 {
	return max(1, c.Zoom+c.Sway*math.Sin(c.time*0.5))
}

// viewRect returns the source rectangle shown in a width x height view,
// shifted horizontally by offset view widths. The camera center is clamped
// so the unshifted rectangle stays inside the source.
func (c *Camera) viewRect(width, height int, offset float64) rl.Rectangle {
	aspect := float64(width) / float64(height)
	w, h := c.srcW, c.srcW/aspect
	if h > c.srcH {
		w, h = c.srcH*aspect, c.srcH
	}
	z := c.zoom()
	w, h = w/z, h/z

	c.x = clampFloat(c.x, w/2, c.srcW-w/2)
	c.y = clampFloat(c.y, h/2, c.srcH-h/2)

	return rl.NewRectangle(float32(c.x-w/2+offset*w), float32(c.y-h/2), float32(w), float32(h))
}

// Render draws the view into v.Scene and the motion since v was last
// rendered into v.Motion.
func (c *Camera) Render(v *View, offset float64) {
	rect := c.viewRect(v.Width(), v.Height(), offset)
	dest := rl.NewRectangle(0, 0, float32(v.Width()), float32(v.Height()))

	rl.BeginTextureMode(v.Scene.RT)
	rl.ClearBackground(rl.Black)
	rl.DrawTexturePro(c.source, rect, dest, rl.NewVector2(0, 0), 0, rl.White)
	rl.EndTextureMode()

	var pan [2]float32
	var zoom float32
	if v.hasPrev {
		pan, zoom = cameraMotion(v.prev, rect)
	}
	v.prev, v.hasPrev = rect, true

	if c.motion.shader.ID == 0 {
		return
	}
	rl.BeginTextureMode(v.Motion.RT)
	rl.ClearBackground(rl.Blank)
	rl.BeginShaderMode(c.motion.shader)
	// Pass texture coordinates run bottom-up, so y flips.
	rl.SetShaderValue(c.motion.shader, c.panLoc, []float32{pan[0], -pan[1]}, rl.ShaderUniformVec2)
	rl.SetShaderValue(c.motion.shader, c.zoomLoc, []float32{zoom}, rl.ShaderUniformFloat)
	rl.DrawTexturePro(c.dummy, rl.NewRectangle(0, 0, 1, -1), dest, rl.NewVector2(0, 0), 0, rl.White)
	rl.EndShaderMode()
	rl.EndTextureMode()
}

// cameraMotion returns how far a fixed source point moves on screen, in
// normalized view units, when the view goes from prev to cur. The motion at
// view position p is pan + (p - 0.5) * zoom.
func cameraMotion(prev, cur rl.Rectangle) ([2]float32, float32) {
	if cur.Width <= 0 || cur.Height <= 0 {
		return [2]float32{}, 0
	}
	s := prev.Width / cur.Width
	pan := [2]float32{
		(prev.X-cur.X)/cur.Width + 0.5*(s-1),
		(prev.Y-cur.Y)/cur.Height + 0.5*(s-1),
	}
	return pan, s - 1
}

func clampFloat(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}
