package engine2D

import (
	"linux-datamosh/internal/mosh"
	"linux-datamosh/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// PassLocations holds the uniform locations of one compiled pass.
type PassLocations struct {
	BlockSize int32
	Quality   int32
	Contrast  int32
	Velocity  int32
	Diffusion int32
	Screen    int32
	Blocks    int32
	Motion    int32
	HasMotion int32
	Work      int32
	Disp      int32
}

// ResolvePassLocations queries a pass shader for every uniform PassRunner
// binds. Missing uniforms resolve to -1 and are skipped when binding.
func ResolvePassLocations(shader rl.Shader) PassLocations {
	return PassLocations{
		BlockSize: rl.GetShaderLocation(shader, "u_BlockSize"),
		Quality:   rl.GetShaderLocation(shader, "u_Quality"),
		Contrast:  rl.GetShaderLocation(shader, "u_Contrast"),
		Velocity:  rl.GetShaderLocation(shader, "u_Velocity"),
		Diffusion: rl.GetShaderLocation(shader, "u_Diffusion"),
		Screen:    rl.GetShaderLocation(shader, "u_Screen"),
		Blocks:    rl.GetShaderLocation(shader, "u_Blocks"),
		Motion:    rl.GetShaderLocation(shader, "u_Motion"),
		HasMotion: rl.GetShaderLocation(shader, "u_HasMotion"),
		Work:      rl.GetShaderLocation(shader, "u_Work"),
		Disp:      rl.GetShaderLocation(shader, "u_Disp"),
	}
}

type loadedPass struct {
	name   string
	shader rl.Shader
	locs   PassLocations
}

func loadPass(name, fragment string) loadedPass {
	shader := rl.LoadShaderFromMemory("", fragment)
	if shader.ID == 0 {
		utils.Error("Shader: %s - Failed to compile from memory", name)
	} else {
		utils.Info("Shader: %s - Loaded successfully (ID: %d)", name, shader.ID)
	}
	return loadedPass{name: name, shader: shader, locs: ResolvePassLocations(shader)}
}

// PassRunner executes the effect passes with GLSL shaders into render
// textures. It needs a live GL context and must be used from the thread that
// owns it.
type PassRunner struct {
	passes [3]loadedPass
	blit   loadedPass
	dummy  rl.Texture2D
}

func NewPassRunner() *PassRunner {
	img := rl.GenImageColor(1, 1, rl.White)
	dummy := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)

	r := &PassRunner{dummy: dummy}
	r.passes[mosh.PassInit] = loadPass("mosh_init", initFragment)
	r.passes[mosh.PassAccumulate] = loadPass("mosh_accumulate", accumulateFragment)
	r.passes[mosh.PassMosh] = loadPass("mosh_mosh", moshFragment)
	r.blit = loadPass("mosh_blit", blitFragment)
	return r
}

// Ready reports whether every shader compiled.
func (r *PassRunner) Ready() bool {
	for _, p := range r.passes {
		if p.shader.ID == 0 {
			return false
		}
	}
	return r.blit.shader.ID != 0
}

func (r *PassRunner) Close() {
	for _, p := range r.passes {
		if p.shader.ID != 0 {
			rl.UnloadShader(p.shader)
		}
	}
	if r.blit.shader.ID != 0 {
		rl.UnloadShader(r.blit.shader)
	}
	rl.UnloadTexture(r.dummy)
}

func (r *PassRunner) Blit(src, dst mosh.Buffer) {
	s, ok := asTarget(src)
	if !ok {
		return
	}
	d, ok := asTarget(dst)
	if !ok {
		return
	}
	r.draw(r.blit, s.Texture(), true, d, func(loadedPass) {})
}

func (r *PassRunner) Execute(pass mosh.PassID, in mosh.PassInputs, u mosh.Uniforms, dst mosh.Buffer) {
	if pass < mosh.PassInit || pass > mosh.PassMosh {
		utils.Error("PassRunner: unknown pass %d", pass)
		return
	}
	d, ok := asTarget(dst)
	if !ok {
		return
	}
	lp := r.passes[pass]

	switch pass {
	case mosh.PassInit:
		r.draw(lp, r.dummy, false, d, func(lp loadedPass) {})

	case mosh.PassAccumulate:
		main, ok := asTarget(in.Main)
		if !ok {
			return
		}
		screen := []float32{float32(d.Width()) * u.BlockSize, float32(d.Height()) * u.BlockSize}
		blocks := []float32{float32(d.Width()), float32(d.Height())}
		r.draw(lp, main.Texture(), true, d, func(lp loadedPass) {
			bindUniforms(lp, u, screen, blocks)
			hasMotion := float32(0)
			if m, ok := asTarget(in.Motion); ok {
				hasMotion = 1
				bindTexture(lp.shader, lp.locs.Motion, m.Texture())
			}
			setFloat(lp.shader, lp.locs.HasMotion, hasMotion)
		})

	case mosh.PassMosh:
		main, ok := asTarget(in.Main)
		if !ok {
			return
		}
		work, ok := asTarget(in.Work)
		if !ok {
			return
		}
		disp, ok := asTarget(in.Displacement)
		if !ok {
			return
		}
		screen := []float32{float32(d.Width()), float32(d.Height())}
		blocks := []float32{float32(disp.Width()), float32(disp.Height())}
		r.draw(lp, main.Texture(), true, d, func(lp loadedPass) {
			bindUniforms(lp, u, screen, blocks)
			bindTexture(lp.shader, lp.locs.Work, work.Texture())
			bindTexture(lp.shader, lp.locs.Disp, disp.Texture())
		})
	}
}

// draw renders main 1:1 onto dst through the pass shader. bind runs after the
// shader is active so texture units attach to it.
func (r *PassRunner) draw(lp loadedPass, main rl.Texture2D, flip bool, dst *Target, bind func(loadedPass)) {
	if lp.shader.ID == 0 {
		return
	}

	rl.BeginTextureMode(dst.RT)
	rl.ClearBackground(rl.Blank)
	rl.BeginShaderMode(lp.shader)
	bind(lp)

	srcRec := rl.NewRectangle(0, 0, float32(main.Width), float32(main.Height))
	if flip {
		srcRec.Height = -srcRec.Height
	}
	dstRec := rl.NewRectangle(0, 0, float32(dst.Width()), float32(dst.Height()))
	rl.DrawTexturePro(main, srcRec, dstRec, rl.NewVector2(0, 0), 0, rl.White)

	rl.EndShaderMode()
	rl.EndTextureMode()
}

func bindUniforms(lp loadedPass, u mosh.Uniforms, screen, blocks []float32) {
	setFloat(lp.shader, lp.locs.BlockSize, u.BlockSize)
	setFloat(lp.shader, lp.locs.Quality, u.Quality)
	setFloat(lp.shader, lp.locs.Contrast, u.Contrast)
	setFloat(lp.shader, lp.locs.Velocity, u.Velocity)
	setFloat(lp.shader, lp.locs.Diffusion, u.Diffusion)
	if lp.locs.Screen != -1 {
		rl.SetShaderValue(lp.shader, lp.locs.Screen, screen, rl.ShaderUniformVec2)
	}
	if lp.locs.Blocks != -1 {
		rl.SetShaderValue(lp.shader, lp.locs.Blocks, blocks, rl.ShaderUniformVec2)
	}
}

func setFloat(shader rl.Shader, loc int32, v float32) {
	if loc != -1 {
		rl.SetShaderValue(shader, loc, []float32{v}, rl.ShaderUniformFloat)
	}
}

func bindTexture(shader rl.Shader, loc int32, tex rl.Texture2D) {
	if loc != -1 {
		rl.SetShaderValueTexture(shader, loc, tex)
	}
}
