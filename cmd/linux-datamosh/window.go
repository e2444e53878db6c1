package main

import (
	"context"
	"errors"
	"image"
	"math"
	"time"

	"linux-datamosh/internal/config"
	"linux-datamosh/internal/debug"
	"linux-datamosh/internal/engine2D"
	"linux-datamosh/internal/mosh"
	"linux-datamosh/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

type Window struct {
	ctrl     *mosh.Controller
	pool     *engine2D.RenderTexturePool
	passes   *engine2D.PassRunner
	renderer *engine2D.Renderer
	camera   *engine2D.Camera
	pointer  *utils.Pointer

	debugOverlay *debug.DebugOverlay
	updates      <-chan config.Config

	frame         uint64
	lastFrameTime time.Time
}

func runWindow(ctx context.Context, opts *options, cfg config.Config, src image.Image, updates <-chan config.Config) error {
	rl.SetTraceLogCallback(utils.RaylibLogCallback)
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(opts.width), int32(opts.height), "Linux Datamosh")
	defer rl.CloseWindow()

	window, err := NewWindow(opts, cfg, src, updates)
	if err != nil {
		return err
	}
	defer window.Close()

	window.Run(ctx)
	return nil
}

func NewWindow(opts *options, cfg config.Config, src image.Image, updates <-chan config.Config) (*Window, error) {
	passes := engine2D.NewPassRunner()
	if !passes.Ready() {
		passes.Close()
		return nil, errors.New("datamosh shaders failed to compile")
	}

	pool := engine2D.NewRenderTexturePool()
	window := &Window{
		ctrl: mosh.NewController(pool, passes,
			mosh.WithParameters(cfg.Effect),
			mosh.WithPrimingOutput(cfg.PrimingOutput),
		),
		pool:          pool,
		passes:        passes,
		renderer:      engine2D.NewRenderer(cfg.Stereo),
		camera:        engine2D.NewCamera(src),
		debugOverlay:  debug.NewDebugOverlay(),
		updates:       updates,
		lastFrameTime: time.Now(),
	}
	window.camera.Speed *= opts.speed

	if opts.globalMouse {
		pointer, err := utils.OpenPointer()
		if err != nil {
			utils.Warn("Global mouse unavailable, using the window mouse: %v", err)
		} else {
			window.pointer = pointer
		}
	}

	if err := window.renderer.UpdateViewport(rl.GetScreenWidth(), rl.GetScreenHeight()); err != nil {
		window.Close()
		return nil, err
	}
	return window, nil
}

func (window *Window) Run(ctx context.Context) {
	rl.SetTargetFPS(60)

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		window.Update()
		window.renderEyes()

		rl.BeginDrawing()
		window.Draw()
		rl.EndDrawing()
	}
}

func (window *Window) Update() {
	currentTime := time.Now()
	deltaTime := currentTime.Sub(window.lastFrameTime).Seconds()
	window.lastFrameTime = currentTime

	select {
	case cfg := <-window.updates:
		utils.Info("Config reloaded")
		window.ctrl.SetParameters(cfg.Effect)
		window.ctrl.SetPrimingOutput(cfg.PrimingOutput)
		window.renderer.Stereo = cfg.Stereo
	default:
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		utils.Info("Datamosh: start")
		window.ctrl.Start()
	}
	if rl.IsKeyPressed(rl.KeyBackspace) {
		utils.Info("Datamosh: stop")
		window.ctrl.Stop()
	}
	if rl.IsKeyPressed(rl.KeyE) {
		if window.ctrl.Enabled() {
			window.ctrl.Disable()
		} else {
			window.ctrl.Enable()
		}
	}
	if rl.IsKeyPressed(rl.KeyP) {
		next := mosh.PrimingShowDisplacement
		if window.ctrl.PrimingOutput() == mosh.PrimingShowDisplacement {
			next = mosh.PrimingShowWork
		}
		window.ctrl.SetPrimingOutput(next)
	}
	if rl.IsKeyPressed(rl.KeyF8) {
		utils.ShowDebugUI = !utils.ShowDebugUI
	}

	if err := window.renderer.UpdateViewport(rl.GetScreenWidth(), rl.GetScreenHeight()); err != nil {
		utils.Error("Viewport: %v", err)
	}

	steerX, steerY := window.steer()
	window.camera.Update(deltaTime, steerX, steerY)

	if utils.ShowDebugUI {
		window.debugOverlay.Update()
	}
}

// steer maps the mouse to [-1, 1] around the center of the window, or of the
// monitor with the global pointer. A small dead zone keeps the camera still.
func (window *Window) steer() (float64, float64) {
	var mouseX, mouseY, width, height float64
	if window.pointer != nil {
		x, y, err := window.pointer.Position()
		if err == nil {
			monitor := rl.GetCurrentMonitor()
			mouseX, mouseY = float64(x), float64(y)
			width, height = float64(rl.GetMonitorWidth(monitor)), float64(rl.GetMonitorHeight(monitor))
		}
	}
	if width <= 0 || height <= 0 {
		mPos := rl.GetMousePosition()
		mouseX, mouseY = float64(mPos.X), float64(mPos.Y)
		width, height = float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight())
	}
	if width <= 0 || height <= 0 {
		return 0, 0
	}

	sx := deadZone(mouseX/width*2 - 1)
	sy := deadZone(mouseY/height*2 - 1)
	return sx, sy
}

func deadZone(v float64) float64 {
	const zone = 0.1
	v = math.Max(-1, math.Min(1, v))
	if math.Abs(v) < zone {
		return 0
	}
	return (v - math.Copysign(zone, v)) / (1 - zone)
}

// renderEyes runs the camera and the controller once per eye. It renders
// into textures, so it runs outside BeginDrawing.
func (window *Window) renderEyes() {
	window.frame++
	for _, eye := range window.renderer.Eyes() {
		view := window.renderer.Views[eye]
		if view == nil {
			continue
		}
		window.camera.Render(view, window.renderer.EyeOffset(eye))
		window.ctrl.RenderFrame(window.renderer.Frame(eye, window.frame))
	}
}

func (window *Window) Draw() {
	window.renderer.Render()

	if utils.ShowDebugUI {
		eyes := window.renderer.Eyes()
		stats := debug.Stats{
			Frame:    window.frame,
			Enabled:  window.ctrl.Enabled(),
			Stereo:   window.renderer.Stereo,
			Params:   window.ctrl.Parameters(),
			Priming:  window.ctrl.PrimingOutput(),
			PoolLive: window.pool.Live(),
		}
		rects := make([]rl.Rectangle, 0, len(eyes))
		for _, eye := range eyes {
			stats.Eyes = append(stats.Eyes, window.ctrl.Eye(eye))
			rects = append(rects, window.renderer.EyeRect(eye))
		}
		window.debugOverlay.Draw(stats, rects)
	}
}

func (window *Window) Close() {
	window.ctrl.Close()
	window.renderer.Unload()
	window.camera.Close()
	window.passes.Close()
	window.pool.Close()
	if window.pointer != nil {
		window.pointer.Close()
	}
}
