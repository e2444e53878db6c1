package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"linux-datamosh/internal/config"
	"linux-datamosh/internal/utils"
)

type options struct {
	imagePath  string
	pkgPath    string
	entry      string
	configPath string
	watch      bool
	decodePath string

	width    int
	height   int
	stereo   bool
	priming  string
	headless int
	outDir   string
	startAt  int
	stopAt   int
	speed    float64

	globalMouse bool
	debug       bool
	logLevel    string

	blockSize int
	velocity  float64
	entropy   float64
	contrast  float64
	diffusion float64
}

func parseFlags() *options {
	defaults := config.Default()
	opts := &options{}

	flag.StringVar(&opts.imagePath, "image", "", "Source image (.png, .jpg or .tex)")
	flag.StringVar(&opts.pkgPath, "pkg", "", "Wallpaper Engine scene.pkg to take the source from")
	flag.StringVar(&opts.entry, "entry", "", "Entry inside -pkg (default: first .tex)")
	flag.StringVar(&utils.AssetsPath, "assets", "", "Extra directory searched for -image")
	flag.StringVar(&opts.configPath, "config", "", "TOML preset with effect parameters")
	flag.BoolVar(&opts.watch, "watch", false, "Reload -config when it changes")
	flag.StringVar(&opts.decodePath, "decode", "", "Convert a single .tex to PNG in -out and exit")

	flag.IntVar(&opts.width, "width", 1280, "Window or output width")
	flag.IntVar(&opts.height, "height", 720, "Window or output height")
	flag.BoolVar(&opts.stereo, "stereo", defaults.Stereo, "Render two eyes side by side")
	flag.StringVar(&opts.priming, "priming", defaults.PrimingOutput.String(), "What the priming frame shows: work or displacement")
	flag.IntVar(&opts.headless, "headless", 0, "Render N frames on the CPU to PNG files instead of opening a window")
	flag.StringVar(&opts.outDir, "out", "out", "Output directory for -headless and -decode")
	flag.IntVar(&opts.startAt, "start-at", 1, "Headless frame at which the effect starts")
	flag.IntVar(&opts.stopAt, "stop-at", 0, "Headless frame at which the effect stops (0: never)")
	flag.Float64Var(&opts.speed, "speed", 1.0, "Camera speed multiplier")

	flag.BoolVar(&opts.globalMouse, "global-mouse", false, "Steer with the X11 desktop pointer instead of the window mouse")
	flag.BoolVar(&opts.debug, "debug", false, "Enable verbose debug logging")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	p := defaults.Effect
	flag.IntVar(&opts.blockSize, "block-size", p.BlockSize, "Block size in pixels (minimum 4)")
	flag.Float64Var(&opts.velocity, "velocity", float64(p.VelocityScale), "Motion vector scale")
	flag.Float64Var(&opts.entropy, "entropy", float64(p.Entropy), "Amount of block noise, 0 to 1")
	flag.Float64Var(&opts.contrast, "contrast", float64(p.NoiseContrast), "Block noise contrast")
	flag.Float64Var(&opts.diffusion, "diffusion", float64(p.Diffusion), "Random jitter of the motion, in pixels")

	flag.Parse()
	return opts
}

// resolveConfig loads -config and lays the explicitly set flags over it.
func resolveConfig(opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	return applyFlags(cfg, opts)
}

func applyFlags(cfg config.Config, opts *options) (config.Config, error) {
	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "stereo":
			cfg.Stereo = opts.stereo
		case "priming":
			var perr error
			cfg.PrimingOutput, perr = config.ParsePrimingOutput(opts.priming)
			err = errors.Join(err, perr)
		case "block-size":
			cfg.Effect.BlockSize = opts.blockSize
		case "velocity":
			cfg.Effect.VelocityScale = float32(opts.velocity)
		case "entropy":
			cfg.Effect.Entropy = float32(opts.entropy)
		case "contrast":
			cfg.Effect.NoiseContrast = float32(opts.contrast)
		case "diffusion":
			cfg.Effect.Diffusion = float32(opts.diffusion)
		}
	})
	return cfg, err
}

// watchConfig starts the preset watcher. Reloaded presets go through the
// same flag overrides as the initial one.
func watchConfig(ctx context.Context, opts *options) <-chan config.Config {
	out := make(chan config.Config, 1)
	if !opts.watch || opts.configPath == "" {
		return out
	}

	raw := make(chan config.Config)
	go func() {
		if err := config.Watch(ctx, opts.configPath, raw); err != nil {
			utils.Error("Config watch stopped: %v", err)
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cfg := <-raw:
				cfg, err := applyFlags(cfg, opts)
				if err != nil {
					utils.Warn("Config: %v", err)
					continue
				}
				// Only the newest preset matters.
				select {
				case <-out:
				default:
				}
				out <- cfg
			}
		}
	}()
	utils.Info("Watching %s", opts.configPath)
	return out
}

func main() {
	opts := parseFlags()

	level, err := utils.ParseLevel(opts.logLevel)
	if err != nil {
		utils.Error("%v", err)
		os.Exit(2)
	}
	utils.CurrentLevel = level
	if opts.debug {
		utils.DebugMode = true
		utils.CurrentLevel = utils.LevelDebug
	}

	if opts.decodePath != "" {
		if err := runDecode(opts.decodePath, opts.outDir); err != nil {
			utils.Error("Decode failed: %v", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		utils.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	src, err := loadSource(opts)
	if err != nil {
		utils.Error("Failed to load source: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	updates := watchConfig(ctx, opts)

	utils.Info("--- Datamosh Start ---")
	if opts.headless > 0 {
		if err := runHeadless(ctx, opts, cfg, src, updates); err != nil {
			utils.Error("Headless render failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := runWindow(ctx, opts, cfg, src, updates); err != nil {
		utils.Error("%v", err)
		os.Exit(1)
	}
}
