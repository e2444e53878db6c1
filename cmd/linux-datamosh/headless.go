package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"linux-datamosh/internal/config"
	"linux-datamosh/internal/mosh"
	"linux-datamosh/internal/soft"
	"linux-datamosh/internal/utils"
)

func runHeadless(ctx context.Context, opts *options, cfg config.Config, src image.Image, updates <-chan config.Config) error {
	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("headless: %dx%d output: %w", opts.width, opts.height, mosh.ErrInvalidSize)
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}

	pool := soft.NewPool()
	ctrl := mosh.NewController(pool, soft.NewExecutor(),
		mosh.WithParameters(cfg.Effect),
		mosh.WithPrimingOutput(cfg.PrimingOutput),
	)
	defer func() {
		ctrl.Close()
		if pool.Live() != 0 || pool.BadReleases() != 0 {
			utils.Warn("Headless: pool ended with %d live buffers and %d bad releases", pool.Live(), pool.BadReleases())
		}
	}()

	stereo := cfg.Stereo
	eyes := []mosh.Eye{mosh.Left}
	if stereo {
		eyes = append(eyes, mosh.Right)
	}

	cam := soft.NewPanCamera(src, opts.width, opts.height, opts.speed)
	dst := soft.NewBuffer(opts.width, opts.height, mosh.FormatColor)

	utils.Info("Headless: %d frames of %dx%d into %s", opts.headless, opts.width, opts.height, opts.outDir)
	for n := uint64(1); n <= uint64(opts.headless); n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case c := <-updates:
			ctrl.SetParameters(c.Effect)
			ctrl.SetPrimingOutput(c.PrimingOutput)
		default:
		}

		if n == uint64(opts.startAt) {
			ctrl.Start()
		}
		if opts.stopAt > 0 && n == uint64(opts.stopAt) {
			ctrl.Stop()
		}

		for _, eye := range eyes {
			source, motion := cam.Render(n, eye, stereo)
			ctrl.RenderFrame(mosh.Frame{
				Source:      source,
				Destination: dst,
				Motion:      motion,
				Counter:     n,
				Stereo:      stereo,
				Eye:         eye,
			})

			name := fmt.Sprintf("frame_%05d.png", n)
			if stereo {
				name = fmt.Sprintf("frame_%05d_%s.png", n, eye)
			}
			if err := writePNG(filepath.Join(opts.outDir, name), dst.ToImage()); err != nil {
				return err
			}
		}
		utils.Debug("Headless: frame %d, left eye %s", n, ctrl.Eye(mosh.Left).Sequence)
	}
	return nil
}
