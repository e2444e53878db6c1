// Package config loads effect presets from TOML files and watches them for
// changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"linux-datamosh/internal/mosh"
)

var ErrPrimingOutput = errors.New("config: unknown priming_output")

// Config is the contents of a preset file.
type Config struct {
	Effect        mosh.EffectParameters
	PrimingOutput mosh.PrimingOutput
	Stereo        bool
}

// file mirrors the on-disk layout. Pointers distinguish missing keys from
// zero values.
type file struct {
	BlockSize     *int     `toml:"block_size"`
	VelocityScale *float32 `toml:"velocity_scale"`
	Entropy       *float32 `toml:"entropy"`
	NoiseContrast *float32 `toml:"noise_contrast"`
	Diffusion     *float32 `toml:"diffusion"`
	PrimingOutput *string  `toml:"priming_output"`
	Stereo        *bool    `toml:"stereo"`
}

func Default() Config {
	return Config{
		Effect:        mosh.DefaultParameters(),
		PrimingOutput: mosh.PrimingShowWork,
	}
}

// ParsePrimingOutput accepts "work" or "displacement".
func ParsePrimingOutput(s string) (mosh.PrimingOutput, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "work":
		return mosh.PrimingShowWork, nil
	case "displacement", "disp":
		return mosh.PrimingShowDisplacement, nil
	}
	return mosh.PrimingShowWork, fmt.Errorf("%w %q", ErrPrimingOutput, s)
}

// Parse decodes a preset. Keys that are absent keep their defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	if f.BlockSize != nil {
		cfg.Effect.BlockSize = *f.BlockSize
	}
	if f.VelocityScale != nil {
		cfg.Effect.VelocityScale = *f.VelocityScale
	}
	if f.Entropy != nil {
		cfg.Effect.Entropy = *f.Entropy
	}
	if f.NoiseContrast != nil {
		cfg.Effect.NoiseContrast = *f.NoiseContrast
	}
	if f.Diffusion != nil {
		cfg.Effect.Diffusion = *f.Diffusion
	}
	if f.PrimingOutput != nil {
		p, err := ParsePrimingOutput(*f.PrimingOutput)
		if err != nil {
			return cfg, err
		}
		cfg.PrimingOutput = p
	}
	if f.Stereo != nil {
		cfg.Stereo = *f.Stereo
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Encode writes cfg in the preset layout.
func Encode(cfg Config) ([]byte, error) {
	priming := cfg.PrimingOutput.String()
	f := file{
		BlockSize:     &cfg.Effect.BlockSize,
		VelocityScale: &cfg.Effect.VelocityScale,
		Entropy:       &cfg.Effect.Entropy,
		NoiseContrast: &cfg.Effect.NoiseContrast,
		Diffusion:     &cfg.Effect.Diffusion,
		PrimingOutput: &priming,
		Stereo:        &cfg.Stereo,
	}
	return toml.Marshal(f)
}
