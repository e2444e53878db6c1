package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"linux-datamosh/internal/convert"
	"linux-datamosh/internal/utils"
)

// loadSource picks the still image the camera flies over: a scene.pkg entry,
// an image file, or a generated pattern when neither is given.
func loadSource(opts *options) (image.Image, error) {
	switch {
	case opts.pkgPath != "":
		utils.Info("Loading %s from %s", displayEntry(opts.entry), opts.pkgPath)
		return convert.LoadFromPackage(opts.pkgPath, opts.entry)

	case opts.imagePath != "":
		path := utils.FindImageFile(opts.imagePath)
		if path == "" {
			return nil, fmt.Errorf("image %s: %w", opts.imagePath, os.ErrNotExist)
		}
		utils.Info("Loading %s", path)
		return convert.LoadImage(path)
	}

	utils.Info("No -image or -pkg given, using a generated pattern")
	return testPattern(1920, 1080), nil
}

func displayEntry(entry string) string {
	if entry == "" {
		return "first texture"
	}
	return entry
}

// testPattern is a colored grid with diagonal bands, busy enough for the
// smear to be visible.
func testPattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u, v := float64(x)/float64(w), float64(y)/float64(h)
			band := 0.5 + 0.5*math.Sin((u+v)*math.Pi*12)
			grid := 1.0
			if x%96 < 3 || y%96 < 3 {
				grid = 0.2
			}
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * u * grid),
				G: uint8(255 * band * grid),
				B: uint8(255 * (1 - v) * grid),
				A: 255,
			})
		}
	}
	return img
}

// runDecode converts a single .tex to PNG in outDir.
func runDecode(texPath, outDir string) error {
	utils.Info("Decoding %s", texPath)
	img, err := convert.LoadImage(texPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(texPath), filepath.Ext(texPath))
	outPath := filepath.Join(outDir, base+".png")
	if err := writePNG(outPath, img); err != nil {
		return err
	}
	utils.Info("Decode successful! Saved to: %s", outPath)
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
