package convert

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"linux-datamosh/internal/utils"
)

// LoadImage reads a .tex, PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".tex") {
		return LoadTex(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadFromPackage reads an image entry of a scene.pkg. An empty entry picks
// the first .tex in the package.
func LoadFromPackage(pkgPath, entry string) (image.Image, error) {
	pkg, err := OpenPkg(pkgPath)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	if entry == "" {
		e, ok := pkg.FirstWithSuffix(".tex")
		if !ok {
			return nil, fmt.Errorf("%s: %w: no .tex entry", pkgPath, ErrNotInPackage)
		}
		entry = e.Name
		utils.Info("Unpacker: using %s from %s", entry, pkgPath)
	}

	data, err := pkg.ReadFile(entry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pkgPath, err)
	}
	if strings.EqualFold(filepath.Ext(entry), ".tex") {
		return DecodeTex(bytes.NewReader(data))
	}
	return decode(data)
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// Fill scales img to cover a w x h frame, cropping the overflow evenly.
func Fill(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	b := img.Bounds()
	if b.Empty() || w <= 0 || h <= 0 {
		return dst
	}

	scale := max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	cw := int(float64(w) / scale)
	ch := int(float64(h) / scale)
	x0 := b.Min.X + (b.Dx()-cw)/2
	y0 := b.Min.Y + (b.Dy()-ch)/2

	draw.CatmullRom.Scale(dst, dst.Bounds(), img, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)
	return dst
}
