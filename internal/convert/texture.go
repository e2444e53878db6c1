package convert

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/mauserzjeh/dxt"
	"github.com/pierrec/lz4/v4"

	"linux-datamosh/internal/utils"
)

var (
	ErrBadMagic          = errors.New("convert: invalid texture magic")
	ErrUnsupportedFormat = errors.New("convert: unsupported texture format")
	ErrNoImage           = errors.New("convert: no image found in texture")
)

// Wallpaper Engine texture formats.
const (
	texFormatRGBA8888 = 0
	texFormatDXT5     = 4
	texFormatDXT3     = 6
	texFormatDXT1     = 7
	texFormatRG88     = 8
	texFormatR8       = 9
)

// texReader reads little-endian fields and keeps the first error.
type texReader struct {
	r   io.Reader
	err error
}

func (t *texReader) u32() uint32 {
	var v uint32
	if t.err == nil {
		t.err = binary.Read(t.r, binary.LittleEndian, &v)
	}
	return v
}

func (t *texReader) str(n int) string {
	b := make([]byte, n)
	if t.err == nil {
		_, t.err = io.ReadFull(t.r, b)
	}
	return string(bytes.Trim(b, "\x00"))
}

func (t *texReader) bytes(n uint32) []byte {
	if t.err != nil {
		return nil
	}
	b := make([]byte, n)
	_, t.err = io.ReadFull(t.r, b)
	return b
}

// LoadTex decodes the first mipmap of a Wallpaper Engine .tex file.
func LoadTex(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := DecodeTex(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// DecodeTex decodes the first mipmap of the first image in a .tex stream.
func DecodeTex(r io.Reader) (image.Image, error) {
	t := &texReader{r: r}

	magic := t.str(8)
	t.str(1)
	t.str(8)
	t.str(1)
	if t.err != nil {
		return nil, t.err
	}
	if magic != "TEXV0005" {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, magic)
	}

	format := t.u32()
	t.u32() // flags
	t.u32() // texture width
	t.u32() // texture height
	imgW := t.u32()
	imgH := t.u32()
	t.u32()

	container := t.str(8)
	t.str(1)
	imageCount := t.u32()
	if container == "TEXB0003" {
		t.u32()
	}
	if t.err != nil {
		return nil, t.err
	}
	utils.Debug("Texture: format %d, %dx%d, container %s", format, imgW, imgH, container)

	if imageCount == 0 {
		return nil, ErrNoImage
	}

	mipmapCount := t.u32()
	if t.err != nil {
		return nil, t.err
	}
	if mipmapCount == 0 {
		return nil, ErrNoImage
	}

	mW := t.u32()
	mH := t.u32()
	var isLZ4 bool
	var decompressedSize uint32
	if container != "TEXB0001" {
		isLZ4 = t.u32() == 1
		decompressedSize = t.u32()
	}
	dataSize := t.u32()
	data := t.bytes(dataSize)
	if t.err != nil {
		return nil, t.err
	}

	if isLZ4 {
		utils.Debug("Texture: decompressing LZ4 %d -> %d", dataSize, decompressedSize)
		out := make([]byte, decompressedSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("convert: lz4: %w", err)
		}
		data = out[:n]
	}

	pix, err := decodePixels(format, data, mW, mH)
	if err != nil {
		return nil, err
	}

	rgba := &image.RGBA{
		Pix:    pix,
		Stride: int(mW * 4),
		Rect:   image.Rect(0, 0, int(mW), int(mH)),
	}
	if imgW == 0 || imgH == 0 || imgW > mW || imgH > mH {
		return rgba, nil
	}
	return rgba.SubImage(image.Rect(0, 0, int(imgW), int(imgH))), nil
}

func decodePixels(format uint32, data []byte, w, h uint32) ([]byte, error) {
	blocks := ((w + 3) / 4) * ((h + 3) / 4)
	size := uint32(len(data))
	pixels := w * h

	switch {
	case format == texFormatRGBA8888 && size == pixels*4:
		return data, nil
	case format == texFormatR8 && size == pixels:
		pix := make([]byte, pixels*4)
		for i, v := range data {
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = v, v, v, 255
		}
		return pix, nil
	case format == texFormatRG88 && size == pixels*2:
		pix := make([]byte, pixels*4)
		for i := uint32(0); i < pixels; i++ {
			lum, alpha := data[i*2], data[i*2+1]
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = lum, lum, lum, alpha
		}
		return pix, nil
	case format == texFormatDXT1 || (format != texFormatDXT5 && format != texFormatDXT3 && size == blocks*8):
		return dxt.DecodeDXT1(data, uint(w), uint(h))
	case format == texFormatDXT5 || format == texFormatDXT3 || size == blocks*16:
		// DXT3 is decoded as DXT5; only the alpha differs.
		return dxt.DecodeDXT5(data, uint(w), uint(h))
	case size == pixels*4:
		return data, nil
	}
	return nil, fmt.Errorf("%w: format %d with %d bytes for %dx%d", ErrUnsupportedFormat, format, size, w, h)
}
