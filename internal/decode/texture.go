package decode

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// TextureOptions controls texture post-processing
type TextureOptions struct {
	// Pixelated selects nearest-neighbour filtering for generated mip levels
	Pixelated bool
	MipMaps   bool
}

// Texture is a decoded image normalised to RGBA
type Texture struct {
	Image     *image.RGBA
	MipLevels []*image.RGBA
	Pixelated bool
}

func (t *Texture) Width() int  { return t.Image.Bounds().Dx() }
func (t *Texture) Height() int { return t.Image.Bounds().Dy() }

// MemorySize is the resident size of the base image and every mip level
func (t *Texture) MemorySize() int64 {
	n := int64(len(t.Image.Pix))
	for _, level := range t.MipLevels {
		n += int64(len(level.Pix))
	}
	return n
}

// ImageDecoder decodes PNG, JPEG, BMP and TGA files.
// Other extensions are sniffed with image.Decode.
type ImageDecoder struct{}

func (ImageDecoder) DecodeTexture(path string, opts TextureOptions) (*Texture, error) {
	f, err := os.Open(path) // #nosec G304 - asset paths come from the registry
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := decodeImage(f, extension(path))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("decode image %s: %w", path, ErrEmptyImage)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	tex := &Texture{Image: rgba, Pixelated: opts.Pixelated}
	if opts.MipMaps {
		tex.MipLevels = buildMipChain(rgba, opts.Pixelated)
	}
	return tex, nil
}

func decodeImage(r io.Reader, ext string) (image.Image, error) {
	switch ext {
	case ".png":
		return png.Decode(r)
	case ".jpg", ".jpeg":
		return jpeg.Decode(r)
	case ".bmp":
		return bmp.Decode(r)
	case ".tga":
		return decodeTGA(r)
	default:
		img, _, err := image.Decode(r)
		return img, err
	}
}

// buildMipChain halves the image until it reaches 1x1
func buildMipChain(base *image.RGBA, pixelated bool) []*image.RGBA {
	var scaler draw.Interpolator = draw.ApproxBiLinear
	if pixelated {
		scaler = draw.NearestNeighbor
	}

	var levels []*image.RGBA
	src := base
	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	for w > 1 || h > 1 {
		w, h = max(1, w/2), max(1, h/2)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		levels = append(levels, dst)
		src = dst
	}
	return levels
}
