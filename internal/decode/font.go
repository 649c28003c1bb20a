package decode

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// Font is a rasterisable face at a fixed size
type Font struct {
	Face     font.Face
	Size     float64
	DPI      float64
	Metrics  font.Metrics
	dataSize int64
}

func (f *Font) MemorySize() int64 { return f.dataSize }

// Close releases the face
func (f *Font) Close() error {
	if f.Face == nil {
		return nil
	}
	return f.Face.Close()
}

// FaceDecoder parses .ttf files with freetype and .otf files with opentype
type FaceDecoder struct {
	Size float64
	DPI  float64
}

func (d FaceDecoder) DecodeFont(path string) (*Font, error) {
	data, err := os.ReadFile(path) // #nosec G304 - asset paths come from the registry
	if err != nil {
		return nil, err
	}

	var face font.Face
	switch ext := extension(path); ext {
	case ".ttf":
		var f *truetype.Font
		if f, err = truetype.Parse(data); err == nil {
			face = truetype.NewFace(f, &truetype.Options{Size: d.Size, DPI: d.DPI, Hinting: font.HintingNone})
		}
	case ".otf":
		var f *opentype.Font
		if f, err = opentype.Parse(data); err == nil {
			face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: d.Size, DPI: d.DPI, Hinting: font.HintingNone})
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode font %s: %w", path, err)
	}

	return &Font{
		Face:     face,
		Size:     d.Size,
		DPI:      d.DPI,
		Metrics:  face.Metrics(),
		dataSize: int64(len(data)),
	}, nil
}
