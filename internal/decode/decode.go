// Package decode turns asset files into in-memory payloads.
//
// Each category has a small interface so the registry can be driven with
// stub decoders in tests. The default implementations dispatch on the file
// extension.
package decode

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/leslieo2/go-asset-reload/internal/constants"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyImage        = errors.New("image has no pixels")
	ErrNoSamples         = errors.New("sound has no samples")
)

// TextureDecoder builds a texture payload from an image file
type TextureDecoder interface {
	DecodeTexture(path string, opts TextureOptions) (*Texture, error)
}

// SoundDecoder builds a sound payload from an audio file
type SoundDecoder interface {
	DecodeSound(path string) (*Sound, error)
}

// FontDecoder builds a font face from a font file
type FontDecoder interface {
	DecodeFont(path string) (*Font, error)
}

// Decoders groups one decoder per payload kind
type Decoders struct {
	Texture TextureDecoder
	Sound   SoundDecoder
	Font    FontDecoder
}

// DefaultDecoders returns the file-format decoders with fonts rasterised at fontSize points
func DefaultDecoders(fontSize float64) Decoders {
	if fontSize <= 0 {
		fontSize = constants.DefaultFontSize
	}
	return Decoders{
		Texture: ImageDecoder{},
		Sound:   AudioDecoder{},
		Font:    FaceDecoder{Size: fontSize, DPI: constants.DefaultFontDPI},
	}
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
