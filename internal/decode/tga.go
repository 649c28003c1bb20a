package decode

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

const (
	tgaHeaderSize = 18

	tgaTrueColor    = 2
	tgaGrayscale    = 3
	tgaRLETrueColor = 10
	tgaRLEGrayscale = 11

	tgaOriginTop = 0x20
)

var errTGA = errors.New("tga")

type tgaHeader struct {
	idLength     uint8
	colorMapType uint8
	imageType    uint8
	width        int
	height       int
	pixelDepth   uint8
	descriptor   uint8
}

// decodeTGA reads uncompressed and run-length encoded truecolor or grayscale TGA images
func decodeTGA(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)

	var raw [tgaHeaderSize]byte
	if _, err := io.ReadFull(br, raw[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", errTGA, err)
	}
	h := tgaHeader{
		idLength:     raw[0],
		colorMapType: raw[1],
		imageType:    raw[2],
		width:        int(binary.LittleEndian.Uint16(raw[12:14])),
		height:       int(binary.LittleEndian.Uint16(raw[14:16])),
		pixelDepth:   raw[16],
		descriptor:   raw[17],
	}

	if h.colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped images: %w", errTGA, ErrUnsupportedFormat)
	}

	gray := false
	switch h.imageType {
	case tgaTrueColor, tgaRLETrueColor:
		if h.pixelDepth != 24 && h.pixelDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit truecolor: %w", errTGA, h.pixelDepth, ErrUnsupportedFormat)
		}
	case tgaGrayscale, tgaRLEGrayscale:
		if h.pixelDepth != 8 {
			return nil, fmt.Errorf("%w: %d-bit grayscale: %w", errTGA, h.pixelDepth, ErrUnsupportedFormat)
		}
		gray = true
	default:
		return nil, fmt.Errorf("%w: image type %d: %w", errTGA, h.imageType, ErrUnsupportedFormat)
	}
	if h.width == 0 || h.height == 0 {
		return nil, fmt.Errorf("%w: %w", errTGA, ErrEmptyImage)
	}

	if _, err := br.Discard(int(h.idLength)); err != nil {
		return nil, fmt.Errorf("%w: image id: %v", errTGA, err)
	}

	bpp := int(h.pixelDepth) / 8
	data := make([]byte, h.width*h.height*bpp)
	var err error
	if h.imageType == tgaRLETrueColor || h.imageType == tgaRLEGrayscale {
		err = readTGARLE(br, data, bpp)
	} else {
		_, err = io.ReadFull(br, data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: pixel data: %v", errTGA, err)
	}

	topDown := h.descriptor&tgaOriginTop != 0
	row := func(y int) []byte {
		if !topDown {
			y = h.height - 1 - y
		}
		return data[y*h.width*bpp : (y+1)*h.width*bpp]
	}

	if gray {
		img := image.NewGray(image.Rect(0, 0, h.width, h.height))
		for y := 0; y < h.height; y++ {
			copy(img.Pix[y*img.Stride:], row(y))
		}
		return img, nil
	}

	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	for y := 0; y < h.height; y++ {
		src := row(y)
		for x := 0; x < h.width; x++ {
			p := src[x*bpp:]
			a := uint8(0xff)
			if bpp == 4 {
				a = p[3]
			}
			img.SetNRGBA(x, y, color.NRGBA{R: p[2], G: p[1], B: p[0], A: a})
		}
	}
	return img, nil
}

func readTGARLE(r *bufio.Reader, dst []byte, bpp int) error {
	pixel := make([]byte, bpp)
	for off := 0; off < len(dst); {
		hdr, err := r.ReadByte()
		if err != nil {
			return err
		}
		count := int(hdr&0x7f) + 1
		if off+count*bpp > len(dst) {
			return errors.New("run exceeds image bounds")
		}
		if hdr&0x80 != 0 {
			if _, err := io.ReadFull(r, pixel); err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				copy(dst[off:], pixel)
				off += bpp
			}
			continue
		}
		if _, err := io.ReadFull(r, dst[off:off+count*bpp]); err != nil {
			return err
		}
		off += count * bpp
	}
	return nil
}
