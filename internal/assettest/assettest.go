// Package assettest writes small, valid asset files for tests.
package assettest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"
)

// PNG encodes a solid w×h image
func PNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// TGA encodes an uncompressed 32-bit top-left-origin image with a solid colour
func TGA(w, h int, c color.NRGBA) []byte {
	var buf bytes.Buffer
	hdr := make([]byte, 18)
	hdr[2] = 2
	binary.LittleEndian.PutUint16(hdr[12:], uint16(w))
	binary.LittleEndian.PutUint16(hdr[14:], uint16(h))
	hdr[16] = 32
	hdr[17] = 0x20 | 8
	buf.Write(hdr)
	for i := 0; i < w*h; i++ {
		buf.Write([]byte{c.B, c.G, c.R, c.A})
	}
	return buf.Bytes()
}

// WAV encodes 16-bit PCM with the given interleaved samples
func WAV(sampleRate, channels int, samples []int16) []byte {
	var buf bytes.Buffer
	dataSize := len(samples) * 2
	le := binary.LittleEndian

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, le, uint32(16))
	_ = binary.Write(&buf, le, uint16(1))
	_ = binary.Write(&buf, le, uint16(channels))
	_ = binary.Write(&buf, le, uint32(sampleRate))
	_ = binary.Write(&buf, le, uint32(sampleRate*channels*2))
	_ = binary.Write(&buf, le, uint16(channels*2))
	_ = binary.Write(&buf, le, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(dataSize))
	_ = binary.Write(&buf, le, samples)
	return buf.Bytes()
}

// Tone returns n mono samples alternating between +amp and -amp
func Tone(n int, amp int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = amp
		} else {
			out[i] = -amp
		}
	}
	return out
}

// Font returns the bytes of the Go Regular TrueType font
func Font() []byte {
	return goregular.TTF
}

// Write creates path with data, creating parent directories
func Write(t testing.TB, path string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Rewrite replaces the file content and pushes its modification time forward
// so mtime comparisons see the change even on coarse-grained filesystems.
func Rewrite(t testing.TB, path string, data []byte) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	Write(t, path, data)
	Touch(t, path, info.ModTime().Add(2*time.Second))
}

// Touch sets both access and modification time of path
func Touch(t testing.TB, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
