package decode

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// Sound holds interleaved PCM samples in [-1, 1]
type Sound struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames is the number of samples per channel
func (s *Sound) Frames() int {
	if s.Channels == 0 {
		return 0
	}
	return len(s.Samples) / s.Channels
}

func (s *Sound) Duration() time.Duration {
	if s.SampleRate == 0 {
		return 0
	}
	return time.Duration(s.Frames()) * time.Second / time.Duration(s.SampleRate)
}

func (s *Sound) MemorySize() int64 {
	return int64(len(s.Samples)) * 4
}

// AudioDecoder decodes WAV, MP3, OGG Vorbis and FLAC files
type AudioDecoder struct{}

func (AudioDecoder) DecodeSound(path string) (*Sound, error) {
	f, err := os.Open(path) // #nosec G304 - asset paths come from the registry
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snd *Sound
	switch ext := extension(path); ext {
	case ".wav":
		snd, err = decodeWAV(f)
	case ".mp3":
		snd, err = decodeMP3(f)
	case ".ogg":
		snd, err = decodeOgg(f)
	case ".flac":
		snd, err = decodeFLAC(f)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode sound %s: %w", path, err)
	}
	if len(snd.Samples) == 0 || snd.Channels == 0 {
		return nil, fmt.Errorf("decode sound %s: %w", path, ErrNoSamples)
	}
	return snd, nil
}

func decodeWAV(r io.ReadSeeker) (*Sound, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil {
		return nil, ErrNoSamples
	}

	depth := int(d.BitDepth)
	if depth == 0 {
		depth = buf.SourceBitDepth
	}
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("%w: %d-bit pcm", ErrUnsupportedFormat, depth)
	}

	samples := make([]float32, len(buf.Data))
	if depth == 8 {
		for i, v := range buf.Data {
			samples[i] = float32(v-128) / 128
		}
	} else {
		scale := float32(int64(1) << (depth - 1))
		for i, v := range buf.Data {
			samples[i] = float32(v) / scale
		}
	}

	return &Sound{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// go-mp3 always emits 16-bit little-endian stereo
func decodeMP3(r io.Reader) (*Sound, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(d)
	samples := make([]float32, 0, max(0, int(d.Length()/2)))
	var frame [2]byte
	for {
		if _, err := io.ReadFull(br, frame[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
		v := int16(binary.LittleEndian.Uint16(frame[:]))
		samples = append(samples, float32(v)/32768)
	}

	return &Sound{Samples: samples, SampleRate: d.SampleRate(), Channels: 2}, nil
}

func decodeOgg(r io.Reader) (*Sound, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Sound{Samples: samples, SampleRate: format.SampleRate, Channels: format.Channels}, nil
}

func decodeFLAC(r io.Reader) (*Sound, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))
	samples := make([]float32, 0, int(stream.Info.NSamples)*channels)

	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		n := frame.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}

	return &Sound{Samples: samples, SampleRate: int(stream.Info.SampleRate), Channels: channels}, nil
}
