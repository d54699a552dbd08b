package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/gopxl/beep/mp3"
)

var (
	// ErrInputNotFound is returned when the audio path does not exist.
	ErrInputNotFound = errors.New("input file not found")
	// ErrDecode is returned when the container cannot be parsed.
	ErrDecode = errors.New("audio decode failed")
)

const streamChunk = 4096

// Load opens and decodes an audio file. The container is chosen by extension.
func Load(path string) (*Buffer, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInputNotFound, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	buf, err := Decode(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// Decode reads a complete stream from r using the named container ("mp3" or "wav").
func Decode(r io.ReadSeeker, container string) (*Buffer, error) {
	var (
		buf *Buffer
		err error
	)
	switch strings.TrimPrefix(strings.ToLower(container), ".") {
	case "mp3":
		buf, err = decodeMP3(r)
	case "wav":
		buf, err = decodeWAV(r)
	default:
		return nil, fmt.Errorf("%w: unsupported container %q", ErrDecode, container)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return buf, nil
}

// decodeMP3 pulls every frame out of the beep mp3 streamer. go-mp3 always
// yields stereo; mono sources carry the same value in both channels.
func decodeMP3(r io.Reader) (*Buffer, error) {
	s, format, err := mp3.Decode(io.NopCloser(r))
	if err != nil {
		return nil, err
	}
	defer s.Close()

	channels := format.NumChannels
	if channels < 1 || channels > 2 {
		channels = 2
	}
	out := &Buffer{SampleRate: int(format.SampleRate), Channels: channels}
	if out.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", out.SampleRate)
	}
	if n := s.Len(); n > 0 {
		out.Samples = make([]float64, 0, n*channels)
	}

	chunk := make([][2]float64, streamChunk)
	for {
		n, ok := s.Stream(chunk)
		for i := 0; i < n; i++ {
			out.Samples = append(out.Samples, chunk[i][0])
			if channels == 2 {
				out.Samples = append(out.Samples, chunk[i][1])
			}
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeWAV reads integer PCM through go-audio and scales it to [-1, 1)
// by the source bit depth. 8-bit WAV is unsigned.
func decodeWAV(r io.ReadSeeker) (*Buffer, error) {
	d := gowav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("unsupported wav encoding %d (integer PCM only)", d.WavAudioFormat)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, err
	}

	depth := int(d.BitDepth)
	channels := int(d.NumChans)
	out := &Buffer{SampleRate: int(d.SampleRate), Channels: channels}
	if out.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", out.SampleRate)
	}
	if bps := depth / 8; bps > 0 && d.PCMSize > 0 {
		out.Samples = make([]float64, 0, d.PCMSize/bps)
	}

	offset, scale := 0.0, float64(int64(1)<<(depth-1))
	if depth == 8 {
		offset = 128
	}
	pcm := &goaudio.IntBuffer{Data: make([]int, streamChunk*channels)}
	for {
		n, err := d.PCMBuffer(pcm)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for _, v := range pcm.Data[:n] {
			out.Samples = append(out.Samples, (float64(v)-offset)/scale)
		}
	}
	// drop a trailing partial frame
	out.Samples = out.Samples[:out.Frames()*channels]
	return out, nil
}
