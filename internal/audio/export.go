package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

const (
	exportBitDepth      = 16
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WriteWAV encodes the buffer as 16-bit PCM WAV.
func WriteWAV(w io.WriteSeeker, b *Buffer) error {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return fmt.Errorf("invalid format: rate=%d channels=%d", b.SampleRate, b.Channels)
	}
	enc := gowav.NewEncoder(w, b.SampleRate, exportBitDepth, b.Channels, wavFormatPCM)

	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = toInt16(s)
	}
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           data,
		SourceBitDepth: exportBitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// ExportWAV writes the buffer to path, replacing any existing file.
func ExportWAV(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteWAV(f, b); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func toInt16(s float64) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(math.Round(s * math.MaxInt16))
}
