package audio

import (
	"math"
	"time"
)

// Buffer holds decoded PCM audio. Samples are interleaved by channel and
// normalized to [-1, 1].
type Buffer struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (one sample per channel).
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// LenMs returns the length in whole milliseconds.
func (b *Buffer) LenMs() int {
	return int(b.Duration() / time.Millisecond)
}

// FrameAt maps a millisecond offset to a frame index, clamped to the buffer.
func (b *Buffer) FrameAt(ms int) int {
	if ms <= 0 || b.SampleRate <= 0 {
		return 0
	}
	f := int(int64(ms) * int64(b.SampleRate) / 1000)
	if n := b.Frames(); f > n {
		return n
	}
	return f
}

// SliceMs returns a copy of the audio between two millisecond offsets.
func (b *Buffer) SliceMs(startMs, endMs int) *Buffer {
	return b.SliceFrames(b.FrameAt(startMs), b.FrameAt(endMs))
}

// SliceFrames returns a copy of frames [start, end), clamped to the buffer.
func (b *Buffer) SliceFrames(start, end int) *Buffer {
	n := b.Frames()
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	samples := make([]float64, (end-start)*b.Channels)
	copy(samples, b.Samples[start*b.Channels:end*b.Channels])
	return &Buffer{Samples: samples, SampleRate: b.SampleRate, Channels: b.Channels}
}

// RMS returns the root mean square over every sample of every channel.
func (b *Buffer) RMS() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b.Samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(b.Samples)))
}

// DBToAmplitude converts dBFS to a linear amplitude relative to full scale.
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}
