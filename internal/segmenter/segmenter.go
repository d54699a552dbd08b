// Package segmenter splits decoded audio into non-silent segments using an
// RMS threshold and a minimum silence length.
package segmenter

import (
	"errors"
	"fmt"
	"math"
	"time"

	"s2t-go/internal/audio"
)

// Options controls silence detection.
type Options struct {
	MinSilence  time.Duration // shortest gap treated as a boundary
	ThresholdDB float64       // dBFS at or below which a window is silent
	SeekStep    time.Duration // scan step, 1ms when zero
}

// DefaultOptions returns 1.5s of silence below -40 dBFS, scanned every millisecond.
func DefaultOptions() Options {
	return Options{MinSilence: 1500 * time.Millisecond, ThresholdDB: -40, SeekStep: time.Millisecond}
}

func (o Options) Validate() error {
	var errs []error
	if o.MinSilence < time.Millisecond {
		errs = append(errs, fmt.Errorf("min silence must be at least 1ms, got %v", o.MinSilence))
	}
	if o.ThresholdDB > 0 {
		errs = append(errs, fmt.Errorf("threshold must be <= 0 dBFS, got %.1f", o.ThresholdDB))
	}
	if o.SeekStep < 0 {
		errs = append(errs, fmt.Errorf("seek step must not be negative, got %v", o.SeekStep))
	}
	return errors.Join(errs...)
}

func (o Options) stepMs() int {
	if s := int(o.SeekStep / time.Millisecond); s > 0 {
		return s
	}
	return 1
}

// Range is a half-open millisecond interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Segment is one non-silent stretch of the source audio.
type Segment struct {
	Index   int
	StartMs int
	EndMs   int
	Audio   *audio.Buffer
}

func (s Segment) Start() time.Duration { return time.Duration(s.StartMs) * time.Millisecond }

func (s Segment) End() time.Duration { return time.Duration(s.EndMs) * time.Millisecond }

func (s Segment) Duration() time.Duration { return s.End() - s.Start() }

func (s Segment) String() string {
	return fmt.Sprintf("segment %d: %dms-%dms", s.Index, s.StartMs, s.EndMs)
}

// Detect returns the non-silent segments of b in ascending time order,
// each with its own copy of the samples.
func Detect(b *audio.Buffer, opts Options) ([]Segment, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ranges := DetectNonsilent(b, opts)
	total := b.LenMs()
	segments := make([]Segment, 0, len(ranges))
	for i, r := range ranges {
		endFrame := b.FrameAt(r.End)
		if r.End >= total {
			// keep the sub-millisecond tail
			endFrame = b.Frames()
		}
		buf := b.SliceFrames(b.FrameAt(r.Start), endFrame)
		segments = append(segments, Segment{Index: i, StartMs: r.Start, EndMs: r.End, Audio: buf})
	}
	return segments, nil
}

// DetectNonsilent returns the complement of DetectSilence within the buffer.
func DetectNonsilent(b *audio.Buffer, opts Options) []Range {
	total := b.LenMs()
	if total == 0 {
		return nil
	}
	silent := DetectSilence(b, opts)
	if len(silent) == 0 {
		return []Range{{0, total}}
	}
	if silent[0].Start == 0 && silent[0].End == total {
		return nil
	}

	var out []Range
	prevEnd := 0
	for _, s := range silent {
		out = append(out, Range{prevEnd, s.Start})
		prevEnd = s.End
	}
	if prevEnd != total {
		out = append(out, Range{prevEnd, total})
	}
	if len(out) > 0 && out[0].Start == 0 && out[0].End == 0 {
		out = out[1:]
	}
	return out
}

// DetectSilence returns silent ranges at least MinSilence long. A buffer
// shorter than MinSilence is reported as one silent range when its overall
// level is below the threshold.
func DetectSilence(b *audio.Buffer, opts Options) []Range {
	total := b.LenMs()
	if total == 0 {
		return nil
	}
	minMs := int(opts.MinSilence / time.Millisecond)
	if minMs < 1 {
		minMs = 1
	}
	thresh := audio.DBToAmplitude(opts.ThresholdDB)

	if total < minMs {
		if b.RMS() <= thresh {
			return []Range{{0, total}}
		}
		return nil
	}

	energy := newEnergyIndex(b, total)
	step := opts.stepMs()
	last := total - minMs

	var starts []int
	check := func(i int) {
		if energy.rms(i, i+minMs) <= thresh {
			starts = append(starts, i)
		}
	}
	for i := 0; i <= last; i += step {
		check(i)
	}
	if last%step != 0 {
		check(last)
	}
	if len(starts) == 0 {
		return nil
	}

	var ranges []Range
	prev := starts[0]
	rangeStart := prev
	for _, s := range starts[1:] {
		continuous := s == prev+step
		hasGap := s > prev+minMs
		if !continuous && hasGap {
			ranges = append(ranges, Range{rangeStart, prev + minMs})
			rangeStart = s
		}
		prev = s
	}
	ranges = append(ranges, Range{rangeStart, prev + minMs})
	return ranges
}

// energyIndex holds cumulative squared sample sums at millisecond
// boundaries, so any whole-millisecond window RMS is O(1).
type energyIndex struct {
	sums    []float64 // sums[ms] = energy of frames before FrameAt(ms)
	frames  []int     // frames[ms] = FrameAt(ms)
	channel int
}

func newEnergyIndex(b *audio.Buffer, totalMs int) *energyIndex {
	idx := &energyIndex{
		sums:    make([]float64, totalMs+1),
		frames:  make([]int, totalMs+1),
		channel: b.Channels,
	}
	var acc float64
	frame := 0
	for ms := 0; ms <= totalMs; ms++ {
		end := b.FrameAt(ms)
		for ; frame < end; frame++ {
			for c := 0; c < b.Channels; c++ {
				s := b.Samples[frame*b.Channels+c]
				acc += s * s
			}
		}
		idx.sums[ms] = acc
		idx.frames[ms] = end
	}
	return idx
}

func (e *energyIndex) rms(startMs, endMs int) float64 {
	n := (e.frames[endMs] - e.frames[startMs]) * e.channel
	if n <= 0 {
		return 0
	}
	return math.Sqrt((e.sums[endMs] - e.sums[startMs]) / float64(n))
}
