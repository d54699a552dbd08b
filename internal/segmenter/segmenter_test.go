package segmenter

import (
	"reflect"
	"testing"
	"time"

	"s2t-go/internal/audio"
)

// part describes a stretch of constant-amplitude audio at 1 kHz mono,
// so one frame is one millisecond.
type part struct {
	ms  int
	amp float64
}

func build(parts ...part) *audio.Buffer {
	b := &audio.Buffer{SampleRate: 1000, Channels: 1}
	for _, p := range parts {
		for i := 0; i < p.ms; i++ {
			v := p.amp
			if i%2 == 1 {
				v = -v
			}
			b.Samples = append(b.Samples, v)
		}
	}
	return b
}

func speech(ms int) part { return part{ms, 0.5} }
func quiet(ms int) part  { return part{ms, 0} }

func opts(minSilenceMs int) Options {
	return Options{MinSilence: time.Duration(minSilenceMs) * time.Millisecond, ThresholdDB: -40, SeekStep: time.Millisecond}
}

func ranges(segs []Segment) []Range {
	out := make([]Range, 0, len(segs))
	for _, s := range segs {
		out = append(out, Range{s.StartMs, s.EndMs})
	}
	return out
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		buf   *audio.Buffer
		minMs int
		want  []Range
	}{
		{
			name:  "three utterances",
			buf:   build(speech(1000), quiet(2000), speech(1000), quiet(2000), speech(500)),
			minMs: 1500,
			want:  []Range{{0, 1000}, {3000, 4000}, {6000, 6500}},
		},
		{
			name:  "gap shorter than minimum merges",
			buf:   build(speech(1000), quiet(1000), speech(1000)),
			minMs: 1500,
			want:  []Range{{0, 3000}},
		},
		{
			name:  "leading and trailing silence trimmed",
			buf:   build(quiet(2000), speech(1000), quiet(2500)),
			minMs: 1500,
			want:  []Range{{2000, 3000}},
		},
		{
			name:  "no silence yields whole buffer",
			buf:   build(speech(4000)),
			minMs: 1500,
			want:  []Range{{0, 4000}},
		},
		{
			name:  "second variant threshold",
			buf:   build(speech(800), quiet(1800), speech(800), quiet(2200), speech(800)),
			minMs: 2000,
			want:  []Range{{0, 3400}, {5600, 6400}},
		},
		{
			name:  "quiet hiss counts as silence",
			buf:   build(speech(1000), part{2000, 0.005}, speech(1000)),
			minMs: 1500,
			want:  []Range{{0, 1000}, {3000, 4000}},
		},
		{
			name:  "soft speech above threshold is kept",
			buf:   build(speech(1000), part{2000, 0.02}, speech(1000)),
			minMs: 1500,
			want:  []Range{{0, 4000}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := Detect(tt.buf, opts(tt.minMs))
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if got := ranges(segs); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ranges = %v, want %v", got, tt.want)
			}
			for i, s := range segs {
				if s.Index != i {
					t.Errorf("segment %d has index %d", i, s.Index)
				}
				if got, want := s.Audio.Frames(), s.EndMs-s.StartMs; got != want {
					t.Errorf("segment %d frames = %d, want %d", i, got, want)
				}
				if i > 0 && s.StartMs < segs[i-1].EndMs {
					t.Errorf("segment %d overlaps previous", i)
				}
			}
		})
	}
}

func TestDetectAllSilent(t *testing.T) {
	for _, ms := range []int{0, 1, 200, 1499, 1500, 10000} {
		segs, err := Detect(build(quiet(ms)), opts(1500))
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if len(segs) != 0 {
			t.Errorf("%dms of silence: got %d segments, want 0", ms, len(segs))
		}
	}
}

func TestDetectShortSpeech(t *testing.T) {
	segs, err := Detect(build(speech(300)), opts(1500))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got := ranges(segs); !reflect.DeepEqual(got, []Range{{0, 300}}) {
		t.Errorf("ranges = %v, want [{0 300}]", got)
	}
}

func TestDetectIdempotent(t *testing.T) {
	buf := build(speech(700), quiet(1600), speech(900), quiet(3000), speech(100))
	first, err := Detect(buf, opts(1500))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Detect(buf, opts(1500))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Detect is not deterministic for identical input")
	}
}

func TestDetectSeekStep(t *testing.T) {
	buf := build(speech(1000), quiet(2000), speech(1000))
	o := opts(1500)
	o.SeekStep = 10 * time.Millisecond
	segs, err := Detect(buf, o)
	if err != nil {
		t.Fatal(err)
	}
	if got := ranges(segs); !reflect.DeepEqual(got, []Range{{0, 1000}, {3000, 4000}}) {
		t.Errorf("ranges = %v", got)
	}
}

func TestDetectStereo(t *testing.T) {
	mono := build(speech(1000), quiet(2000), speech(1000))
	tests := []struct {
		name  string
		right func(l float64) float64
		want  []Range
	}{
		{"both channels", func(l float64) float64 { return l }, []Range{{0, 1000}, {3000, 4000}}},
		// energy is averaged over every interleaved sample, so a lone edge
		// sample on one channel no longer lifts its window over -40 dBFS
		{"left channel only", func(float64) float64 { return 0 }, []Range{{0, 999}, {3001, 4000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stereo := &audio.Buffer{SampleRate: 1000, Channels: 2}
			for _, s := range mono.Samples {
				stereo.Samples = append(stereo.Samples, s, tt.right(s))
			}
			segs, err := Detect(stereo, opts(1500))
			if err != nil {
				t.Fatal(err)
			}
			if got := ranges(segs); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ranges = %v, want %v", got, tt.want)
			}
			if segs[0].Audio.Channels != 2 {
				t.Errorf("segment channels = %d, want 2", segs[0].Audio.Channels)
			}
		})
	}
}

func TestDetectSilenceMerging(t *testing.T) {
	buf := build(quiet(3000), speech(500), quiet(1600))
	got := DetectSilence(buf, opts(1500))
	want := []Range{{0, 3000}, {3500, 5100}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DetectSilence = %v, want %v", got, want)
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("default options invalid: %v", err)
	}
	bad := []Options{
		{MinSilence: 0, ThresholdDB: -40},
		{MinSilence: time.Second, ThresholdDB: 6},
		{MinSilence: time.Second, ThresholdDB: -40, SeekStep: -time.Millisecond},
	}
	for _, o := range bad {
		if err := o.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", o)
		}
		if _, err := Detect(build(speech(10)), o); err == nil {
			t.Errorf("Detect with %+v should fail", o)
		}
	}
}

func TestSegmentTimes(t *testing.T) {
	s := Segment{Index: 2, StartMs: 1500, EndMs: 4000}
	if s.Start() != 1500*time.Millisecond || s.End() != 4*time.Second {
		t.Errorf("Start/End = %v/%v", s.Start(), s.End())
	}
	if s.Duration() != 2500*time.Millisecond {
		t.Errorf("Duration = %v, want 2.5s", s.Duration())
	}
	if s.String() != "segment 2: 1500ms-4000ms" {
		t.Errorf("String = %q", s.String())
	}
}
