// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"s2t-go/internal/aggregator"
	"s2t-go/internal/audio"
	"s2t-go/internal/logger"
	"s2t-go/internal/segmenter"
	"s2t-go/internal/transcription"
	"s2t-go/internal/types"
)

var (
	// ErrTranscription marks a segment the engine could not transcribe.
	ErrTranscription = errors.New("segment transcription failed")
	// ErrAllSegmentsFailed is returned under the skip policy when nothing was transcribed.
	ErrAllSegmentsFailed = errors.New("every segment failed to transcribe")
)

// FailurePolicy decides what a segment failure does to the run.
type FailurePolicy string

const (
	FailFast FailurePolicy = "fail-fast"
	Skip     FailurePolicy = "skip"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailFast, nil
	case FailFast, Skip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (fail-fast|skip)", s)
	}
}

// SegmentError carries the position of the segment that failed.
type SegmentError struct {
	Index   int
	StartMs int
	EndMs   int
	Err     error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d (%dms-%dms): %v", e.Index, e.StartMs, e.EndMs, e.Err)
}

func (e *SegmentError) Unwrap() []error { return []error{ErrTranscription, e.Err} }

// Options configures a pipeline run.
type Options struct {
	Segment        segmenter.Options
	FailurePolicy  FailurePolicy
	LanguagePolicy aggregator.LanguagePolicy
	TempDir        string // parent of the per-run scratch dir; system temp when empty
}

// Pipeline runs segment -> transcribe -> aggregate for one input at a time.
type Pipeline struct {
	engine transcription.Engine
	opts   Options
	log    *logger.Logger
}

func New(engine transcription.Engine, opts Options, log *logger.Logger) *Pipeline {
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = FailFast
	}
	if opts.LanguagePolicy == "" {
		opts.LanguagePolicy = aggregator.LanguageLast
	}
	if log == nil {
		log = logger.New()
	}
	return &Pipeline{engine: engine, opts: opts, log: log.WithComponent("pipeline")}
}

// Transcribe decodes audioPath and transcribes its non-silent segments in order.
func (p *Pipeline) Transcribe(ctx context.Context, audioPath string) (*types.Transcript, error) {
	p.log.WithField("path", audioPath).Info("loading audio")
	buf, err := audio.Load(audioPath)
	if err != nil {
		return nil, err
	}
	tr, err := p.TranscribeBuffer(ctx, buf)
	if err != nil {
		return nil, err
	}
	tr.Source = audioPath
	return tr, nil
}

// TranscribeBuffer segments an already decoded buffer and transcribes each
// segment sequentially. Every temporary file is removed before returning.
func (p *Pipeline) TranscribeBuffer(ctx context.Context, buf *audio.Buffer) (*types.Transcript, error) {
	start := time.Now()
	log, runID := p.log.WithRun("")

	segments, err := segmenter.Detect(buf, p.opts.Segment)
	if err != nil {
		return nil, fmt.Errorf("segment audio: %w", err)
	}
	log.WithFields(logrus.Fields{
		"segments":    len(segments),
		"duration_ms": buf.Duration().Milliseconds(),
	}).Info("detected non-silent segments")

	runDir, err := os.MkdirTemp(p.opts.TempDir, "s2t-"+runID[:8]+"-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			log.WithError(err).WithField("dir", runDir).Warn("scratch dir cleanup failed")
		}
	}()

	results := make([]types.SegmentResult, 0, len(segments))
	skipped := 0
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("transcription cancelled at segment %d: %w", seg.Index, err)
		}

		res := types.SegmentResult{Index: seg.Index, StartMs: seg.StartMs, EndMs: seg.EndMs}
		out, err := p.transcribeSegment(ctx, log, runDir, seg)
		if err != nil {
			segErr := &SegmentError{Index: seg.Index, StartMs: seg.StartMs, EndMs: seg.EndMs, Err: err}
			if p.opts.FailurePolicy == FailFast {
				return nil, segErr
			}
			log.WithError(segErr).Warn("skipping segment")
			res.Error = err.Error()
			res.Skipped = true
			skipped++
			results = append(results, res)
			continue
		}

		res.Text = strings.TrimSpace(out.Text)
		res.Language = out.Language
		results = append(results, res)
		log.WithFields(logrus.Fields{
			"index":    seg.Index,
			"start_ms": seg.StartMs,
			"end_ms":   seg.EndMs,
			"language": res.Language,
		}).Infof("%d: %s", seg.Index+1, res.Text)
	}

	if len(segments) > 0 && skipped == len(segments) {
		return nil, fmt.Errorf("%w (%d segments)", ErrAllSegmentsFailed, skipped)
	}
	if len(segments) == 0 {
		log.Warn("no speech detected")
	}

	text, lang := aggregator.Aggregate(results, p.opts.LanguagePolicy)
	tr := &types.Transcript{
		RunID:      runID,
		Engine:     p.engine.Name(),
		Model:      p.engine.Model(),
		Text:       text,
		Language:   lang,
		Segments:   results,
		Skipped:    skipped,
		DurationMs: buf.Duration().Milliseconds(),
		ElapsedMs:  time.Since(start).Milliseconds(),
	}
	log.WithFields(logrus.Fields{
		"language":   tr.Language,
		"skipped":    tr.Skipped,
		"elapsed_ms": tr.ElapsedMs,
	}).Info("transcription finished")
	return tr, nil
}

// transcribeSegment exports seg to a scratch WAV, runs the engine on it and
// removes the file on every path out.
func (p *Pipeline) transcribeSegment(ctx context.Context, log *logger.Logger, dir string, seg segmenter.Segment) (*transcription.Result, error) {
	path := filepath.Join(dir, fmt.Sprintf("segment_%04d_%s.wav", seg.Index, uuid.NewString()[:8]))
	if err := audio.ExportWAV(path, seg.Audio); err != nil {
		return nil, fmt.Errorf("export segment: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).WithField("path", path).Warn("temp segment cleanup failed")
		}
	}()

	out, err := p.engine.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("engine returned no result")
	}
	return out, nil
}
