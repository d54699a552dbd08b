package transcription

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"s2t-go/internal/logger"
)

// Engine turns a short audio file into text.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
	Name() string  // "whisper", "openai", "mock"
	Model() string // model identifier for logs/reports
}

// Result is what an engine reports for one file.
type Result struct {
	Text     string
	Language string
	Duration float64 // seconds, 0 when the engine does not report it
}

// Options selects and configures an engine.
type Options struct {
	Engine     string // whisper|openai|mock
	Model      string
	Device     string // resolved device for local engines
	Language   string // force a language; empty = detect
	WhisperBin string
	TempDir    string

	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	MaxRetry time.Duration // total backoff budget for remote engines

	Log *logger.Logger
}

// New builds the engine named in opts. USE_MOCK_TRANSCRIBE=true forces the mock.
func New(opts Options) (Engine, error) {
	if opts.Log == nil {
		opts.Log = logger.New()
	}
	log := opts.Log.WithComponent("transcription")

	if os.Getenv("USE_MOCK_TRANSCRIBE") == "true" || opts.Engine == "mock" {
		log.Warn("mock transcription enabled")
		return Mock{Text: "MOCK TRANSCRIPT", Language: "en"}, nil
	}
	switch opts.Engine {
	case "", "whisper":
		return NewWhisperCLI(opts.WhisperBin, opts.Model, opts.Device, opts.Language, opts.TempDir), nil
	case "openai":
		return NewOpenAI(opts.BaseURL, opts.APIKey, opts.Model, opts.Language, opts.Timeout, opts.MaxRetry, log), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", opts.Engine)
	}
}

// Mock returns the same result for every file.
type Mock struct {
	Text     string
	Language string
}

func (m Mock) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	return &Result{Text: m.Text, Language: m.Language}, nil
}

func (Mock) Name() string  { return "mock" }
func (Mock) Model() string { return "mock" }

// retry runs op with exponential backoff until it succeeds, returns a
// backoff.Permanent error, the budget runs out, or ctx is done.
func retry(ctx context.Context, budget time.Duration, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = budget
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
