package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"s2t-go/internal/logger"
)

// OpenAIEngine calls an OpenAI-compatible /audio/transcriptions endpoint
// (OpenAI itself, speaches, LocalAI, whisper.cpp server).
type OpenAIEngine struct {
	client   *openai.Client
	model    string
	language string
	budget   time.Duration
	log      *logger.Logger
}

// NewOpenAI creates the engine. A bare whisper size such as "base" maps to
// "whisper-1" when talking to api.openai.com.
func NewOpenAI(baseURL, apiKey, model, language string, timeout, budget time.Duration, log *logger.Logger) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	if budget <= 0 {
		budget = 30 * time.Second
	}
	if log == nil {
		log = logger.New()
	}
	return &OpenAIEngine{
		client:   openai.NewClientWithConfig(cfg),
		model:    remoteModel(cfg.BaseURL, model),
		language: language,
		budget:   budget,
		log:      log,
	}
}

func (e *OpenAIEngine) Name() string  { return "openai" }
func (e *OpenAIEngine) Model() string { return e.model }

func (e *OpenAIEngine) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	req := openai.AudioRequest{
		Model:    e.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: e.language,
	}

	var resp openai.AudioResponse
	attempt := 0
	err := retry(ctx, e.budget, func() error {
		attempt++
		r, err := e.client.CreateTranscription(ctx, req)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			e.log.WithError(err).WithField("attempt", attempt).Warn("transcription request failed, retrying")
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	return &Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: languageCode(resp.Language),
		Duration: resp.Duration,
	}, nil
}

// retryable reports transport failures, 429 and 5xx as transient. Local
// file errors and undecodable responses will not improve on retry.
func retryable(err error) bool {
	var (
		pathErr   *fs.PathError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &pathErr) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == 0 {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return status == http.StatusTooManyRequests || status >= 500
}

var whisperSizes = map[string]bool{
	"tiny": true, "tiny.en": true, "base": true, "base.en": true,
	"small": true, "small.en": true, "medium": true, "medium.en": true,
	"large": true, "large-v2": true, "large-v3": true, "turbo": true,
}

func remoteModel(baseURL, model string) string {
	if model == "" || (whisperSizes[model] && strings.Contains(baseURL, "api.openai.com")) {
		return openai.Whisper1
	}
	return model
}

// verbose_json reports languages by English name; the transcript header
// uses ISO 639-1 codes like the local CLI does.
var languageNames = map[string]string{
	"english": "en", "french": "fr", "german": "de", "spanish": "es",
	"italian": "it", "portuguese": "pt", "dutch": "nl", "russian": "ru",
	"ukrainian": "uk", "polish": "pl", "chinese": "zh", "japanese": "ja",
	"korean": "ko", "arabic": "ar", "hindi": "hi", "turkish": "tr",
	"swedish": "sv", "czech": "cs", "greek": "el", "hebrew": "he",
}

func languageCode(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageNames[l]; ok {
		return code
	}
	return l
}
