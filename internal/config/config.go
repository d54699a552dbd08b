package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	InputPath  string `env:"S2T_INPUT"`
	OutputPath string `env:"S2T_OUTPUT" envDefault:"transcription.txt"`
	ReportPath string `env:"S2T_REPORT"`

	Engine    string `env:"S2T_ENGINE" envDefault:"whisper"`
	ModelSize string `env:"S2T_MODEL" envDefault:"base"`
	Device    string `env:"S2T_DEVICE" envDefault:"auto"`
	Language  string `env:"S2T_LANGUAGE"`

	MinSilenceMs       int     `env:"S2T_MIN_SILENCE_MS" envDefault:"1500"`
	SilenceThresholdDB float64 `env:"S2T_SILENCE_THRESHOLD_DB" envDefault:"-40"`
	SeekStepMs         int     `env:"S2T_SEEK_STEP_MS" envDefault:"1"`

	FailurePolicy  string `env:"S2T_FAILURE_POLICY" envDefault:"fail-fast"`
	LanguagePolicy string `env:"S2T_LANGUAGE_POLICY" envDefault:"last"`

	TempDir    string `env:"S2T_TEMP_DIR"`
	WhisperBin string `env:"WHISPER_BIN" envDefault:"whisper"`

	OpenAIBaseURL  string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	RequestTimeout time.Duration `env:"S2T_REQUEST_TIMEOUT" envDefault:"2m"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENVIRONMENT" envDefault:"local"`
}

// Overrides holds CLI flag values that take priority over env vars.
// Zero values mean "not set".
type Overrides struct {
	EnvFile            string
	InputPath          string
	OutputPath         string
	ReportPath         string
	Engine             string
	ModelSize          string
	Device             string
	Language           string
	MinSilenceMs       int
	SeekStepMs         int
	SilenceThresholdDB *float64
	FailurePolicy      string
	LanguagePolicy     string
	LogLevel           string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	setString(&cfg.InputPath, overrides.InputPath)
	setString(&cfg.OutputPath, overrides.OutputPath)
	setString(&cfg.ReportPath, overrides.ReportPath)
	setString(&cfg.Engine, overrides.Engine)
	setString(&cfg.ModelSize, overrides.ModelSize)
	setString(&cfg.Device, overrides.Device)
	setString(&cfg.Language, overrides.Language)
	setString(&cfg.FailurePolicy, overrides.FailurePolicy)
	setString(&cfg.LanguagePolicy, overrides.LanguagePolicy)
	setString(&cfg.LogLevel, overrides.LogLevel)
	if overrides.MinSilenceMs > 0 {
		cfg.MinSilenceMs = overrides.MinSilenceMs
	}
	if overrides.SeekStepMs > 0 {
		cfg.SeekStepMs = overrides.SeekStepMs
	}
	if overrides.SilenceThresholdDB != nil {
		cfg.SilenceThresholdDB = *overrides.SilenceThresholdDB
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MinSilence returns the minimum silence duration.
func (c *Config) MinSilence() time.Duration {
	return time.Duration(c.MinSilenceMs) * time.Millisecond
}

// SeekStep returns the silence scan step.
func (c *Config) SeekStep() time.Duration {
	return time.Duration(c.SeekStepMs) * time.Millisecond
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.InputPath) == "" {
		errs = append(errs, errors.New("input path is required"))
	}
	if c.OutputPath == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	if !oneOf(c.Engine, "whisper", "openai", "mock") {
		errs = append(errs, fmt.Errorf("unknown engine %q (whisper|openai|mock)", c.Engine))
	}
	if !oneOf(c.Device, "auto", "cpu", "cuda") {
		errs = append(errs, fmt.Errorf("unknown device %q (auto|cpu|cuda)", c.Device))
	}
	if !oneOf(c.FailurePolicy, "fail-fast", "skip") {
		errs = append(errs, fmt.Errorf("unknown failure policy %q (fail-fast|skip)", c.FailurePolicy))
	}
	if !oneOf(c.LanguagePolicy, "last", "first", "majority") {
		errs = append(errs, fmt.Errorf("unknown language policy %q (last|first|majority)", c.LanguagePolicy))
	}
	if c.MinSilenceMs <= 0 {
		errs = append(errs, fmt.Errorf("min silence must be positive, got %d", c.MinSilenceMs))
	}
	if c.SeekStepMs <= 0 {
		errs = append(errs, fmt.Errorf("seek step must be positive, got %d", c.SeekStepMs))
	}
	if c.SilenceThresholdDB > 0 {
		errs = append(errs, fmt.Errorf("silence threshold must be <= 0 dB, got %.1f", c.SilenceThresholdDB))
	}
	if c.Engine == "openai" && c.OpenAIAPIKey == "" && strings.Contains(c.OpenAIBaseURL, "api.openai.com") {
		errs = append(errs, errors.New("openai engine selected but OPENAI_API_KEY is missing"))
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
