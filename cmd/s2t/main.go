package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"s2t-go/internal/aggregator"
	"s2t-go/internal/audio"
	"s2t-go/internal/config"
	"s2t-go/internal/device"
	"s2t-go/internal/logger"
	"s2t-go/internal/output"
	"s2t-go/internal/pipeline"
	"s2t-go/internal/report"
	"s2t-go/internal/segmenter"
	"s2t-go/internal/transcription"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		ov        config.Overrides
		threshold float64
	)
	fs := flag.NewFlagSet("s2t", flag.ContinueOnError)
	fs.StringVar(&ov.InputPath, "input", "", "Input audio file (-i)")
	fs.StringVar(&ov.InputPath, "i", "", "Input audio file")
	fs.StringVar(&ov.OutputPath, "output", "", "Transcript output file (-o)")
	fs.StringVar(&ov.OutputPath, "o", "", "Transcript output file")
	fs.StringVar(&ov.ReportPath, "report", "", "Optional per-segment XLSX report")
	fs.StringVar(&ov.Engine, "engine", "", "Transcription engine: whisper|openai|mock")
	fs.StringVar(&ov.ModelSize, "model", "", "Model size or identifier (e.g. base, small)")
	fs.StringVar(&ov.Device, "device", "", "Device: auto|cpu|cuda")
	fs.StringVar(&ov.Language, "language", "", "Force a language code instead of detecting it")
	fs.IntVar(&ov.MinSilenceMs, "min-silence", 0, "Minimum silence length in ms")
	fs.IntVar(&ov.SeekStepMs, "seek-step", 0, "Silence scan step in ms")
	fs.Float64Var(&threshold, "threshold", 0, "Silence threshold in dBFS (e.g. -40)")
	fs.StringVar(&ov.FailurePolicy, "failure-policy", "", "Segment failure policy: fail-fast|skip")
	fs.StringVar(&ov.LanguagePolicy, "language-policy", "", "Language policy: last|first|majority")
	fs.StringVar(&ov.EnvFile, "env-file", "", "Env file to load (default .env)")
	fs.StringVar(&ov.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Println(version)
		return 0
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			ov.SilenceThresholdDB = &threshold
		}
	})
	if ov.InputPath == "" && fs.NArg() > 0 {
		ov.InputPath = fs.Arg(0)
	}

	cfg, err := config.Load(ov)
	if err != nil {
		logger.New().WithError(err).Error("failed to load config")
		return 2
	}
	log := logger.NewWithOptions(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	log.WithField("version", version).Debug("s2t starting")
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("invalid configuration")
		return 2
	}

	// a missing input is reported and ends the run without output, not as a failure
	if _, err := os.Stat(cfg.InputPath); errors.Is(err, os.ErrNotExist) {
		log.WithField("path", cfg.InputPath).Errorf("Error: the file %s does not exist", cfg.InputPath)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev, err := device.Select(cfg.Device)
	if err != nil {
		log.WithError(err).Error("device selection failed")
		return 2
	}
	failPolicy, err := pipeline.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		log.WithError(err).Error("invalid failure policy")
		return 2
	}
	langPolicy, err := aggregator.ParseLanguagePolicy(cfg.LanguagePolicy)
	if err != nil {
		log.WithError(err).Error("invalid language policy")
		return 2
	}

	engine, err := transcription.New(transcription.Options{
		Engine:     cfg.Engine,
		Model:      cfg.ModelSize,
		Device:     dev,
		Language:   cfg.Language,
		WhisperBin: cfg.WhisperBin,
		TempDir:    cfg.TempDir,
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		Timeout:    cfg.RequestTimeout,
		MaxRetry:   cfg.RequestTimeout,
		Log:        log,
	})
	if err != nil {
		log.WithError(err).Error("failed to create engine")
		return 2
	}
	log.WithFields(logrus.Fields{
		"engine": engine.Name(),
		"model":  engine.Model(),
		"device": dev,
	}).Infof("Transcribing %s...", cfg.InputPath)

	p := pipeline.New(engine, pipeline.Options{
		Segment: segmenter.Options{
			MinSilence:  cfg.MinSilence(),
			ThresholdDB: cfg.SilenceThresholdDB,
			SeekStep:    cfg.SeekStep(),
		},
		FailurePolicy:  failPolicy,
		LanguagePolicy: langPolicy,
		TempDir:        cfg.TempDir,
	}, log)

	start := time.Now()
	tr, err := p.Transcribe(ctx, cfg.InputPath)
	if err != nil {
		entry := log.WithError(err)
		switch {
		case errors.Is(err, audio.ErrInputNotFound):
			entry.Error("input file not found")
			return 0
		case errors.Is(err, audio.ErrDecode):
			entry.Error("could not decode audio")
		case errors.Is(err, pipeline.ErrTranscription), errors.Is(err, pipeline.ErrAllSegmentsFailed):
			entry.Error("transcription failed; no transcript written")
		default:
			entry.Error("run failed")
		}
		return 1
	}

	if err := output.WriteFile(cfg.OutputPath, tr); err != nil {
		log.WithError(err).Error("writing transcript failed")
		return 1
	}
	if cfg.ReportPath != "" {
		if err := report.Write(cfg.ReportPath, tr); err != nil {
			log.WithError(err).Warn("writing segment report failed")
		} else {
			log.WithField("path", cfg.ReportPath).Info("segment report saved")
		}
	}

	log.WithFields(logrus.Fields{
		"language":   tr.Language,
		"segments":   len(tr.Segments),
		"skipped":    tr.Skipped,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Infof("Transcription saved to %s", cfg.OutputPath)
	return 0
}
