package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// WhisperCLI runs the openai-whisper command line tool on each file and
// reads back its JSON output.
type WhisperCLI struct {
	bin      string
	model    string
	device   string
	language string
	tempDir  string
}

// whisperOutput is the subset of whisper's --output_format json we use.
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func NewWhisperCLI(bin, model, device, language, tempDir string) *WhisperCLI {
	if bin == "" {
		bin = "whisper"
	}
	if model == "" {
		model = "base"
	}
	if device == "" {
		device = "cpu"
	}
	return &WhisperCLI{bin: bin, model: model, device: device, language: language, tempDir: tempDir}
}

func (w *WhisperCLI) Name() string  { return "whisper" }
func (w *WhisperCLI) Model() string { return w.model }

func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	outDir, err := os.MkdirTemp(w.tempDir, "s2t-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	cmd := exec.CommandContext(ctx, w.bin, w.args(audioPath, outDir)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("whisper failed: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("run whisper: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	return parseWhisperJSON(data)
}

func (w *WhisperCLI) args(audioPath, outDir string) []string {
	args := []string{
		audioPath,
		"--model", w.model,
		"--device", w.device,
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	// fp16 is unsupported on CPU and only produces a warning there
	if w.device == "cpu" {
		args = append(args, "--fp16", "False")
	}
	if w.language != "" {
		args = append(args, "--language", w.language)
	}
	return args
}

func parseWhisperJSON(data []byte) (*Result, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	res := &Result{Text: strings.TrimSpace(out.Text), Language: languageCode(out.Language)}
	if n := len(out.Segments); n > 0 {
		res.Duration = out.Segments[n-1].End
	}
	return res, nil
}
