package transcription

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

const fakeWhisper = `#!/bin/sh
audio="$1"; shift
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output_dir) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
name=$(basename "$audio")
name="${name%.*}"
printf '{"text":" hello there ","language":"en","segments":[{"start":0,"end":1.5,"text":"hello there"}]}' > "$out/$name.json"
`

const failingWhisper = `#!/bin/sh
echo "model not found" >&2
exit 1
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "whisper")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWhisperCLIArgs(t *testing.T) {
	w := NewWhisperCLI("", "small", "cpu", "fr", "")
	got := w.args("/tmp/a.wav", "/tmp/out")
	want := []string{
		"/tmp/a.wav",
		"--model", "small",
		"--device", "cpu",
		"--output_format", "json",
		"--output_dir", "/tmp/out",
		"--verbose", "False",
		"--fp16", "False",
		"--language", "fr",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v\nwant %v", got, want)
	}

	cuda := NewWhisperCLI("", "", "cuda", "", "").args("a.wav", "o")
	for _, a := range cuda {
		if a == "--fp16" || a == "--language" {
			t.Errorf("cuda args should not include %s: %v", a, cuda)
		}
	}
	if w.Name() != "whisper" || NewWhisperCLI("", "", "", "", "").Model() != "base" {
		t.Error("unexpected defaults")
	}
}

func TestParseWhisperJSON(t *testing.T) {
	res, err := parseWhisperJSON([]byte(`{"text":"  Hola mundo. ","language":"es","segments":[{"start":0,"end":0.8},{"start":0.8,"end":2.25}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Text != "Hola mundo." || res.Language != "es" || res.Duration != 2.25 {
		t.Errorf("result = %+v", res)
	}

	if _, err := parseWhisperJSON([]byte("not json")); err == nil {
		t.Error("expected parse error")
	}
}

func TestWhisperCLITranscribe(t *testing.T) {
	bin := writeScript(t, fakeWhisper)
	tmp := t.TempDir()
	w := NewWhisperCLI(bin, "base", "cpu", "", tmp)

	res, err := w.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello there" || res.Language != "en" {
		t.Errorf("result = %+v", res)
	}

	left, _ := os.ReadDir(tmp)
	if len(left) != 0 {
		t.Errorf("whisper output dir not cleaned up: %d entries left", len(left))
	}
}

func TestWhisperCLIFailure(t *testing.T) {
	bin := writeScript(t, failingWhisper)
	w := NewWhisperCLI(bin, "base", "cpu", "", t.TempDir())
	_, err := w.Transcribe(context.Background(), writeAudio(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("error should carry stderr, got %v", err)
	}
}

func TestWhisperCLIMissingBinary(t *testing.T) {
	w := NewWhisperCLI(filepath.Join(t.TempDir(), "nope"), "base", "cpu", "", t.TempDir())
	if _, err := w.Transcribe(context.Background(), writeAudio(t)); err == nil {
		t.Error("expected error for missing binary")
	}
}
