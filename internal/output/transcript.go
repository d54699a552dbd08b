package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"s2t-go/internal/types"
)

// Render writes the transcript file body: a language header, a blank line,
// then the text.
func Render(w io.Writer, tr *types.Transcript) error {
	_, err := fmt.Fprintf(w, "Detected language: %s\n\n%s", tr.Language, tr.Text)
	return err
}

// WriteFile renders tr to path. The file is written next to its destination
// and renamed into place, so a failed run never leaves a partial transcript.
func WriteFile(path string, tr *types.Transcript) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := Render(tmp, tr); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close transcript: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod transcript: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename transcript: %w", err)
	}
	committed = true
	return nil
}
