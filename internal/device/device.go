package device

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

const (
	CPU  = "cpu"
	CUDA = "cuda"
	Auto = "auto"
)

// probe reports whether an accelerator is usable. Replaced in tests.
var probe = func() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

var (
	detectOnce sync.Once
	detected   string
)

// Detect checks for an accelerator once per process.
func Detect() string {
	detectOnce.Do(func() {
		if probe() {
			detected = CUDA
		} else {
			detected = CPU
		}
	})
	return detected
}

// Select resolves a device preference (auto|cpu|cuda) to a concrete device.
func Select(pref string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(pref)) {
	case "", Auto:
		return Detect(), nil
	case CPU:
		return CPU, nil
	case CUDA:
		return CUDA, nil
	default:
		return "", fmt.Errorf("unknown device %q (auto|cpu|cuda)", pref)
	}
}
