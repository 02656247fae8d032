package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// ErrToolNotFound indicates missing conversion or probe binary
var ErrToolNotFound = errors.New("tool not found")

// ToolError is returned when a found tool exits with non zero code
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed with code %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

func toolErr(tool string, res commandResult, err error) error {
	if errors.Is(err, exec.ErrNotFound) || (res.ExitCode == -1 && errors.Is(err, fs.ErrNotExist)) {
		return fmt.Errorf("%s: %w", tool, ErrToolNotFound)
	}
	if res.ExitCode == -1 {
		return fmt.Errorf("can't run %s: %w", tool, err)
	}
	return &ToolError{Tool: tool, ExitCode: res.ExitCode, Stderr: tail(res.Stderr, maxStderr)}
}

const maxStderr = 1000

func tail(s string, l int) string {
	if len(s) <= l {
		return s
	}
	return s[len(s)-l:]
}
