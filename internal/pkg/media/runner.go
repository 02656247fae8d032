package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
)

type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution
type commandRunner interface {
	Run(ctx context.Context, withStderr bool, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

// Run executes one command, stderr is captured only if withStderr
func (r *execRunner) Run(ctx context.Context, withStderr bool, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard
	if withStderr {
		cmd.Stderr = &stderr
	}
	err := cmd.Run()
	res := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		return res, err
	}
	return res, nil
}
