package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
)

// CommandRunner abstracts external command execution so the orchestrator can
// be tested without shelling out, and so steps can run locally or on a remote
// agent.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string, environ []string, out io.Writer) (int, error)
}

// ExecRunner runs commands locally through sh -c with the resolved
// environment, streaming combined stdout/stderr to out. Relative step
// directories are resolved against Root.
type ExecRunner struct {
	Root string
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (e *ExecRunner) Run(
	ctx context.Context,
	dir, command string,
	environ []string,
	out io.Writer,
) (int, error) {
	if e.Root != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(e.Root, dir)
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = environ
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			// process was killed by timeout or cancellation
			return -1, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("exec: %w", err)
	}
	return 0, nil
}
