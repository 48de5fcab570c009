package genesis

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Runner executes an external tool and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as subprocesses.
type ExecRunner struct{}

// Run implements Runner. A non-zero exit is reported as *ToolError carrying
// the captured stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	log.FromContext(ctx).V(1).Info("running tool", "tool", name, "args", args)

	var stdout, stderr bytes.Buffer
	// #nosec G204 - the tool names are fixed and arguments are built internally
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		toolErr := &ToolError{Tool: name, ExitCode: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), toolErr
	}

	return stdout.Bytes(), nil
}
