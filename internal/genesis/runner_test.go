package genesis

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	_, err = ExecRunner{}.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 3, toolErr.ExitCode)
	assert.Equal(t, "sh exited with code 3: broken", toolErr.Error())
}

func TestExecRunner_MissingTool(t *testing.T) {
	t.Parallel()

	_, err := ExecRunner{}.Run(context.Background(), "solk8s-missing-tool-xyz")
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, -1, toolErr.ExitCode)
	assert.ErrorIs(t, err, exec.ErrNotFound)
}
