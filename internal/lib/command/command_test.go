package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	argv, err := Split("  python manage.py   migrate --noinput ")
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "manage.py", "migrate", "--noinput"}, argv)

	_, err = Split("   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestExec_Run(t *testing.T) {
	t.Run("it runs the command in dir and forwards its output", func(t *testing.T) {
		dir := t.TempDir()
		stdout := new(bytes.Buffer)
		e := &Exec{Stdout: stdout, Stderr: new(bytes.Buffer)}

		err := e.Run(context.Background(), dir, []string{"sh", "-c", "pwd; echo collected"})
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		require.Len(t, lines, 2)
		want, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		got, err := filepath.EvalSymlinks(lines[0])
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, "collected", lines[1])
	})

	t.Run("it returns the exit status of a failing command", func(t *testing.T) {
		e := &Exec{Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}

		err := e.Run(context.Background(), "", []string{"sh", "-c", "exit 7"})

		var exitErr *exec.ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 7, exitErr.ExitCode())
		assert.Contains(t, err.Error(), "sh -c exit 7")
	})

	t.Run("it fails for a missing program", func(t *testing.T) {
		e := &Exec{}

		err := e.Run(context.Background(), "", []string{"definitely-not-a-real-program-4711"})
		assert.Error(t, err)
	})

	t.Run("it rejects an empty argv", func(t *testing.T) {
		err := (&Exec{}).Run(context.Background(), "", nil)
		assert.ErrorIs(t, err, ErrEmptyCommand)
	})
}
