// Package command runs external programs (the framework's management
// commands) as boot stages.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// ErrEmptyCommand is returned for a blank command line.
var ErrEmptyCommand = errors.New("empty command")

// stopGrace is how long a cancelled command gets between SIGTERM and SIGKILL.
const stopGrace = 10 * time.Second

// Runner runs argv in dir and waits for it to exit.
//
// A non-zero exit is returned as an error wrapping *exec.ExitError.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) error
}

// Split turns a configured command line into argv.
//
// Arguments are separated by whitespace; quoting is not interpreted.
func Split(line string) ([]string, error) {
	argv := strings.Fields(line)
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}

// Exec is the Runner backed by os/exec.
//
// The child inherits the environment; its stdout/stderr go to Stdout and
// Stderr (the process' own streams when nil).
type Exec struct {
	Logger *zerolog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

func NewExec(logger *zerolog.Logger) *Exec {
	return &Exec{Logger: logger}
}

func (e *Exec) Run(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 {
		return ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	cmd.Stdout = orDefault(e.Stdout, os.Stdout)
	cmd.Stderr = orDefault(e.Stderr, os.Stderr)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGrace

	start := time.Now()
	if e.Logger != nil {
		e.Logger.Debug().
			Strs("argv", argv).
			Str("dir", dir).
			Msg("running command")
	}

	err := cmd.Run()

	if e.Logger != nil {
		ev := e.Logger.Debug()
		if err != nil {
			ev = e.Logger.Error().Err(err)
		}
		ev.Str("command", argv[0]).
			Int("exit_code", cmd.ProcessState.ExitCode()).
			Dur("duration", time.Since(start)).
			Msg("command finished")
	}

	if err != nil {
		return fmt.Errorf("%s: %w", strings.Join(argv, " "), err)
	}
	return nil
}

func orDefault(w io.Writer, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
