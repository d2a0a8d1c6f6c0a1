// Package server hands the container over to the application server.
//
// After the boot stages the bootstrapper replaces its own process image
// with the server (execve), so the server keeps PID 1, receives the
// container's termination signals directly and nothing is left behind to
// supervise it.
package server

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/deppfellow/foodgram-entrypoint/internal/config"
	"github.com/deppfellow/foodgram-entrypoint/internal/lib/command"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Execer replaces the current process image. On success it never returns.
type Execer interface {
	Exec(argv0 string, argv []string, envv []string) error
}

// ExecFunc adapts a function to Execer.
type ExecFunc func(argv0 string, argv []string, envv []string) error

func (f ExecFunc) Exec(argv0 string, argv []string, envv []string) error {
	return f(argv0, argv, envv)
}

// unixExec is the real execve.
var unixExec = ExecFunc(unix.Exec)

// Server is the process the container runs once boot is complete.
type Server struct {
	// Config holds the bootstrapper configuration.
	Config *config.Config

	// Logger is the bootstrapper's structured logger.
	Logger *zerolog.Logger

	argv     []string
	execer   Execer
	lookPath func(string) (string, error)
	environ  func() []string
}

// Option customizes a Server.
type Option func(*Server)

// WithExecer replaces execve, for tests.
func WithExecer(e Execer) Option {
	return func(s *Server) { s.execer = e }
}

// WithLookPath replaces the PATH lookup, for tests.
func WithLookPath(f func(string) (string, error)) Option {
	return func(s *Server) { s.lookPath = f }
}

// New constructs a Server. The command is set with SetupCommand.
func New(cfg *config.Config, logger *zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		Config:   cfg,
		Logger:   logger,
		execer:   unixExec,
		lookPath: exec.LookPath,
		environ:  os.Environ,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetupCommand selects the server command.
//
// args are the container arguments; when empty, the configured default
// server command is used.
func (s *Server) SetupCommand(args []string) error {
	if len(args) > 0 {
		s.argv = append([]string(nil), args...)
		return nil
	}

	argv, err := command.Split(s.Config.Server.Command)
	if err != nil {
		return fmt.Errorf("server command: %w", err)
	}
	s.argv = argv
	return nil
}

// Command returns the selected argv.
func (s *Server) Command() []string {
	return s.argv
}

// Start replaces the current process with the server.
//
// It requires SetupCommand to be called first. It only returns on failure.
func (s *Server) Start() error {
	if len(s.argv) == 0 {
		return errors.New("server command not initialized")
	}

	path, err := s.lookPath(s.argv[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", s.argv[0], err)
	}

	s.Logger.Info().
		Str("path", path).
		Strs("argv", s.argv).
		Str("bind", s.Config.Server.Bind).
		Msg("handing off to server")

	if err := s.execer.Exec(path, s.argv, s.environ()); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}

	// Only reachable with a test Execer.
	return nil
}
