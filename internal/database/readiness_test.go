package database

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReady(t *testing.T) {
	t.Run("it retries until the probe succeeds", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)

		failures := []error{
			errors.New("dial tcp 10.0.0.2:5432: connect: connection refused"),
			&pgconn.PgError{Code: pgerrcode.CannotConnectNow, Message: "the database system is starting up"},
			&pgconn.PgError{Code: pgerrcode.InvalidPassword, Message: "password authentication failed"},
		}
		calls := 0
		probe := func(context.Context) error {
			calls++
			if calls <= len(failures) {
				return failures[calls-1]
			}
			return nil
		}

		err := WaitReady(context.Background(), probe, time.Millisecond, &logger)
		require.NoError(t, err)
		assert.Equal(t, 4, calls)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 4)
		assert.Contains(t, lines[0], `"attempt":1`)
		assert.Contains(t, lines[1], `"sqlstate":"57P03"`)
		assert.Contains(t, lines[1], `"level":"info"`)
		assert.Contains(t, lines[2], `"level":"warn"`)
		assert.Contains(t, lines[2], `"kind":"auth"`)
		assert.Contains(t, lines[3], "database is ready")
	})

	t.Run("it only returns the context error", func(t *testing.T) {
		logger := zerolog.Nop()
		ctx, cancel := context.WithCancel(context.Background())

		calls := 0
		probe := func(context.Context) error {
			calls++
			if calls == 3 {
				cancel()
			}
			return errors.New("connection refused")
		}

		err := WaitReady(ctx, probe, time.Millisecond, &logger)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 3, calls)
	})
}

func TestWaitReady_PingProbe(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	cfg := testConfig()
	// Nothing listens on port 1.
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1
	cfg.Database.ConnectTimeout = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	err := WaitReady(ctx, PingProbe(cfg, &logger), 100*time.Millisecond, &logger)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	for _, line := range lines {
		assert.Contains(t, line, "database is not ready, waiting")
		assert.Contains(t, line, `"kind":"unavailable"`)
		assert.Contains(t, line, `"level":"info"`)
	}
}
