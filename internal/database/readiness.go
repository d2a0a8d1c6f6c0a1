package database

import (
	"context"
	"time"

	"github.com/deppfellow/foodgram-entrypoint/internal/config"
	"github.com/deppfellow/foodgram-entrypoint/internal/lib/retry"
	"github.com/deppfellow/foodgram-entrypoint/internal/sqlerr"
	"github.com/rs/zerolog"
)

// Probe checks once whether the database accepts connections.
type Probe func(ctx context.Context) error

// PingProbe returns a Probe that opens a fresh connection, pings it and
// closes it again.
func PingProbe(cfg *config.Config, logger *zerolog.Logger) Probe {
	return func(ctx context.Context) error {
		// A fresh connection per attempt: a pool would hide the real
		// connect error behind its own retry and backoff.
		conn, err := Connect(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close(context.WithoutCancel(ctx))

		// Connecting already proves the server accepts us; the ping makes
		// sure the session is usable (not in recovery mid-handshake).
		return conn.Ping(ctx)
	}
}

// WaitReady blocks until probe succeeds.
//
// The probe is retried every interval with no limit; each failed attempt
// is logged. Connection errors are never returned. The only error is the
// context's, when the process is asked to stop while waiting.
func WaitReady(ctx context.Context, probe Probe, interval time.Duration, logger *zerolog.Logger) error {
	start := time.Now()

	err := retry.Forever(ctx, retry.StaticBackoff(interval), probe, func(attempt int, err error) {
		// A database that is still starting is the normal case at boot
		// and logs at info. Anything else (bad credentials, missing
		// database, unexpected errors) is a warning, but is retried
		// anyway: the operator may fix it without a restart.
		ev := logger.Info()
		if !sqlerr.IsTransient(err) {
			ev = logger.Warn()
		}
		ev.Err(err).
			Int("attempt", attempt).
			Str("kind", sqlerr.Classify(err).String()).
			Str("sqlstate", sqlerr.Code(err)).
			Dur("retry_in", interval).
			Msg("database is not ready, waiting")
	})
	if err != nil {
		return err
	}

	logger.Info().
		Dur("waited", time.Since(start)).
		Msg("database is ready")
	return nil
}
