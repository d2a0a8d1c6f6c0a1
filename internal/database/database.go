// Package database contains the logic for reaching the PostgreSQL
// database during boot.
//
// It handles:
//   - building a DSN from config
//   - the readiness gate (wait until the server accepts connections)
//   - creating a pgx connection pool for the native fixture loader
//   - wiring query tracing/logging (pgx tracelog + zerolog)
//   - running SQL migrations with tern
package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/deppfellow/foodgram-entrypoint/internal/config"
	loggerConfig "github.com/deppfellow/foodgram-entrypoint/internal/logger"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// Database wraps the pgx connection pool and a logger.
//
// Pool is the connection pool used by the native fixture loader.
// log is used for lifecycle logs (connect/close).
type Database struct {
	Pool *pgxpool.Pool
	log  *zerolog.Logger
}

// DatabasePingTimeout is the number of seconds to wait for the pool's
// first ping.
//
// Note: it's an int, used as DatabasePingTimeout * time.Second below.
const DatabasePingTimeout = 10

// DSN builds the postgres URL for cfg.
//
// Example:
//
//	postgres://user:pass@db:5432/foodgram?sslmode=disable&connect_timeout=5
func DSN(cfg *config.DatabaseConfig) string {
	// Joins host + port, bracketing IPv6 hosts.
	hostPort := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	// url.URL escapes user and password itself, so a password such as
	// "pa:ss@word" can not break the DSN structure.
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   hostPort,
		Path:   "/" + cfg.Name,
	}

	// Query parameters understood by both libpq and pgx.
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	if cfg.ConnectTimeout > 0 {
		// libpq syntax: whole seconds, at least 1.
		secs := int(cfg.ConnectTimeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// ConnConfig parses the DSN and attaches SQL tracing when enabled.
//
// Behavior:
//   - Build the DSN from cfg.Database
//   - Parse it into a pgx.ConnConfig (applies pgx defaults, validates format)
//   - Set the dial timeout, so one probe can not hang on a black-holed host
//   - Attach the tracelog tracer in local env or when asked for
func ConnConfig(cfg *config.Config, logger *zerolog.Logger) (*pgx.ConnConfig, error) {
	connConfig, err := pgx.ParseConfig(DSN(&cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	// connect_timeout in the DSN only has second precision; the config
	// value is the exact one.
	if cfg.Database.ConnectTimeout > 0 {
		connConfig.ConnectTimeout = cfg.Database.ConnectTimeout
	}

	// pgx supports a single Tracer in ConnConfig.
	if tracer := newTracer(cfg, logger); tracer != nil {
		connConfig.Tracer = tracer
	}
	return connConfig, nil
}

// newTracer returns a tracelog tracer when SQL tracing is on, nil otherwise.
//
// This is very noisy, which is why it is only on in local env or when
// asked for explicitly.
func newTracer(cfg *config.Config, logger *zerolog.Logger) pgx.QueryTracer {
	if cfg.Observability == nil || !cfg.Observability.TraceSQL() {
		return nil
	}

	// Get the current configured log level from the app logger.
	globalLevel := logger.GetLevel()

	// Create a specialized logger for pgx output (pretty printing SQL/params).
	pgxLogger := loggerConfig.NewPgxLogger(globalLevel)

	return &tracelog.TraceLog{
		// pgxzero adapts zerolog to the tracelog.Logger interface.
		Logger: pgxzero.NewLogger(pgxLogger),

		// Convert zerolog level to pgx tracelog level.
		LogLevel: loggerConfig.GetPgxTraceLogLevel(globalLevel),
	}
}

// Connect opens a single connection.
//
// The caller owns the connection and must Close it.
func Connect(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*pgx.Conn, error) {
	connConfig, err := ConnConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	// ConnectConfig dials, authenticates and runs the startup handshake.
	// Any of these failing is what the readiness gate keeps retrying.
	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// New creates a PostgreSQL connection pool.
//
// It is meant to be called after the readiness gate, so a failing ping is
// a fatal error rather than a reason to wait.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Database, error) {
	connConfig, err := ConnConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	// An empty connection string gives pool defaults; the connection
	// settings themselves come from ConnConfig above.
	pgxPoolConfig, err := pgxpool.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}
	pgxPoolConfig.ConnConfig = connConfig
	// The boot pipeline is sequential; one connection is enough.
	pgxPoolConfig.MaxConns = 1

	// Create the connection pool with the prepared config.
	pool, err := pgxpool.NewWithConfig(ctx, pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	// Wrap pool + logger in Database struct for easier wiring.
	database := &Database{
		Pool: pool,
		log:  logger,
	}

	// Ping the DB with a timeout, so the stage fails fast if the DB went
	// away between the readiness gate and now.
	pingCtx, cancel := context.WithTimeout(ctx, DatabasePingTimeout*time.Second)
	defer cancel()
	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("connected to the database")

	return database, nil
}

// Close closes the database connection pool.
func (db *Database) Close() error {
	db.log.Debug().Msg("closing database connection pool")
	db.Pool.Close()
	return nil
}
