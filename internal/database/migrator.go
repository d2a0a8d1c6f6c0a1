package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/deppfellow/foodgram-entrypoint/internal/config"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"
)

// ErrNoMigrations is returned when the migrations directory holds no
// migration files.
var ErrNoMigrations = errors.New("no migrations found")

// Migrate runs SQL migrations using jackc/tern.
//
// Migrations are read from cfg.Migrations.Dir (files named like
// 001_create_ingredients.sql) and the applied version is kept in
// cfg.Migrations.VersionTable.
//
// The directory is read at runtime rather than embedded: the image ships
// the migrations next to the binary and "sql" mode is opt-in.
func Migrate(ctx context.Context, logger *zerolog.Logger, cfg *config.Config) error {
	return MigrateFS(ctx, logger, cfg, os.DirFS(cfg.Migrations.Dir))
}

// MigrateFS is Migrate with an explicit migrations filesystem.
//
// Behavior:
//   - Refuse an empty migration set before touching the database
//   - Connect using pgx (single connection, not a pool)
//   - Create tern migrator and load migrations from migrations
//   - Run migrations to latest
//   - Log whether it was already up-to-date or migrated
func MigrateFS(ctx context.Context, logger *zerolog.Logger, cfg *config.Config, migrations fs.FS) error {
	// tern only picks up *.sql files at the root of the FS.
	// A typo in FOODGRAM_MIGRATIONS__DIR usually ends up here, so make it
	// loud instead of "migrating" to version 0.
	files, err := fs.Glob(migrations, "*.sql")
	if err != nil {
		return fmt.Errorf("listing database migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%s: %w", cfg.Migrations.Dir, ErrNoMigrations)
	}

	// Open a direct connection for migrations.
	// Using a single connection avoids pool complexity for a one-time action.
	conn, err := Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	// WithoutCancel: close cleanly even when the boot was interrupted.
	defer conn.Close(context.WithoutCancel(ctx))

	// Create a migrator that stores the migration version in VersionTable.
	m, err := tern.NewMigrator(ctx, conn, cfg.Migrations.VersionTable)
	if err != nil {
		return fmt.Errorf("constructing database migrator: %w", err)
	}

	// Load migrations from the filesystem.
	// tern parses filenames and orders them by their numeric prefix.
	if err := m.LoadMigrations(migrations); err != nil {
		return fmt.Errorf("loading database migrations: %w", err)
	}
	if len(m.Migrations) == 0 {
		return fmt.Errorf("%s: %w", cfg.Migrations.Dir, ErrNoMigrations)
	}

	// One log line per applied migration, so a slow one is easy to spot.
	m.OnStart = func(sequence int32, name, direction, _ string) {
		logger.Info().
			Int32("sequence", sequence).
			Str("name", name).
			Str("direction", direction).
			Msg("applying migration")
	}

	// Read current version from the version table.
	// `from` is the version number already applied.
	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("retrieving current database migration version: %w", err)
	}

	// Apply migrations up to latest.
	// Each migration runs in its own transaction; a failure leaves the
	// schema at the last successful version.
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating database schema: %w", err)
	}

	// Log outcome:
	// If current version equals number of migrations loaded, nothing changed.
	if from == int32(len(m.Migrations)) {
		logger.Info().Msgf("database schema up to date, version %d", len(m.Migrations))
	} else {
		logger.Info().Msgf("migrated database schema, from %d to %d", from, len(m.Migrations))
	}
	return nil
}
