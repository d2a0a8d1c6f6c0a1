// Package config manages environment variables.
//
// It reads variables from the process environment (and from a `.env`
// file when one exists), loads them into structured Go types, and
// validates that required values are present before any boot stage runs.
//
// Responsibilities:
//   - Map the fixed Postgres/Foodgram variables (DB_HOST, POSTGRES_USER, ...).
//   - Map FOODGRAM_<SECTION>__<KEY> overrides onto nested config fields.
//   - Validate required values so the container fails fast on bad config.
//   - Provide defaults that reproduce the stock Foodgram image behaviour.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/foodgram-entrypoint/internal/validation"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Two env sources are layered with koanf:

	1) The fixed names shared with the postgres image and docker-compose
	   file (DB_HOST, DB_PORT, POSTGRES_USER, POSTGRES_DB, POSTGRES_PASSWORD).
	   These are mapped one by one; every other variable is ignored.

	2) Variables prefixed with FOODGRAM_. The prefix is dropped, the rest is
	   lowercased and "__" becomes the nesting delimiter, so
	   FOODGRAM_STATIC__ROOT -> static.root -> Config.Static.Root and
	   FOODGRAM_DATABASE__SSL_MODE -> database.ssl_mode.

	The second source wins when both set the same key.
*/

const (
	// EnvPrefix is the prefix of every Foodgram-specific override.
	EnvPrefix = "FOODGRAM_"

	// nestingDelimiter separates sections in FOODGRAM_ variable names.
	nestingDelimiter = "__"
)

// composeKeys maps the well-known container variables onto koanf keys.
var composeKeys = map[string]string{
	"DB_HOST":           "database.host",
	"DB_PORT":           "database.port",
	"POSTGRES_USER":     "database.user",
	"POSTGRES_PASSWORD": "database.password",
	"POSTGRES_DB":       "database.name",
}

// Stage modes. Every stage can run the framework's own management command,
// a native Go implementation (where one exists) or be skipped.
const (
	ModeCommand = "command"
	ModeNative  = "native"
	ModeSQL     = "sql"
	ModeSkip    = "skip"
)

// Config is the root configuration object for the bootstrapper.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected in Load.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Readiness     ReadinessConfig      `koanf:"readiness" validate:"required"`
	Migrations    MigrationsConfig     `koanf:"migrations" validate:"required"`
	Static        StaticConfig         `koanf:"static" validate:"required"`
	Fixtures      FixturesConfig       `koanf:"fixtures" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
//
// WorkDir is where management commands run (the directory holding manage.py).
type Primary struct {
	Env     string `koanf:"env" validate:"required"`
	WorkDir string `koanf:"workdir" validate:"required"`
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host           string        `koanf:"host" validate:"required"`
	Port           int           `koanf:"port" validate:"required,min=1,max=65535"`
	User           string        `koanf:"user" validate:"required"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name" validate:"required"`
	SSLMode        string        `koanf:"ssl_mode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"min=1ms"`
}

// ReadinessConfig controls the wait-for-database loop.
//
// The loop has no attempt limit; the orchestrator decides when a container
// that never becomes ready is dead.
type ReadinessConfig struct {
	Interval time.Duration `koanf:"interval" validate:"min=1ms"`
}

// MigrationsConfig selects how the schema is migrated.
type MigrationsConfig struct {
	Mode         string `koanf:"mode" validate:"required,oneof=command sql skip"`
	Command      string `koanf:"command"`
	Dir          string `koanf:"dir"`
	VersionTable string `koanf:"version_table"`
}

// StaticConfig selects how static assets are collected.
//
// Sources is a comma separated list of directories, used by native mode.
type StaticConfig struct {
	Mode    string `koanf:"mode" validate:"required,oneof=command native skip"`
	Command string `koanf:"command"`
	Root    string `koanf:"root"`
	Sources string `koanf:"sources"`
}

// SourceDirs splits Sources into a list, dropping empty items.
func (s StaticConfig) SourceDirs() []string {
	var dirs []string
	for _, d := range strings.Split(s.Sources, ",") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// FixturesConfig controls the ingredient dataset load.
//
// Required turns a missing dataset file into a fatal error; by default a
// missing file is reported and the stage is skipped.
type FixturesConfig struct {
	Mode     string `koanf:"mode" validate:"required,oneof=native command skip"`
	Command  string `koanf:"command"`
	Path     string `koanf:"path"`
	Table    string `koanf:"table"`
	Required bool   `koanf:"required"`
	LockKey  int64  `koanf:"lock_key"`
}

// ServerConfig describes the process the bootstrapper hands off to.
//
// Command is used only when the container was started without arguments.
// Bind is the address the health probe dials.
type ServerConfig struct {
	Command string `koanf:"command" validate:"required"`
	Bind    string `koanf:"bind" validate:"required,hostname_port"`
}

// Default returns the configuration of the stock Foodgram image.
//
// Values read from the environment are unmarshalled on top of it, so any
// key that is not set keeps the value below.
func Default() *Config {
	return &Config{
		Primary: Primary{
			Env:     "production",
			WorkDir: "/app",
		},
		Database: DatabaseConfig{
			Host:           "db",
			Port:           5432,
			SSLMode:        "disable",
			ConnectTimeout: 5 * time.Second,
		},
		Readiness: ReadinessConfig{
			Interval: time.Second,
		},
		Migrations: MigrationsConfig{
			Mode:         ModeCommand,
			Command:      "python manage.py migrate --noinput",
			Dir:          "/app/migrations",
			VersionTable: "schema_version",
		},
		Static: StaticConfig{
			Mode:    ModeCommand,
			Command: "python manage.py collectstatic --noinput --clear",
			Root:    "/app/collected_static",
		},
		Fixtures: FixturesConfig{
			Mode:    ModeNative,
			Command: "python manage.py load_ingredients",
			Path:    "/app/data/ingredients.json",
			Table:   "recipes_ingredient",
			LockKey: 7406001,
		},
		Server: ServerConfig{
			Command: "gunicorn --bind 0.0.0.0:8000 foodgram_backend.wsgi",
			Bind:    "0.0.0.0:8000",
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// Load reads configuration from the environment, unmarshals it on top of
// Default(), validates it and returns the result.
//
// Unlike a long-running service, the bootstrapper must be able to report a
// config problem with a distinct exit code, so errors are returned instead
// of being logged fatally here.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Fixed names. Returning "" from the callback drops the variable.
	err := k.Load(env.Provider("", ".", func(s string) string {
		return composeKeys[s]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load container env variables: %w", err)
	}

	// FOODGRAM_ overrides. "__" is turned into "." before koanf unflattens.
	err = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, nestingDelimiter, ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load %s env variables: %w", EnvPrefix, err)
	}

	mainConfig := Default()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}
	mainConfig.Observability.ServiceName = "foodgram-entrypoint"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// Validate runs the struct-tag validator and the cross-field rules that
// tags cannot express.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Migrations.Mode == ModeCommand && strings.TrimSpace(c.Migrations.Command) == "" {
		return fmt.Errorf("migrations.command is required in %q mode", ModeCommand)
	}
	if c.Migrations.Mode == ModeSQL && (c.Migrations.Dir == "" || c.Migrations.VersionTable == "") {
		return fmt.Errorf("migrations.dir and migrations.version_table are required in %q mode", ModeSQL)
	}

	if c.Static.Mode == ModeCommand && strings.TrimSpace(c.Static.Command) == "" {
		return fmt.Errorf("static.command is required in %q mode", ModeCommand)
	}
	if c.Static.Mode == ModeNative {
		if c.Static.Root == "" {
			return fmt.Errorf("static.root is required in %q mode", ModeNative)
		}
		if len(c.Static.SourceDirs()) == 0 {
			return fmt.Errorf("static.sources is required in %q mode", ModeNative)
		}
	}

	if c.Fixtures.Mode == ModeCommand && strings.TrimSpace(c.Fixtures.Command) == "" {
		return fmt.Errorf("fixtures.command is required in %q mode", ModeCommand)
	}
	if c.Fixtures.Mode == ModeNative && (c.Fixtures.Path == "" || c.Fixtures.Table == "") {
		return fmt.Errorf("fixtures.path and fixtures.table are required in %q mode", ModeNative)
	}

	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			return fmt.Errorf("invalid observability config: %w", err)
		}
	}

	return nil
}

// Redacted returns a copy that is safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if c.Observability != nil {
		obs := *c.Observability
		cp.Observability = &obs
	}
	if cp.Database.Password != "" {
		cp.Database.Password = "********"
	}
	return &cp
}
