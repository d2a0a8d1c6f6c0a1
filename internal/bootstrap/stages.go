package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/foodgram-entrypoint/internal/config"
	"github.com/deppfellow/foodgram-entrypoint/internal/database"
	"github.com/deppfellow/foodgram-entrypoint/internal/lib/command"
	"github.com/deppfellow/foodgram-entrypoint/internal/repository"
	"github.com/deppfellow/foodgram-entrypoint/internal/service"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the stages talk to.
type Deps struct {
	// Runner runs management commands.
	Runner command.Runner

	// Probe is the readiness check.
	Probe database.Probe

	// MigrateSQL applies SQL migrations ("sql" migration mode).
	MigrateSQL func(ctx context.Context) error

	// OpenStore connects the ingredient store ("native" fixture mode).
	// The returned func releases it.
	OpenStore func(ctx context.Context) (service.IngredientStore, func(), error)
}

// DefaultDeps returns the production collaborators for cfg.
func DefaultDeps(cfg *config.Config, logger *zerolog.Logger) Deps {
	return Deps{
		Runner: command.NewExec(logger),
		Probe:  database.PingProbe(cfg, logger),
		MigrateSQL: func(ctx context.Context) error {
			return database.Migrate(ctx, logger, cfg)
		},
		OpenStore: func(ctx context.Context) (service.IngredientStore, func(), error) {
			db, err := database.New(ctx, cfg, logger)
			if err != nil {
				return nil, nil, err
			}
			repo := repository.NewIngredientRepository(db.Pool, cfg.Fixtures.Table, cfg.Fixtures.LockKey)
			return repo, func() { _ = db.Close() }, nil
		},
	}
}

// Builder constructs stages from configuration.
type Builder struct {
	cfg    *config.Config
	logger *zerolog.Logger
	deps   Deps
}

func NewBuilder(cfg *config.Config, logger *zerolog.Logger, deps Deps) *Builder {
	return &Builder{cfg: cfg, logger: logger, deps: deps}
}

// Boot returns the full boot sequence, in order.
func (b *Builder) Boot() []Stage {
	return []Stage{
		b.WaitDB(),
		b.Migrate(),
		b.CollectStatic(),
		b.LoadIngredients(),
	}
}

// ByName returns the stage called name.
func (b *Builder) ByName(name string) (Stage, error) {
	for _, s := range b.Boot() {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown stage %q", name)
}

// WaitDB blocks until the database accepts connections.
func (b *Builder) WaitDB() Stage {
	return StageFunc{
		StageName: StageWaitDB,
		Fn: func(ctx context.Context) error {
			b.logger.Info().
				Str("host", b.cfg.Database.Host).
				Int("port", b.cfg.Database.Port).
				Str("database", b.cfg.Database.Name).
				Msg("waiting for database")
			return database.WaitReady(ctx, b.deps.Probe, b.cfg.Readiness.Interval, b.logger)
		},
	}
}

// Migrate applies pending schema migrations.
func (b *Builder) Migrate() Stage {
	return StageFunc{
		StageName: StageMigrate,
		Fn: func(ctx context.Context) error {
			switch b.cfg.Migrations.Mode {
			case config.ModeSQL:
				return b.deps.MigrateSQL(ctx)
			case config.ModeCommand:
				return b.runCommand(ctx, b.cfg.Migrations.Command)
			default:
				b.skipped(StageMigrate)
				return nil
			}
		},
	}
}

// CollectStatic rebuilds the static asset directory.
func (b *Builder) CollectStatic() Stage {
	return StageFunc{
		StageName: StageCollectStatic,
		Fn: func(ctx context.Context) error {
			switch b.cfg.Static.Mode {
			case config.ModeNative:
				_, err := service.NewStaticService(b.logger).
					Collect(ctx, b.cfg.Static.Root, b.cfg.Static.SourceDirs())
				return err
			case config.ModeCommand:
				return b.runCommand(ctx, b.cfg.Static.Command)
			default:
				b.skipped(StageCollectStatic)
				return nil
			}
		},
	}
}

// LoadIngredients loads the ingredient dataset.
func (b *Builder) LoadIngredients() Stage {
	return StageFunc{
		StageName: StageLoadIngredients,
		Fn: func(ctx context.Context) error {
			switch b.cfg.Fixtures.Mode {
			case config.ModeNative:
				return b.loadIngredients(ctx)
			case config.ModeCommand:
				return b.runCommand(ctx, b.cfg.Fixtures.Command)
			default:
				b.skipped(StageLoadIngredients)
				return nil
			}
		},
	}
}

func (b *Builder) loadIngredients(ctx context.Context) error {
	store, release, err := b.deps.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = service.NewIngredientService(store, b.logger).Load(ctx, b.cfg.Fixtures.Path)
	if errors.Is(err, service.ErrDatasetNotFound) && !b.cfg.Fixtures.Required {
		b.logger.Error().
			Err(err).
			Str("path", b.cfg.Fixtures.Path).
			Msg("ingredient dataset is missing, nothing loaded")
		return nil
	}
	return err
}

func (b *Builder) runCommand(ctx context.Context, line string) error {
	argv, err := command.Split(line)
	if err != nil {
		return err
	}
	return b.deps.Runner.Run(ctx, b.cfg.Primary.WorkDir, argv)
}

func (b *Builder) skipped(stage string) {
	b.logger.Info().Str("stage", stage).Msg("stage disabled, skipping")
}
