package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/deppfellow/foodgram-entrypoint/internal/bootstrap"
	"github.com/deppfellow/foodgram-entrypoint/internal/config"
	"github.com/deppfellow/foodgram-entrypoint/internal/errs"
	"github.com/deppfellow/foodgram-entrypoint/internal/health"
	"github.com/deppfellow/foodgram-entrypoint/internal/lib/utils"
	"github.com/deppfellow/foodgram-entrypoint/internal/logger"
	"github.com/deppfellow/foodgram-entrypoint/internal/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("unhealthy")

// cli carries what every command needs once configuration is loaded.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	// deps and serverOpts are swapped out by tests.
	deps       func(cfg *config.Config, logger *zerolog.Logger) bootstrap.Deps
	serverOpts []server.Option

	cfg    *config.Config
	logger *zerolog.Logger
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		stdout: stdout,
		stderr: stderr,
		deps:   bootstrap.DefaultDeps,
	}
}

// run executes the command line and returns the process exit status.
func (c *cli) run(ctx context.Context, args []string) int {
	root := c.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return errs.ExitOK
	}

	if c.logger != nil {
		ev, msg := c.logger.Error().Err(err), "command failed"
		if stage := errs.StageOf(err); stage != "" {
			ev, msg = ev.Str("stage", stage), "boot aborted"
		}
		ev.Int("exit_code", errs.ExitCode(err)).Msg(msg)
	} else {
		fmt.Fprintln(c.stderr, "foodgram-entrypoint:", err)
	}
	return errs.ExitCode(err)
}

// load reads configuration and builds the logger.
func (c *cli) load() error {
	cfg, err := config.Load()
	if err != nil {
		return errs.NewConfigError(err)
	}
	l := logger.NewWithWriter(cfg.Observability, c.stderr)

	c.cfg = cfg
	c.logger = &l
	return nil
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "foodgram-entrypoint [command...]",
		Short: "Boot the Foodgram backend container",
		Long: `Waits for PostgreSQL, applies migrations, collects static files and
loads the ingredient dataset, then replaces itself with the given command
(default: the configured gunicorn command bound to 0.0.0.0:8000).`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(); err != nil {
				return err
			}
			return bootstrap.Run(cmd.Context(), c.cfg, c.logger, args, c.deps(c.cfg, c.logger), c.serverOpts...)
		},
	}
	// Everything from the first positional argument on belongs to the
	// server command, including its flags.
	root.Flags().SetInterspersed(false)
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.AddCommand(
		c.stageCommand(),
		c.healthcheckCommand(),
		c.configCommand(),
	)
	return root
}

func (c *cli) stageCommand() *cobra.Command {
	names := []string{
		bootstrap.StageWaitDB,
		bootstrap.StageMigrate,
		bootstrap.StageCollectStatic,
		bootstrap.StageLoadIngredients,
	}

	return &cobra.Command{
		Use:       "stage <name>",
		Short:     "Run a single boot stage",
		Long:      fmt.Sprintf("Run a single boot stage and exit. Stages: %v.", names),
		ValidArgs: names,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(); err != nil {
				return err
			}

			stage, err := bootstrap.NewBuilder(c.cfg, c.logger, c.deps(c.cfg, c.logger)).ByName(args[0])
			if err != nil {
				return err
			}
			_, err = bootstrap.NewPipeline(c.logger, stage).Run(cmd.Context())
			return err
		},
	}
}

func (c *cli) healthcheckCommand() *cobra.Command {
	var (
		timeout    time.Duration
		skipServer bool
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the database and the server once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.load(); err != nil {
				return err
			}

			checker := health.NewChecker(timeout, c.logger).
				Add("database", health.Check(c.deps(c.cfg, c.logger).Probe))
			if !skipServer {
				checker.Add("server", health.TCPCheck(c.cfg.Server.Bind))
			}

			response := checker.Run(cmd.Context())
			if err := utils.PrintJSON(c.stdout, response); err != nil {
				return err
			}
			if !response.Healthy() {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "timeout of each check")
	cmd.Flags().BoolVar(&skipServer, "skip-server", false, "only check the database")
	return cmd
}

func (c *cli) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (password redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.load(); err != nil {
				return err
			}
			return utils.PrintJSON(c.stdout, c.cfg.Redacted())
		},
	}
}
