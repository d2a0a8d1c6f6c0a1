package bootstrap

import (
	"context"

	"github.com/deppfellow/foodgram-entrypoint/internal/config"
	"github.com/deppfellow/foodgram-entrypoint/internal/errs"
	"github.com/deppfellow/foodgram-entrypoint/internal/server"
	"github.com/rs/zerolog"
)

// StageHandoff names the final exec in errors and logs.
const StageHandoff = "handoff"

// Run executes the boot sequence and hands the process to the server.
//
// args are the container arguments (the server command; empty selects
// the configured default). On success Run does not return, because the
// process image has been replaced.
func Run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, args []string, deps Deps, opts ...server.Option) error {
	srv := server.New(cfg, logger, opts...)
	if err := srv.SetupCommand(args); err != nil {
		return errs.NewConfigError(err)
	}

	pipeline := NewPipeline(logger, NewBuilder(cfg, logger, deps).Boot()...)
	logger.Info().
		Strs("stages", pipeline.Stages()).
		Strs("command", srv.Command()).
		Msg("booting foodgram")

	report, err := pipeline.Run(ctx)
	logReport(logger, report)
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return errs.NewStageError(StageHandoff, err)
	}
	return nil
}

// logReport logs one summary line for the boot: every stage that ran, in
// order, with its duration and outcome. Stages after a failure did not run
// and are absent.
func logReport(logger *zerolog.Logger, report Report) {
	stages := zerolog.Arr()
	failed := ""
	for _, r := range report {
		d := zerolog.Dict().
			Str("stage", r.Name).
			Dur("duration", r.Duration)
		if r.Err != nil {
			d = d.Str("outcome", "failed").Err(r.Err)
			failed = r.Name
		} else {
			d = d.Str("outcome", "ok")
		}
		stages = stages.Dict(d)
	}

	ev := logger.Info()
	if failed != "" {
		ev = logger.Error().Str("failed_stage", failed)
	}
	ev.Array("stages", stages).
		Int("stages_run", len(report)).
		Msg("boot report")
}
