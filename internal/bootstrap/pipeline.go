package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/foodgram-entrypoint/internal/errs"
	"github.com/rs/zerolog"
)

// StageResult records how one stage went.
type StageResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Report is the outcome of a pipeline run, in execution order.
// Stages after a failure are absent.
type Report []StageResult

// Pipeline runs stages one after another.
type Pipeline struct {
	stages []Stage
	logger *zerolog.Logger
}

func NewPipeline(logger *zerolog.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, logger: logger}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	return names
}

// Run executes every stage in order and stops at the first failure.
//
// The failure is returned as *errs.StageError. If ctx is cancelled the
// error also wraps errs.ErrInterrupted.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	report := make(Report, 0, len(p.stages))

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return report, errs.NewStageError(stage.Name(), interrupted(err))
		}

		p.logger.Info().Str("stage", stage.Name()).Msg("stage started")
		start := time.Now()

		err := stage.Run(ctx)
		result := StageResult{Name: stage.Name(), Duration: time.Since(start), Err: err}
		report = append(report, result)

		if err != nil {
			if ctx.Err() != nil {
				err = interrupted(err)
			}
			p.logger.Error().
				Err(err).
				Str("stage", stage.Name()).
				Dur("duration", result.Duration).
				Msg("stage failed")
			return report, errs.NewStageError(stage.Name(), err)
		}

		p.logger.Info().
			Str("stage", stage.Name()).
			Dur("duration", result.Duration).
			Msg("stage finished")
	}

	return report, nil
}

func interrupted(err error) error {
	if errors.Is(err, errs.ErrInterrupted) {
		return err
	}
	return fmt.Errorf("%w: %w", errs.ErrInterrupted, err)
}
