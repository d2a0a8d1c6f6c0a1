// Package bootstrap runs the container boot sequence: wait for the
// database, migrate, collect static assets, load the ingredient dataset,
// then hand the process over to the application server.
package bootstrap

import "context"

// Stage names, as used in logs and on the command line.
const (
	StageWaitDB          = "wait-db"
	StageMigrate         = "migrate"
	StageCollectStatic   = "collectstatic"
	StageLoadIngredients = "load-ingredients"
)

// Stage is one step of the boot sequence.
type Stage interface {
	// Name returns the stage name for logging purposes.
	Name() string

	// Run performs the stage. A returned error is fatal to the boot.
	Run(ctx context.Context) error
}

// StageFunc adapts a function to Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context) error
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Run(ctx context.Context) error { return s.Fn(ctx) }
