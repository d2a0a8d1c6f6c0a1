// Command foodgram-entrypoint is the entrypoint of the Foodgram backend
// image.
//
// It waits for PostgreSQL, applies migrations, collects static files,
// loads the ingredient dataset and finally execs the server command given
// as container arguments (gunicorn on 0.0.0.0:8000 by default).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := newCLI(os.Stdout, os.Stderr).run(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}
