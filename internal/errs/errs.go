// Package errs defines the bootstrapper's error taxonomy.
//
// Every error that ends the boot is one of:
//   - a ConfigError, raised before any stage runs;
//   - a StageError, raised by a fatal setup stage (migrate, collectstatic,
//     load-ingredients) or by the handoff itself.
//
// Transient database unavailability never becomes an error: the readiness
// gate swallows it and retries.
//
// ExitCode turns any of these into the process exit status.
package errs
