// Package validation contains the logic for validating configuration
// and dataset records.
//
// It uses the `validator` library to enforce rules (like required fields
// or maximum lengths) defined in struct tags and turns validation errors
// into field errors that read well in a log line.
package validation
