// Package lib acts as a library for modules that do not fit strictly
// into other layers.
//
// It contains the retry loop used by the readiness gate, the external
// command runner, filesystem helpers for static collection and small
// shared utilities.
package lib
