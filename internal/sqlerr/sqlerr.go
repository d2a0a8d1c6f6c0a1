// Package sqlerr classifies database driver errors.
//
// The readiness gate retries every failure, but it is worth telling an
// operator whether the database is simply not up yet or whether the
// retries can never succeed (wrong password, missing database).
package sqlerr
