package sqlerr

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the category of a connection failure.
type Kind int

const (
	// Other is anything not recognized below.
	Other Kind = iota

	// Unavailable means the server is not reachable or not accepting
	// connections yet: refused, timed out, starting up, shutting down,
	// too many clients.
	Unavailable

	// Auth means the server rejected the credentials.
	Auth

	// MissingDatabase means the server is up but the database does not exist.
	MissingDatabase
)

func (k Kind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Auth:
		return "auth"
	case MissingDatabase:
		return "missing_database"
	default:
		return "other"
	}
}

// Classify returns the Kind of err.
func Classify(err error) Kind {
	if err == nil {
		return Other
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyCode(pgErr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return Unavailable
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		// compose starts the app before the db service name resolves.
		return Unavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Unavailable
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return Unavailable
	}

	return Other
}

func classifyCode(code string) Kind {
	switch {
	case code == pgerrcode.InvalidPassword,
		code == pgerrcode.InvalidAuthorizationSpecification:
		return Auth
	case code == pgerrcode.InvalidCatalogName:
		return MissingDatabase
	case pgerrcode.IsConnectionException(code),
		pgerrcode.IsOperatorIntervention(code),
		code == pgerrcode.TooManyConnections:
		return Unavailable
	default:
		return Other
	}
}

// IsTransient reports whether err is expected to go away on its own.
func IsTransient(err error) bool {
	return Classify(err) == Unavailable
}

// Code returns the SQLSTATE carried by err, or "".
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
