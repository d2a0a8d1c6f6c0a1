// Package health implements the one-shot probe behind the container
// HEALTHCHECK.
//
// It reports whether the database is reachable and whether the server
// accepts TCP connections on its bind address.
package health

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Check is a single named dependency check.
type Check func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

// Response is the outcome of all checks.
type Response struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Healthy reports whether every check passed.
func (r Response) Healthy() bool {
	return r.Status == StatusHealthy
}

// Checker runs named checks, each bounded by timeout.
type Checker struct {
	checks  map[string]Check
	order   []string
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewChecker(timeout time.Duration, logger *zerolog.Logger) *Checker {
	return &Checker{
		checks:  map[string]Check{},
		timeout: timeout,
		logger:  logger,
	}
}

// Add registers a check under name.
func (c *Checker) Add(name string, check Check) *Checker {
	if _, ok := c.checks[name]; !ok {
		c.order = append(c.order, name)
	}
	c.checks[name] = check
	return c
}

// Run executes every check in registration order.
func (c *Checker) Run(ctx context.Context) Response {
	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(c.checks)),
	}

	for _, name := range c.order {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		err := c.checks[name](checkCtx)
		cancel()

		result := CheckResult{
			Status:       StatusHealthy,
			ResponseTime: time.Since(start).String(),
		}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Error = err.Error()
			response.Status = StatusUnhealthy

			c.logger.Error().
				Err(err).
				Str("check", name).
				Dur("response_time", time.Since(start)).
				Msg("health check failed")
		} else {
			c.logger.Debug().
				Str("check", name).
				Dur("response_time", time.Since(start)).
				Msg("health check passed")
		}
		response.Checks[name] = result
	}

	return response
}

// TCPCheck returns a Check that dials addr.
//
// An unspecified bind host (0.0.0.0, ::, empty) is dialed on loopback.
func TCPCheck(addr string) Check {
	return func(ctx context.Context) error {
		target, err := DialAddress(addr)
		if err != nil {
			return err
		}

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", target)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// DialAddress rewrites a listen address into one that can be dialed.
func DialAddress(bind string) (string, error) {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "", err
	}

	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}
	return net.JoinHostPort(host, port), nil
}
