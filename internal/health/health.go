// Package health checks the oracle backend's liveness endpoint for the
// status display. It is not part of the question flow.
package health

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const DefaultPath = "/health"

type Status int

const (
	Unknown Status = iota
	Connected
	Unhealthy
	Unreachable
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case Unhealthy:
		return "backend not responding"
	case Unreachable:
		return "not connected"
	default:
		return "checking"
	}
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Checker performs GET requests against the health URL
type Checker struct {
	url        string
	timeout    time.Duration
	httpClient HTTPClient
	logger     *slog.Logger
}

func NewChecker(url string, timeout time.Duration, client HTTPClient, logger *slog.Logger) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{url: url, timeout: timeout, httpClient: client, logger: logger}
}

func (c *Checker) URL() string {
	return c.url
}

// Check reports Connected on any 2xx answer
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.logger.Warn("invalid health url", "url", c.url, "error", err)
		return Unreachable
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("health check failed", "url", c.url, "error", err)
		return Unreachable
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Connected
	}
	c.logger.Debug("health check unhealthy", "url", c.url, "status", resp.StatusCode)
	return Unhealthy
}
