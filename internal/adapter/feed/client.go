// Package feed provides the HTTP client shared by all source adapters:
// context-aware GETs with per-source circuit breaking and typed failures so
// callers can log timeouts and upstream errors distinctly.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Source string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Source, e.Code)
}

// ErrCircuitOpen wraps gobreaker's open-state rejection so adapters can treat
// a short-circuited source like any other fetch failure.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Client fetches feed payloads with a bounded timeout and one circuit breaker
// per source, so a flapping provider is short-circuited between scheduled
// runs instead of burning its timeout on every ingestion.
type Client struct {
	rest   *resty.Client
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient creates a feed client. timeout bounds each request end to end.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	rest := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "hazard-atlas/1.0")

	return &Client{
		rest:     rest,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Get fetches url on behalf of the named source and returns the raw body.
// Failures are typed: *StatusError for non-2xx, context errors for timeouts,
// ErrCircuitOpen while the source's breaker is tripped.
func (c *Client) Get(ctx context.Context, source, url string, params map[string]string) ([]byte, error) {
	body, err := c.breaker(source).Execute(func() (any, error) {
		resp, err := c.rest.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(url)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%s fetch timed out: %w", source, context.DeadlineExceeded)
			}
			return nil, fmt.Errorf("%s fetch: %w", source, err)
		}
		if resp.IsError() {
			return nil, &StatusError{Source: source, Code: resp.StatusCode()}
		}
		return resp.Body(), nil
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

func (c *Client) breaker(source string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[source]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source,
		MaxRequests: 2,
		Interval:    5 * time.Minute,
		Timeout:     10 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("feed circuit state change",
				"source", name, "from", from.String(), "to", to.String())
		},
	})
	c.breakers[source] = cb
	return cb
}
