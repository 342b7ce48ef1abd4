package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrExhausted reports that every attempt of a retried GET failed. Callers
// use it to degrade to a partial result rather than abort the run.
var ErrExhausted = errors.New("all fetch attempts exhausted")

// Policy bounds a retried request: at most Attempts tries, a fixed Delay
// between them, and a per-attempt Timeout. The delay is deliberately constant
// rather than exponential so a batch run over dozens of small sources stays
// time-bounded and predictable.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// DefaultPolicy matches the published feed tooling: three tries, one second
// apart, ten seconds per request.
var DefaultPolicy = Policy{
	Attempts: 3,
	Delay:    time.Second,
	Timeout:  10 * time.Second,
}

// Client performs retry-wrapped GETs. The underlying http.Client (and its
// connection pool) is shared by every concurrent pipeline task.
type Client struct {
	policy Policy
	http   *http.Client
}

func New(policy Policy) *Client {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &Client{
		policy: policy,
		http: &http.Client{
			Timeout: policy.Timeout,
		},
	}
}

// Get fetches url, retrying per the client's policy. It returns the response
// body on the first 2xx answer. After the final failed attempt it returns an
// error wrapping ErrExhausted; the last attempt's failure is included.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.Attempts; attempt++ {
		body, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == c.policy.Attempts {
			break
		}
		slog.Warn("fetch failed, retrying",
			"url", url, "attempt", attempt, "max", c.policy.Attempts, "error", err)

		if err := sleep(ctx, c.policy.Delay); err != nil {
			return nil, err
		}
	}

	slog.Error("fetch failed, giving up",
		"url", url, "attempts", c.policy.Attempts, "error", lastErr)
	return nil, fmt.Errorf("%w: %s: %v", ErrExhausted, url, lastErr)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
