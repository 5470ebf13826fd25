// Package fetch retrieves the text at a remote source URL with a bounded
// retry budget and classifies the result. Only a 200 response with a
// non-empty body counts as reachable; everything else is unreachable to
// callers, but NotFound and EmptyBody are known after a single attempt.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noxenys/AI-Knowledge-Agent/internal/transport"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
)

// Kind classifies a fetch result.
type Kind int

// Result kinds.
const (
	Success Kind = iota
	EmptyBody
	NotFound
	TransientFailure
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case EmptyBody:
		return "empty_body"
	case NotFound:
		return "not_found"
	case TransientFailure:
		return "transient_failure"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Result is the classified outcome of Fetch.
type Result struct {
	Kind       Kind
	Text       string
	StatusCode int
	Attempts   int
	Err        error
}

// OK reports whether the source is reachable and Text holds its content.
func (r Result) OK() bool {
	return r.Kind == Success
}

// Fetcher retrieves remote source text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Result
}

// Client is the default Fetcher.
type Client struct {
	http    *transport.Client
	policy  retry.Policy
	sleeper retry.Sleeper
}

// Option configures a Client.
type Option func(*Client)

// WithPolicy overrides the retry budget.
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithSleeper overrides how the client waits between attempts.
func WithSleeper(s retry.Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleeper = s
		}
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = transport.New("fetch", &transport.NoAuth{}, transport.WithTimeout(d))
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = transport.New("fetch", &transport.NoAuth{}, transport.WithHTTPClient(hc))
	}
}

// New returns a Client with a 15s timeout and the default retry policy.
func New(opts ...Option) *Client {
	c := &Client{
		http:    transport.New("fetch", &transport.NoAuth{}, transport.WithTimeout(constants.FetchTimeout)),
		policy:  retry.DefaultPolicy(),
		sleeper: retry.RealSleeper,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves url. It never returns an error directly; failures are
// carried in Result.Err with the classification in Result.Kind.
func (c *Client) Fetch(ctx context.Context, url string) Result {
	logger := logging.Ctx(ctx)
	var last Result

	outcome, attempts, err := retry.Do(ctx, c.policy, c.sleeper, func(attempt int) (retry.Outcome, error) {
		logger.Debug().Str("url", url).Int("attempt", attempt).Int("max_attempts", c.policy.MaxAttempts).Msg("Fetching remote source")
		last = c.attempt(ctx, url)

		switch last.Kind {
		case Success:
			return retry.Succeeded, nil
		case NotFound, EmptyBody:
			logger.Warn().Str("url", url).Str("kind", last.Kind.String()).Msg("Remote source unusable")
			return retry.Terminal, last.Err
		case TransientFailure:
			logger.Warn().Err(last.Err).Str("url", url).Int("attempt", attempt).Msg("Fetch attempt failed")
			return retry.Retryable, last.Err
		}
		return retry.Terminal, last.Err
	})

	last.Attempts = attempts
	if outcome == retry.Retryable && err != nil && last.Err == nil {
		last.Err = err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && last.Kind != Success {
		last.Kind = TransientFailure
		last.Err = ctxErr
	}
	return last
}

func (c *Client) attempt(ctx context.Context, url string) Result {
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return Result{Kind: TransientFailure, Err: &errors.TransientNetworkError{URL: url, Err: err}}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Ctx(ctx).Debug().Err(cerr).Msg("Failed to close response body")
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Result{Kind: NotFound, StatusCode: resp.StatusCode, Err: errors.NewNotFoundError("source", url)}
	case resp.StatusCode != http.StatusOK:
		return Result{
			Kind:       TransientFailure,
			StatusCode: resp.StatusCode,
			Err:        &errors.TransientNetworkError{URL: url, StatusCode: resp.StatusCode},
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Kind: TransientFailure, StatusCode: resp.StatusCode, Err: &errors.TransientNetworkError{URL: url, Err: err}}
	}
	if len(body) == 0 {
		return Result{
			Kind:       EmptyBody,
			StatusCode: resp.StatusCode,
			Err:        errors.NewValidationError("body", url, "remote content is empty"),
		}
	}
	return Result{Kind: Success, Text: string(body), StatusCode: resp.StatusCode}
}
