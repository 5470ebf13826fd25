// Package transport is the shared HTTP layer for the record store, notifier
// and search adapters: authentication, common headers and JSON decoding with
// typed API errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// UserAgent is sent on every request unless overridden.
const UserAgent = "knowledge-agent/1.0"

// Client provides HTTP client functionality with authentication.
type Client struct {
	service string
	http    *http.Client
	auth    Authenticator
	headers http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// New creates a transport client for the named service.
func New(service string, auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		service: service,
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
		headers: make(http.Header),
	}
	c.headers.Set("User-Agent", UserAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the service name used in errors and logs.
func (c *Client) Service() string {
	return c.service
}

// Do performs an HTTP request with authentication and common headers applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	c.auth.Apply(req)

	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	LogRequest(logging.Ctx(req.Context()), req.Method, req.URL.Host, status, time.Since(start))
	return resp, err
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+url, err)
	}
	return c.Do(req)
}

// JSON sends body (if non-nil) as JSON and decodes a 2xx response into target
// (if non-nil). Transport failures come back as status-less APIErrors, which
// errors.IsTransient recognizes.
func (c *Client) JSON(ctx context.Context, method, url string, body, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", "request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return &errors.APIError{Service: c.service, Endpoint: url, Message: err.Error(), Err: err}
	}
	return DecodeResponse(ctx, resp, c.service, target)
}

// DecodeResponse decodes a JSON response into target. Non-2xx responses
// become *errors.APIError carrying the status code and body.
func DecodeResponse(ctx context.Context, resp *http.Response, service string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("service", service).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			endpoint = resp.Request.URL.String()
		}
		return &errors.APIError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 512),
			Endpoint:   endpoint,
		}
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// LogRequest logs a finished request at debug level. Only the host is logged
// because some services carry credentials in the path.
func LogRequest(logger *zerolog.Logger, method, host string, status int, elapsed time.Duration) {
	logger.Debug().
		Str("method", method).
		Str("host", host).
		Int("status", status).
		Dur("elapsed", elapsed).
		Msg("HTTP request")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
