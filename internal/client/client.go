// Package client is the Go client for the SnipStash HTTP API.
//
// Every request goes through a circuit breaker. Reads are retried on
// transient failures; writes are sent once. Server errors decode back into
// coded domain errors, so callers branch with errors.CodeOf exactly as the
// server does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
)

// Header names shared with the server.
const (
	HeaderClientID = "X-Client-ID"
	HeaderAPIKey   = "X-API-Key"
)

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 1 << 20
)

// Client talks to one SnipStash server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	stream  *http.Client
	breaker *gobreaker.CircuitBreaker
	retry   RetryPolicy
	logger  *slog.Logger
	id      string

	breakerFailures uint32
	breakerOpenFor  time.Duration

	mu     sync.RWMutex
	token  string
	apiKey string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken authenticates requests with a bearer access token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithAPIKey authenticates requests with an API key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithRetryPolicy sets the retry policy for reads.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithBreaker trips the circuit after failures consecutive transient
// failures and keeps it open for openFor.
func WithBreaker(failures uint32, openFor time.Duration) Option {
	return func(c *Client) {
		c.breakerFailures = failures
		c.breakerOpenFor = openFor
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClientID overrides the generated client ID sent as X-Client-ID.
func WithClientID(id string) Option {
	return func(c *Client) { c.id = id }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:         u,
		http:            &http.Client{Timeout: defaultTimeout},
		retry:           DefaultRetryPolicy(),
		logger:          slog.New(slog.DiscardHandler),
		id:              uuid.NewString(),
		breakerFailures: 5,
		breakerOpenFor:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	// The event stream must outlive any request timeout.
	c.stream = &http.Client{Transport: c.http.Transport}
	c.breaker = c.newBreaker()
	return c, nil
}

func (c *Client) newBreaker() *gobreaker.CircuitBreaker {
	failures := c.breakerFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "snipstash-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     c.breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || domainerrors.CodeOf(err) != domainerrors.CodeUnavailable
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}

// ID returns the identifier sent as X-Client-ID. Server events caused by
// this client carry it as their origin.
func (c *Client) ID() string {
	return c.id
}

// SetToken replaces the bearer token. An empty token clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	accept string
}

// get performs a read, retrying transient failures.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req := request{method: http.MethodGet, path: path, query: query, out: out}
	return c.retry.retry(ctx, func() error {
		return c.do(ctx, req)
	})
}

// send performs a write exactly once.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, request{method: method, path: path, body: body, out: out})
}

func (c *Client) do(ctx context.Context, r request) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, r)
	})
	switch {
	case err == nil:
		return nil
	case domainerrors.Is(err, gobreaker.ErrOpenState), domainerrors.Is(err, gobreaker.ErrTooManyRequests):
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "server temporarily unavailable")
	default:
		return err
	}
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set(HeaderClientID, c.id)

	c.mu.RLock()
	token, apiKey := c.token, c.apiKey
	c.mu.RUnlock()
	switch {
	case token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	case apiKey != "":
		req.Header.Set(HeaderAPIKey, apiKey)
	}
	return req, nil
}

func (c *Client) roundTrip(ctx context.Context, r request) error {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "request failed")
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		slog.String("method", r.method),
		slog.String("path", r.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if r.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if raw, ok := r.out.(*[]byte); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "read response")
		}
		*raw = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "decode response")
	}
	return nil
}

// errorBody is the server's error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

var knownCodes = map[domainerrors.Code]bool{
	domainerrors.CodeNotFound:      true,
	domainerrors.CodeInvalidState:  true,
	domainerrors.CodeAlreadyExists: true,
	domainerrors.CodeUnauthorized:  true,
	domainerrors.CodeForbidden:     true,
	domainerrors.CodeValidation:    true,
	domainerrors.CodeUnavailable:   true,
	domainerrors.CodeInternal:      true,
}

// decodeError turns a non-2xx response into a domain error. Rate limiting
// and server faults always come back as UNAVAILABLE so callers can retry.
func decodeError(resp *http.Response) error {
	var body errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	_ = json.Unmarshal(data, &body)

	code := domainerrors.Code(body.Code)
	if !knownCodes[code] || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		code = domainerrors.CodeFromStatus(resp.StatusCode)
	}
	msg := body.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &domainerrors.Error{Code: code, Message: msg, Details: body.Details}
}
