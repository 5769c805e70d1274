package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cleaker/cleaker_sdk_go/internal/gqlapi"
	"github.com/cleaker/cleaker_sdk_go/internal/httpx"
)

// RetryPolicy configures opt-in retries of transient transport failures.
// Clients never retry unless one is supplied through WithRetryPolicy.
type RetryPolicy = httpx.RetryPolicy

// Request is one operation as handed to a Backend.
type Request struct {
	// Operation is the root field the result is read from.
	Operation string
	Query     string
	Variables map[string]any
	// Mutation marks a write. Writes are never retried.
	Mutation bool
}

// Backend carries requests to a ledger and returns the raw envelope body.
type Backend interface {
	Execute(ctx context.Context, req Request) ([]byte, error)
	Health(ctx context.Context) (string, error)
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger *zap.Logger
	http   []httpx.Option
}

// WithLogger sets the logger used for per-operation debug records.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its own Timeout then
// applies instead of Config.Timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) {
		o.http = append(o.http, httpx.WithHTTPClient(h))
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(h http.Header) Option {
	return func(o *options) {
		o.http = append(o.http, httpx.WithHeaders(h))
	}
}

// WithRetryPolicy enables retries of transient transport failures. Only
// queries are retried; a write whose response was lost could otherwise be
// recorded twice and report false.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) {
		o.http = append(o.http, httpx.WithRetryPolicy(p))
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Client issues ledger operations. It holds no mutable state and is safe for
// concurrent use.
type Client struct {
	cfg     Config
	backend Backend
	log     *zap.Logger
	opts    []Option
}

// New constructs a Client bound to cfg.Endpoint over HTTP.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	httpOpts := append([]httpx.Option{
		httpx.WithTimeout(cfg.timeout()),
		httpx.WithLogger(o.logger),
	}, o.http...)
	hc, err := httpx.NewClient(cfg.Endpoint, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("ledger: init HTTP client: %w", err)
	}
	return &Client{
		cfg:     cfg,
		backend: &httpBackend{client: hc, healthURL: cfg.HealthURL()},
		log:     o.logger,
		opts:    append([]Option(nil), opts...),
	}, nil
}

// NewWithBackend allows callers to supply a custom backend (e.g., mocks).
func NewWithBackend(b Backend, opts ...Option) *Client {
	o := buildOptions(opts)
	return &Client{backend: b, log: o.logger, opts: append([]Option(nil), opts...)}
}

// Endpoint returns the configured endpoint, empty for custom backends.
func (c *Client) Endpoint() string {
	if c == nil {
		return ""
	}
	return c.cfg.Endpoint
}

// WithEndpoint returns a new HTTP-backed Client for endpoint with the same
// options. The receiver is left untouched, so in-flight calls keep their
// endpoint.
func (c *Client) WithEndpoint(endpoint string) (*Client, error) {
	if c == nil {
		return nil, errors.New("ledger: client is nil")
	}
	cfg := c.cfg
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Endpoint = endpoint
	return New(cfg, c.opts...)
}

// Health probes the liveness endpoint and returns its body.
func (c *Client) Health(ctx context.Context) (string, error) {
	if c == nil || c.backend == nil {
		return "", &Error{Kind: KindTransport, Err: errors.New("ledger: client is nil")}
	}
	text, err := c.backend.Health(ctx)
	if err != nil {
		return "", classify(err)
	}
	return text, nil
}

// execute runs one operation and decodes the envelope's data into T.
func execute[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T
	if c == nil || c.backend == nil {
		return zero, &Error{Kind: KindTransport, Err: errors.New("ledger: client is nil")}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}

	start := time.Now()
	body, err := c.backend.Execute(ctx, req)
	if err == nil {
		var out T
		if err = gqlapi.Decode(body, &out); err == nil {
			c.log.Debug("ledger operation completed",
				zap.String("operation", req.Operation),
				zap.Duration("elapsed", time.Since(start)))
			return out, nil
		}
	}

	lerr := classify(err)
	c.log.Debug("ledger operation failed",
		zap.String("operation", req.Operation),
		zap.Stringer("kind", lerr.Kind),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(lerr))
	return zero, lerr
}

type httpBackend struct {
	client    *httpx.Client
	healthURL string
}

func (b *httpBackend) Execute(ctx context.Context, req Request) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("ledger: http backend not configured")
	}
	payload := gqlapi.NewRequest(req.Query, req.Variables)
	if req.Mutation {
		return b.client.PostJSONOnce(ctx, "", payload)
	}
	return b.client.PostJSON(ctx, "", payload)
}

func (b *httpBackend) Health(ctx context.Context) (string, error) {
	if b == nil || b.client == nil {
		return "", fmt.Errorf("ledger: http backend not configured")
	}
	return b.client.GetText(ctx, b.healthURL)
}
