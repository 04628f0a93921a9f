package peopledoc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/peopledoc/pkg/deferred"
	"github.com/hashicorp-forge/peopledoc/pkg/transport"
)

// ErrNotFound is returned by operations that require an existing resource
// when the API reports none.
var ErrNotFound = errors.New("not found")

// ErrUnbound is returned by entity methods called on a value that was not
// created through a Client.
var ErrUnbound = errors.New("entity is not bound to a client")

// Client is the entry point to the PeopleDoc API.
type Client struct {
	transport *transport.Client
	log       hclog.Logger
	now       func() time.Time

	Employees  *Employees
	Documents  *Documents
	Signatures *Signatures
}

type options struct {
	logger    hclog.Logger
	transport []transport.Option
	now       func() time.Time
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger. Defaults to a null logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithExecutor replaces the HTTP executor.
func WithExecutor(e transport.Executor) Option {
	return func(o *options) {
		o.transport = append(o.transport, transport.WithExecutor(e))
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *transport.Metrics) Option {
	return func(o *options) {
		o.transport = append(o.transport, transport.WithMetrics(m))
	}
}

// WithClock sets the time source used to sign download URLs.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a Client from cfg.
func New(cfg *transport.Config, opts ...Option) (*Client, error) {
	o := options{
		logger: hclog.NewNullLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger.Named("peopledoc")
	tc, err := transport.New(cfg, append([]transport.Option{transport.WithLogger(log)}, o.transport...)...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		transport: tc,
		log:       log,
		now:       o.now,
	}
	c.Employees = &Employees{c: c}
	c.Documents = &Documents{c: c}
	c.Signatures = &Signatures{c: c}

	log.Debug("client created", "base_uri", tc.BaseURL())
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL()
}

// Transport returns the underlying transport client.
func (c *Client) Transport() *transport.Client {
	return c.transport
}

// Defer returns a completion bound to cb, or an awaitable one when cb is nil.
// Passing an existing *deferred.Deferred returns it unchanged.
func (c *Client) Defer(cb any) *deferred.Deferred[any] {
	return deferred.From[any](cb)
}

func (c *Client) send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return c.transport.Send(ctx, req)
}

// notFound reports whether a response accepted as 404 means "no resource".
func notFound(resp *transport.Response) bool {
	return resp.StatusCode == http.StatusNotFound || len(strings.TrimSpace(string(resp.Body))) == 0
}

func accept404() map[int]bool {
	return map[int]bool{http.StatusNotFound: true}
}

func decodeBody(resp *transport.Response) (map[string]any, error) {
	var body map[string]any
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s id is required", kind)
	}
	return nil
}
