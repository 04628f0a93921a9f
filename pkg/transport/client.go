package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/peopledoc/pkg/deferred"
)

// Client sends requests to the PeopleDoc API. It attaches authentication,
// follows redirects and turns error responses into typed errors. A Client
// is safe for concurrent use.
type Client struct {
	baseURL      *url.URL
	apiKey       string
	maxRedirects int

	exec    Executor
	log     hclog.Logger
	metrics *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithExecutor replaces the HTTP executor built from the config.
func WithExecutor(e Executor) Option {
	return func(c *Client) {
		c.exec = e
	}
}

// WithLogger sets the logger. The client logs under the "transport" name.
func WithLogger(l hclog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithMetrics records request metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client from a copy of cfg completed with defaults and
// validated. cfg itself is not modified.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing transport config")
	}
	local := *cfg
	cfg = &local
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base_uri: %w", err)
	}

	c := &Client{
		baseURL:      base,
		apiKey:       cfg.APIKey,
		maxRedirects: *cfg.MaxRedirects,
		log:          hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("transport")

	if c.exec == nil {
		c.exec = NewHTTPExecutor(cfg.NewHTTPClient())
	}

	return c, nil
}

// BaseURL returns the API root, always ending in a slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// APIKey returns the configured API key.
func (c *Client) APIKey() string {
	return c.apiKey
}

// SendAsync starts the request in a new goroutine. The outcome is delivered
// to cb, if not nil, and through the returned Deferred.
func (c *Client) SendAsync(ctx context.Context, req *Request, cb deferred.Callback[*Response]) *deferred.Deferred[*Response] {
	return deferred.Go[*Response](cb, func() (*Response, error) {
		return c.Send(ctx, req)
	})
}

// Send performs the request, following up to the configured number of
// redirects. A response is returned for 2xx statuses and for statuses listed
// in req.Accept; any other status yields a *StatusError.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	target, err := c.resolve(req.Path)
	if err != nil {
		return nil, err
	}

	body, header, err := req.encode()
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	// The key is owned by the client; callers cannot override it.
	header.Set(headerAPIKey, c.apiKey)

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	log := c.log.With("request_id", uuid.NewString(), "method", method)
	start := time.Now()

	budget := c.maxRedirects
	for {
		log.Debug("sending request", "url", target)

		resp, err := c.exec.Execute(ctx, &RawRequest{
			Method: method,
			URL:    target,
			Header: header.Clone(),
			Body:   body,
		})
		if err != nil {
			log.Error("request failed", "url", target, "error", err)
			c.metrics.observe(method, 0, time.Since(start))
			return nil, &TransportError{Method: method, URL: target, Err: err}
		}
		resp.URL = target

		location := resp.Header.Get("Location")
		if isRedirect(resp.StatusCode) && location != "" {
			if budget <= 0 {
				log.Warn("redirect budget exhausted", "url", target, "max_redirects", c.maxRedirects)
				c.metrics.observe(method, resp.StatusCode, time.Since(start))
				return nil, &RedirectLoopError{URL: target, MaxRedirects: c.maxRedirects}
			}
			next, err := resolveLocation(target, location)
			if err != nil {
				return nil, &TransportError{Method: method, URL: target, Err: err}
			}
			log.Trace("following redirect", "status", resp.StatusCode, "from", target, "to", next)
			c.metrics.redirect()
			budget--
			target = next
			continue
		}

		c.metrics.observe(method, resp.StatusCode, time.Since(start))

		if !req.accepts(resp.StatusCode) {
			serr := newStatusError(resp)
			log.Warn("request returned an error status",
				"url", target, "status", resp.StatusCode, "error", serr.Error())
			return nil, serr
		}

		log.Debug("request completed", "url", target, "status", resp.StatusCode,
			"duration", time.Since(start))
		return resp, nil
	}
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func isRedirect(status int) bool {
	return status == http.StatusMovedPermanently || status == http.StatusFound
}

func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location %q: %w", location, err)
	}
	return base.ResolveReference(ref).String(), nil
}
