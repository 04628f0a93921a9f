package transport

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	httptrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/net/http"
)

// DefaultMaxRedirects is the redirect budget used when none is configured.
const DefaultMaxRedirects = 10

// Config contains configuration for a PeopleDoc API client. The CLI fills
// it from the "peopledoc" block of its HCL file (see internal/config).
type Config struct {
	// BaseURL is the API root, e.g. "https://api.people-doc.com/api/v1/".
	// A trailing slash is added if missing.
	BaseURL string `json:"baseUri"`

	// APIKey is sent in the X-API-KEY header of every request and used to
	// sign download URLs.
	APIKey string `json:"-"`

	// Timeout for a single HTTP exchange. Enforced by the HTTP client.
	// Default: 30 seconds
	Timeout time.Duration `json:"timeout,omitempty"`

	// MaxRedirects is the number of 301/302 responses followed per request.
	// Zero follows none. Default (nil): 10
	MaxRedirects *int `json:"maxRedirects,omitempty"`

	// TLSVerify controls TLS certificate verification
	// Set to false only for development/testing with self-signed certs
	TLSVerify *bool `json:"tlsVerify,omitempty"`

	// Trace wraps the HTTP client with Datadog APM tracing.
	Trace bool `json:"trace,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	tlsVerify := true
	maxRedirects := DefaultMaxRedirects
	return &Config{
		TLSVerify:    &tlsVerify,
		Timeout:      30 * time.Second,
		MaxRedirects: &maxRedirects,
	}
}

// ApplyDefaults fills unset fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.TLSVerify == nil {
		c.TLSVerify = defaults.TLSVerify
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.MaxRedirects == nil {
		c.MaxRedirects = defaults.MaxRedirects
	}
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_uri is required")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_uri: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_uri must use http or https scheme, got: %s", parsedURL.Scheme)
	}

	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got: %v", c.Timeout)
	}

	if c.MaxRedirects != nil && *c.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects must be non-negative, got: %d", *c.MaxRedirects)
	}

	return nil
}

// NewHTTPClient creates a configured HTTP client. Redirects are never
// followed by the client itself; the Executor decides per request.
func (c *Config) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	// Configure TLS verification
	if c.TLSVerify != nil && !*c.TLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	client := &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}

	if c.Trace {
		client = httptrace.WrapClient(client,
			httptrace.RTWithResourceNamer(func(req *http.Request) string {
				return req.Method + " " + req.URL.Path
			}),
		)
	}

	return client
}
