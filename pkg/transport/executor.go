package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Executor performs a single HTTP exchange. It is the only component that
// touches the network; tests substitute their own.
type Executor interface {
	Execute(ctx context.Context, req *RawRequest) (*Response, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req *RawRequest) (*Response, error)

func (f ExecutorFunc) Execute(ctx context.Context, req *RawRequest) (*Response, error) {
	return f(ctx, req)
}

// RawRequest is one fully encoded HTTP exchange.
type RawRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// FollowRedirects lets the executor follow redirects itself. The client
	// always sets it to false and handles 301/302 on its own.
	FollowRedirects bool
}

// HTTPExecutor executes requests with a net/http client.
type HTTPExecutor struct {
	client   *http.Client
	noFollow *http.Client
}

// NewHTTPExecutor returns an executor backed by client. A nil client uses
// http.DefaultClient.
func NewHTTPExecutor(client *http.Client) *HTTPExecutor {
	if client == nil {
		client = http.DefaultClient
	}
	noFollow := *client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &HTTPExecutor{client: client, noFollow: &noFollow}
}

// Execute sends the request and reads the whole body.
func (e *HTTPExecutor) Execute(ctx context.Context, raw *RawRequest) (*Response, error) {
	var body io.Reader
	if raw.Body != nil {
		body = bytes.NewReader(raw.Body)
	}

	req, err := http.NewRequestWithContext(ctx, raw.Method, raw.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range raw.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := e.noFollow
	if raw.FollowRedirects {
		client = e.client
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        raw.URL,
	}, nil
}
