package peopledoc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hashicorp-forge/peopledoc/pkg/schema"
	"github.com/hashicorp-forge/peopledoc/pkg/transport"
)

// Signature is a signing process bound to a Client.
type Signature struct {
	*schema.Model
	client *Client
}

// Send uploads the file to be signed and starts the process.
func (s *Signature) Send(ctx context.Context, upload *transport.Upload) (map[string]any, error) {
	if s.client == nil {
		return nil, ErrUnbound
	}
	return s.client.Signatures.Send(ctx, s, upload)
}

// Query filters Signatures.Find. Zero fields are omitted.
type Query struct {
	State      string
	Page       int
	ExternalID string
}

func (q Query) encode() string {
	v := url.Values{}
	if q.State != "" {
		v.Set("state", q.State)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.ExternalID != "" {
		v.Set("external_id", q.ExternalID)
	}
	return v.Encode()
}

// Page is one page of Signatures.Find results.
type Page struct {
	Signatures []*Signature
	Previous   bool
	Next       bool
}

// Signatures groups the signature endpoints.
type Signatures struct {
	c *Client
}

// New builds a Signature from raw input.
func (s *Signatures) New(raw any) (*Signature, error) {
	m, err := SignatureType.From(raw)
	if err != nil {
		return nil, err
	}
	return &Signature{Model: m, client: s.c}, nil
}

// Send creates a signing process for the uploaded file and returns the API
// response body.
func (s *Signatures) Send(ctx context.Context, sig *Signature, upload *transport.Upload) (map[string]any, error) {
	if upload == nil {
		return nil, fmt.Errorf("signature upload is required")
	}
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}

	resp, err := s.c.send(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "signatures/",
		JSON:   sig.Model,
		Upload: upload,
	})
	if err != nil {
		return nil, err
	}
	return decodeBody(resp)
}

// FindByID returns a signing process by its id (not a technical id), or nil
// when there is none.
func (s *Signatures) FindByID(ctx context.Context, id string) (*Signature, error) {
	if err := requireID("signature", id); err != nil {
		return nil, err
	}

	resp, err := s.c.send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   "signatures/" + url.PathEscape(id) + "/",
		Accept: accept404(),
	})
	if err != nil {
		return nil, err
	}
	if notFound(resp) {
		return nil, nil
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	return s.New(body)
}

// Find lists signing processes matching q.
func (s *Signatures) Find(ctx context.Context, q Query) (*Page, error) {
	path := "signatures/"
	if enc := q.encode(); enc != "" {
		path += "?" + enc
	}

	resp, err := s.c.send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   path,
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Data     []map[string]any `json:"data"`
		PrevPage any              `json:"prev_page"`
		NextPage any              `json:"next_page"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}

	page := &Page{
		Signatures: make([]*Signature, 0, len(body.Data)),
		Previous:   present(body.PrevPage),
		Next:       present(body.NextPage),
	}
	for _, raw := range body.Data {
		sig, err := s.New(raw)
		if err != nil {
			return nil, err
		}
		page.Signatures = append(page.Signatures, sig)
	}
	return page, nil
}

// WaitForStatus polls a signing process until its status is one of
// statuses. b controls the polling interval and gives up when it is
// exhausted; nil uses an exponential backoff. A missing signature or an
// error status stops polling immediately; network failures are retried.
func (s *Signatures) WaitForStatus(ctx context.Context, id string, statuses []string, b backoff.BackOff) (*Signature, error) {
	if len(statuses) == 0 {
		return nil, fmt.Errorf("at least one status is required")
	}
	if b == nil {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = 10 * time.Minute
		b = eb
	}

	want := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	log := s.c.log.With("signature_id", id)

	op := func() (*Signature, error) {
		sig, err := s.FindByID(ctx, id)
		if err != nil {
			var serr *transport.StatusError
			if errors.As(err, &serr) || ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if sig == nil {
			return nil, backoff.Permanent(fmt.Errorf("signature %s: %w", id, ErrNotFound))
		}

		status, _ := sig.Get("status").(string)
		if want[status] {
			return sig, nil
		}
		return nil, fmt.Errorf("signature %s has status %q", id, status)
	}

	notify := func(err error, next time.Duration) {
		log.Debug("waiting for signature status", "reason", err, "next", next)
	}

	return backoff.RetryNotifyWithData(op, backoff.WithContext(b, ctx), notify)
}

// present mirrors how the API marks page links: any non-empty value.
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	}
	return true
}
