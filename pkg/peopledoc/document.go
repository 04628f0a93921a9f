package peopledoc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp-forge/peopledoc/pkg/schema"
	"github.com/hashicorp-forge/peopledoc/pkg/transport"
)

// Document is an employee document bound to a Client.
type Document struct {
	*schema.Model
	client *Client
}

// Save uploads the document with its metadata.
func (d *Document) Save(ctx context.Context, upload *transport.Upload) (*transport.Response, error) {
	if d.client == nil {
		return nil, ErrUnbound
	}
	return d.client.Documents.Save(ctx, d, upload)
}

// Documents groups the document endpoints.
type Documents struct {
	c *Client
}

// New builds a Document from raw input.
func (s *Documents) New(raw any) (*Document, error) {
	m, err := DocumentType.From(raw)
	if err != nil {
		return nil, err
	}
	return &Document{Model: m, client: s.c}, nil
}

// Save uploads a document file to an employee's vault. The metadata is sent
// as the multipart "data" field.
func (s *Documents) Save(ctx context.Context, doc *Document, upload *transport.Upload) (*transport.Response, error) {
	if upload == nil {
		return nil, fmt.Errorf("document upload is required")
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}

	resp, err := s.c.send(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "enterprise/documents/",
		JSON:   doc.Model,
		Upload: upload,
	})
	if err != nil {
		return nil, err
	}
	s.c.log.Debug("document uploaded", "employee_technical_id", doc.Get("employee_technical_id"))
	return resp, nil
}

// Download fetches a document's file through a signed URL. The body is
// returned untransformed. It returns nil when the document does not exist.
func (s *Documents) Download(ctx context.Context, id string) (*transport.Response, error) {
	if err := requireID("document", id); err != nil {
		return nil, err
	}

	query := transport.SignedQuery(s.c.transport.APIKey(), id, s.c.now())
	resp, err := s.c.send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   "enterprise/documents/" + url.PathEscape(id) + "/download/?" + query,
		Raw:    true,
		Accept: accept404(),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	return resp, nil
}
