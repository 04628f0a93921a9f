package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
)

const (
	// DefaultUploadName is the multipart filename used when an Upload has
	// none.
	DefaultUploadName = "document.pdf"

	// DefaultUploadContentType is the multipart content type used when an
	// Upload has none.
	DefaultUploadContentType = "application/pdf"

	headerAPIKey = "X-API-KEY"
	contentJSON  = "application/json"
)

// ErrBodyConflict is returned when a request carries both a raw body and a
// JSON payload or upload.
var ErrBodyConflict = errors.New("request cannot combine a raw body with a JSON payload or upload")

// Request describes one logical API call. Path is resolved against the
// client's base URL.
type Request struct {
	Method string
	Path   string
	Header http.Header

	// JSON is encoded as the request body. When Upload is also set it is
	// encoded into the multipart "data" field instead.
	JSON any

	// Upload selects a multipart/form-data body with the file in field
	// "file".
	Upload *Upload

	// Body is sent verbatim. It cannot be combined with JSON or Upload.
	Body []byte

	// Raw marks a binary download: no JSON headers are set and the response
	// body is returned untransformed.
	Raw bool

	// Accept lists non-2xx statuses that count as success for this request,
	// e.g. {404: true} for lookups.
	Accept map[int]bool
}

// Upload is a file sent as multipart form data.
type Upload struct {
	// Name is the filename. Default: document.pdf
	Name string

	// ContentType of the file part. Default: application/pdf
	ContentType string

	Reader io.Reader
}

// UploadFile opens path on fs as an Upload. The whole file is read
// immediately.
func UploadFile(fs afero.Fs, path string) (*Upload, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error reading upload %q: %w", path, err)
	}
	return &Upload{
		Name:   filepath.Base(path),
		Reader: bytes.NewReader(data),
	}, nil
}

func (r *Request) accepts(status int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	return r.Accept[status]
}

// encode returns the request body and the headers it implies.
func (r *Request) encode() ([]byte, http.Header, error) {
	h := http.Header{}

	if r.Body != nil && (r.JSON != nil || r.Upload != nil) {
		return nil, nil, ErrBodyConflict
	}

	switch {
	case r.Upload != nil:
		body, contentType, err := r.encodeMultipart()
		if err != nil {
			return nil, nil, err
		}
		h.Set("Content-Type", contentType)
		if !r.Raw {
			h.Set("Accept", contentJSON)
		}
		return body, h, nil

	case r.JSON != nil:
		body, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		h.Set("Content-Type", contentJSON)
		if !r.Raw {
			h.Set("Accept", contentJSON)
		}
		return body, h, nil

	case r.Raw:
		return r.Body, h, nil

	default:
		h.Set("Accept", contentJSON)
		return r.Body, h, nil
	}
}

func (r *Request) encodeMultipart() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if r.JSON != nil {
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		if err := w.WriteField("data", string(data)); err != nil {
			return nil, "", err
		}
	}

	name := r.Upload.Name
	if name == "" {
		name = DefaultUploadName
	}
	contentType := r.Upload.ContentType
	if contentType == "" {
		contentType = DefaultUploadContentType
	}

	part := textproto.MIMEHeader{}
	part.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	part.Set("Content-Type", contentType)
	pw, err := w.CreatePart(part)
	if err != nil {
		return nil, "", err
	}
	if r.Upload.Reader != nil {
		if _, err := io.Copy(pw, r.Upload.Reader); err != nil {
			return nil, "", fmt.Errorf("error reading upload: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// Response is a completed HTTP exchange with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// URL is the final URL after redirects.
	URL string
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
