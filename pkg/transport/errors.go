package transport

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// TransportError is returned when no response was received at all. It is
// never retried.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is returned for a non-2xx response that the request did not
// accept. Error returns the message extracted from the body, with the API
// error code appended when present.
type StatusError struct {
	StatusCode int
	Message    string
	Code       string
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
	}
	return e.Message
}

// RedirectLoopError is returned when a redirect is received after the
// budget is spent.
type RedirectLoopError struct {
	URL          string
	MaxRedirects int
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect loop detected at %s (max redirects: %d)", e.URL, e.MaxRedirects)
}

// errorBody keeps both candidate fields raw so a data or errors value of an
// unexpected shape does not hide the other.
type errorBody struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type errorDetail struct {
	Msg     json.RawMessage `json:"msg"`
	Message json.RawMessage `json:"message"`
	Code    json.RawMessage `json:"code"`
}

func newStatusError(resp *Response) *StatusError {
	e := &StatusError{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}

	var body errorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if d, ok := decodeDetail(body.Data); ok {
			if msg := scalar(d.Message); msg != "" {
				e.Message, e.Code = msg, scalar(d.Code)
				return e
			}
		}
		if first, ok := firstError(body.Errors); ok {
			msg := scalar(first.Msg)
			if msg == "" {
				msg = scalar(first.Message)
			}
			if msg != "" {
				e.Message, e.Code = msg, scalar(first.Code)
				return e
			}
		}
	}

	e.Message = fmt.Sprintf("unknown response error (%d)", resp.StatusCode)
	return e
}

// decodeDetail reads raw as an object. Other JSON values are ignored.
func decodeDetail(raw json.RawMessage) (errorDetail, bool) {
	var d errorDetail
	s := bytes.TrimSpace(raw)
	if len(s) == 0 || s[0] != '{' {
		return d, false
	}
	if err := json.Unmarshal(s, &d); err != nil {
		return d, false
	}
	return d, true
}

// firstError returns the first element of a JSON array of objects.
func firstError(raw json.RawMessage) (errorDetail, bool) {
	s := bytes.TrimSpace(raw)
	if len(s) == 0 || s[0] != '[' {
		return errorDetail{}, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(s, &items); err != nil || len(items) == 0 {
		return errorDetail{}, false
	}
	return decodeDetail(items[0])
}

// scalar renders a JSON string or number as text. Anything else is empty.
func scalar(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if s[0] == '"' {
		var out string
		if err := json.Unmarshal(raw, &out); err != nil {
			return ""
		}
		return out
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	return ""
}
