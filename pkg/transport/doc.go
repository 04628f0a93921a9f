// Package transport is the HTTP envelope around the PeopleDoc REST API.
//
// # Overview
//
// Every request goes through Client.Send, which:
//
//   - resolves the request path against the configured base URL
//   - attaches the X-API-KEY header (callers cannot set or override it)
//   - encodes JSON bodies, or a multipart form with the JSON in field
//     "data" and the file in field "file" when an Upload is present
//   - follows 301/302 responses up to Config.MaxRedirects, then fails with
//     *RedirectLoopError
//   - returns the response for 2xx statuses and for statuses the request
//     accepts (Request.Accept), and a *StatusError otherwise
//
// Network failures are returned as *TransportError and are never retried.
//
// # Error Messages
//
// A *StatusError message is taken from the response body, in order:
//
//	{"data": {"message": "...", "code": 7}}
//	{"errors": [{"msg": "...", "code": 7}]}
//
// and falls back to "unknown response error (<status>)". A code is appended
// as " (code 7)".
//
// # Signed Downloads
//
// Document downloads are authenticated by SignedQuery, a sha256 hash of the
// API key, the resource id and a timestamp.
package transport
