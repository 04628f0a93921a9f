// Package peopledoctest provides an in-memory PeopleDoc API for tests.
package peopledoctest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// APIPrefix is the path the fake API is served under.
const APIPrefix = "/api/v1"

// StoredDocument is a document received by the server.
type StoredDocument struct {
	Meta        map[string]any
	Filename    string
	ContentType string
	Content     []byte
}

// Server is a fake PeopleDoc API. The zero value is not usable; call
// NewServer.
type Server struct {
	*httptest.Server

	// APIKey is the only key accepted in X-API-KEY.
	APIKey string

	// PageSize is the number of signatures per Find page. Default: 20
	PageSize int

	mu            sync.Mutex
	seq           int
	employees     map[string]map[string]any
	registrations map[string][]map[string]any
	gone          map[string]bool
	documents     map[string]*StoredDocument
	signatures    map[string]map[string]any
	signatureIDs  []string
	requests      []string
}

// NewServer starts a fake API accepting apiKey. Callers must Close it.
func NewServer(apiKey string) *Server {
	s := &Server{
		APIKey:        apiKey,
		PageSize:      20,
		employees:     map[string]map[string]any{},
		registrations: map[string][]map[string]any{},
		gone:          map[string]bool{},
		documents:     map[string]*StoredDocument{},
		signatures:    map[string]map[string]any{},
	}
	s.Server = httptest.NewServer(s.Router())
	return s
}

// BaseURL returns the API root to configure clients with.
func (s *Server) BaseURL() string {
	return s.URL + APIPrefix + "/"
}

// LegacyBaseURL returns a root whose every request is redirected to
// BaseURL with a 301.
func (s *Server) LegacyBaseURL() string {
	return s.URL + "/legacy/"
}

// Router returns the API routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Handle("/legacy/*", http.HandlerFunc(s.legacyRedirect))

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/employees/", s.saveEmployee)
		r.Get("/employees/{id}/", s.getEmployee)
		r.Post("/employees/{id}/registrations/", s.register)
		r.Delete("/employees/{id}/registrations/{org}/{number}", s.unregister)
		r.Put("/employees/{id}/gone/", s.transition(true))
		r.Put("/employees/{id}/back/", s.transition(false))

		r.Post("/enterprise/documents/", s.saveDocument)
		r.Get("/enterprise/documents/{id}/download/", s.download)

		r.Post("/signatures/", s.createSignature)
		r.Get("/signatures/", s.listSignatures)
		r.Get("/signatures/{id}/", s.getSignature)
	})

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != s.APIKey {
			writeErrors(w, http.StatusUnauthorized, "invalid API key", "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) legacyRedirect(w http.ResponseWriter, r *http.Request) {
	target := APIPrefix + "/" + chi.URLParam(r, "*")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusMovedPermanently)
}

func (s *Server) saveEmployee(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeData(w, http.StatusBadRequest, "invalid JSON body", 400)
		return
	}
	id, _ := body["technical_id"].(string)
	if id == "" {
		writeErrors(w, http.StatusBadRequest, "technical_id is required", "missing_field")
		return
	}

	s.mu.Lock()
	status := http.StatusCreated
	if _, ok := s.employees[id]; ok {
		status = http.StatusOK
	}
	s.employees[id] = body
	s.mu.Unlock()

	writeJSON(w, status, body)
}

func (s *Server) getEmployee(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	emp, ok := s.employees[chi.URLParam(r, "id")]
	emp = clone(emp)
	s.mu.Unlock()

	if !ok {
		writeData(w, http.StatusNotFound, "employee not found", 404)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeData(w, http.StatusBadRequest, "invalid JSON body", 400)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		writeData(w, http.StatusNotFound, "employee not found", 404)
		return
	}
	s.registrations[id] = append(s.registrations[id], body)
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) unregister(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	org := chi.URLParam(r, "org")
	number := chi.URLParam(r, "number")

	s.mu.Lock()
	defer s.mu.Unlock()

	refs := s.registrations[id]
	for i, ref := range refs {
		if ref["organization_code"] == org && ref["registration_number"] == number {
			s.registrations[id] = append(refs[:i:i], refs[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeErrors(w, http.StatusNotFound, "registration not found", "not_found")
}

func (s *Server) transition(leaving bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.employees[id]; !ok {
			writeData(w, http.StatusNotFound, "employee not found", 404)
			return
		}
		s.gone[id] = leaving
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) saveDocument(w http.ResponseWriter, r *http.Request) {
	meta, file, ok := readUpload(w, r)
	if !ok {
		return
	}
	if meta["employee_technical_id"] == nil || meta["title"] == nil {
		writeErrors(w, http.StatusBadRequest, "title and employee_technical_id are required", "missing_field")
		return
	}

	s.mu.Lock()
	s.seq++
	id := "doc-" + strconv.Itoa(s.seq)
	file.Meta = meta
	s.documents[id] = file
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	if q.Get("hash_method") != "sha256" || q.Get("timestamp") == "" {
		writeErrors(w, http.StatusBadRequest, "missing signature", "bad_signature")
		return
	}
	sum := sha256.Sum256([]byte(s.APIKey + id + q.Get("timestamp")))
	if q.Get("hash") != hex.EncodeToString(sum[:]) {
		writeErrors(w, http.StatusForbidden, "invalid signature", "bad_signature")
		return
	}

	s.mu.Lock()
	doc, ok := s.documents[id]
	s.mu.Unlock()
	if !ok {
		writeData(w, http.StatusNotFound, "document not found", 404)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Content)
}

func (s *Server) createSignature(w http.ResponseWriter, r *http.Request) {
	meta, _, ok := readUpload(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	s.seq++
	id := "sig-" + strconv.Itoa(s.seq)
	meta["id"] = id
	meta["status"] = "pending"
	s.signatures[id] = meta
	s.signatureIDs = append(s.signatureIDs, id)
	meta = clone(meta)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, meta)
}

func (s *Server) getSignature(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sig, ok := s.signatures[chi.URLParam(r, "id")]
	sig = clone(sig)
	s.mu.Unlock()

	if !ok {
		writeData(w, http.StatusNotFound, "signature not found", 404)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (s *Server) listSignatures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeErrors(w, http.StatusBadRequest, "invalid page", "bad_request")
			return
		}
		page = n
	}

	s.mu.Lock()
	var matched []map[string]any
	for _, id := range s.signatureIDs {
		sig := s.signatures[id]
		if st := q.Get("state"); st != "" && sig["status"] != st {
			continue
		}
		if ext := q.Get("external_id"); ext != "" && sig["external_id"] != ext {
			continue
		}
		matched = append(matched, clone(sig))
	}
	size := s.PageSize
	s.mu.Unlock()

	start := (page - 1) * size
	end := start + size
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	body := map[string]any{"data": matched[start:end]}
	if page > 1 {
		body["prev_page"] = page - 1
	}
	if end < len(matched) {
		body["next_page"] = page + 1
	}
	writeJSON(w, http.StatusOK, body)
}

// SetSignatureStatus changes the status of a stored signature.
func (s *Server) SetSignatureStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig, ok := s.signatures[id]; ok {
		sig["status"] = status
	}
}

// AddSignature stores a signature as if it had been created.
func (s *Server) AddSignature(sig map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := "sig-" + strconv.Itoa(s.seq)
	sig["id"] = id
	if _, ok := sig["status"]; !ok {
		sig["status"] = "pending"
	}
	s.signatures[id] = sig
	s.signatureIDs = append(s.signatureIDs, id)
	return id
}

// AddEmployee stores an employee as if it had been saved.
func (s *Server) AddEmployee(emp map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := emp["technical_id"].(string)
	s.employees[id] = emp
}

// AddDocument stores a downloadable document under id.
func (s *Server) AddDocument(id string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[id] = &StoredDocument{
		Meta:        map[string]any{},
		Filename:    "document.pdf",
		ContentType: "application/pdf",
		Content:     content,
	}
}

// Employee returns a stored employee.
func (s *Server) Employee(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emp, ok := s.employees[id]
	return emp, ok
}

// Registrations returns the registration references of an employee.
func (s *Server) Registrations(id string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.registrations[id]...)
}

// Gone reports whether the employee was marked as having left.
func (s *Server) Gone(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gone[id]
}

// Documents returns the ids of stored documents, sorted.
func (s *Server) Documents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.documents))
	for id := range s.documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Document returns a stored document.
func (s *Server) Document(id string) (*StoredDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	return doc, ok
}

// Requests returns "METHOD /path" for every request received, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func readUpload(w http.ResponseWriter, r *http.Request) (map[string]any, *StoredDocument, bool) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeErrors(w, http.StatusBadRequest, "multipart/form-data expected", "bad_request")
		return nil, nil, false
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErrors(w, http.StatusBadRequest, err.Error(), "bad_request")
		return nil, nil, false
	}

	meta := map[string]any{}
	if data := r.FormValue("data"); data != "" {
		if err := json.Unmarshal([]byte(data), &meta); err != nil {
			writeErrors(w, http.StatusBadRequest, "invalid data field", "bad_request")
			return nil, nil, false
		}
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeErrors(w, http.StatusBadRequest, "file is required", "missing_field")
		return nil, nil, false
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, err.Error(), "bad_request")
		return nil, nil, false
	}

	return meta, &StoredDocument{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, true
}

// clone copies the top level of a stored record so it can be encoded
// outside the lock.
func clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeData writes the {"data": {"message", "code"}} error shape.
func writeData(w http.ResponseWriter, status int, message string, code int) {
	writeJSON(w, status, map[string]any{
		"data": map[string]any{"message": message, "code": code},
	})
}

// writeErrors writes the {"errors": [{"msg", "code"}]} error shape.
func writeErrors(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]any{
		"errors": []map[string]any{{"msg": message, "code": code}},
	})
}

func (s *Server) String() string {
	return fmt.Sprintf("peopledoctest.Server(%s)", s.URL)
}
