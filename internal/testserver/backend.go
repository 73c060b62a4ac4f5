package testserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Backend is an in-process stand-in for the tasking backend API.
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	records     map[string]string
	assignees   string
	categories  string
	assignments []json.RawMessage
	priorities  []json.RawMessage
	failWrites  int
	tokens      []string
}

// NewBackend starts a backend serving empty views until SetRecords is called.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		records:    map[string]string{},
		assignees:  `[]`,
		categories: `[]`,
	}

	r := chi.NewRouter()
	r.Get("/views/{view}/records", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		payload, ok := b.records[chi.URLParam(req, "view")]
		b.tokens = append(b.tokens, req.Header.Get("Authorization"))
		b.mu.Unlock()
		if !ok {
			payload = `{}`
		}
		writeBody(w, http.StatusOK, payload)
	})
	r.Get("/assignees", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeBody(w, http.StatusOK, b.assignees)
	})
	r.Get("/categories", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeBody(w, http.StatusOK, b.categories)
	})
	r.Post("/tasks/assign", b.capture(&b.assignments))
	r.Post("/images/priority", b.capture(&b.priorities))

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) capture(into *[]json.RawMessage) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			writeBody(w, http.StatusBadRequest, `{"error":"unreadable body"}`)
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failWrites > 0 {
			b.failWrites--
			writeBody(w, http.StatusBadGateway, `{"error":"upstream unavailable"}`)
			return
		}
		*into = append(*into, json.RawMessage(body))
		writeBody(w, http.StatusOK, `{"ok":true}`)
	}
}

// URL returns the base URL of the backend.
func (b *Backend) URL() string {
	return b.Server.URL
}

// SetRecords sets the record store served for view.
func (b *Backend) SetRecords(view, payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[view] = payload
}

// SetAssignees sets the assignee option list payload.
func (b *Backend) SetAssignees(payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assignees = payload
}

// FailNextWrites makes the next n submission calls answer 502.
func (b *Backend) FailNextWrites(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWrites = n
}

// Assignments returns the assign-tasks bodies received so far.
func (b *Backend) Assignments() []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]json.RawMessage(nil), b.assignments...)
}

// Priorities returns the update-priority bodies received so far.
func (b *Backend) Priorities() []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]json.RawMessage(nil), b.priorities...)
}

// AuthHeaders returns the Authorization headers seen on record fetches.
func (b *Backend) AuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
