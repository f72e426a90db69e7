package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockAPIServer is a test server with per-path JSON handlers, used to stand
// in for the external lookup APIs.
type MockAPIServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockAPIServer creates a mock API server that routes by URL path.
func NewMockAPIServer(t *testing.T) *MockAPIServer {
	t.Helper()
	m := &MockAPIServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockJSON registers a handler that answers path with the given payload.
func (m *MockAPIServer) MockJSON(path string, payload any) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // test mock response
	}
}

// MockStatus registers a handler that answers path with a bare status code.
func (m *MockAPIServer) MockStatus(path string, code int) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}
