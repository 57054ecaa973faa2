// Package testutil provides a fake cloud controller for client tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockServer provides a test HTTP server for API mocking.
type MockServer struct {
	server   *httptest.Server
	handlers map[string]http.HandlerFunc
	requests []*http.Request
	mu       sync.RWMutex
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		handlers: make(map[string]http.HandlerFunc),
	}

	ms.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		ms.mu.Lock()
		ms.requests = append(ms.requests, r.Clone(r.Context()))
		handler, ok := ms.handlers[key]
		ms.mu.Unlock()

		if ok {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return ms
}

// URL returns the server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close shuts down the server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// Handle registers a custom handler for a method+path.
func (ms *MockServer) Handle(method, path string, handler http.HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[method+" "+path] = handler
}

// HandleJSON registers a handler that returns JSON with the given status.
func (ms *MockServer) HandleJSON(method, path string, status int, response interface{}) {
	ms.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	})
}

// HandleError registers a handler that returns a controller error body.
func (ms *MockServer) HandleError(method, path string, status, code int, description string) {
	ms.HandleJSON(method, path, status, map[string]interface{}{
		"code":        code,
		"description": description,
	})
}

// HandleInfo serves /info for a target of the given protocol version.
// authEndpoint is only advertised when non-empty.
func (ms *MockServer) HandleInfo(version int, authEndpoint string) {
	info := map[string]interface{}{
		"name":        "vcap",
		"build":       "2222",
		"support":     "http://support.example.com",
		"version":     version,
		"description": "Test Cloud",
	}
	if authEndpoint != "" {
		info["authorization_endpoint"] = authEndpoint
	}
	ms.HandleJSON(http.MethodGet, "/info", http.StatusOK, info)
}

// HandleUnavailable fails the first n requests with 503, then serves response.
func (ms *MockServer) HandleUnavailable(method, path string, n int, response interface{}) {
	var mu sync.Mutex
	remaining := n
	ms.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		fail := remaining > 0
		if fail {
			remaining--
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	})
}

// Requests returns the requests received so far, in arrival order.
func (ms *MockServer) Requests() []*http.Request {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]*http.Request, len(ms.requests))
	copy(out, ms.requests)
	return out
}

// Reset clears all registered handlers and recorded requests.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers = make(map[string]http.HandlerFunc)
	ms.requests = nil
}
