package test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// APIServer is a fake REST API that serves canned documents by path and
// counts requests per path.
type APIServer struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
	calls  map[string]*atomic.Int32
	total  atomic.Int32
}

// NewAPIServer starts an APIServer that is closed when the test ends.
func NewAPIServer(t testing.TB) *APIServer {
	s := &APIServer{
		bodies: make(map[string]string),
		status: make(map[string]int),
		calls:  make(map[string]*atomic.Int32),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle sets the document returned for path.
func (s *APIServer) Handle(path, body string) {
	s.HandleStatus(path, http.StatusOK, body)
}

// HandleStatus sets the status and document returned for path.
func (s *APIServer) HandleStatus(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[path] = body
	s.status[path] = status
}

// Calls returns the number of requests made for path.
func (s *APIServer) Calls(path string) int {
	s.mu.Lock()
	c, ok := s.calls[path]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return int(c.Load())
}

// TotalCalls returns the number of requests made for any path.
func (s *APIServer) TotalCalls() int {
	return int(s.total.Load())
}

func (s *APIServer) serve(w http.ResponseWriter, r *http.Request) {
	s.total.Add(1)
	s.mu.Lock()
	c, ok := s.calls[r.URL.Path]
	if !ok {
		c = new(atomic.Int32)
		s.calls[r.URL.Path] = c
	}
	body, found := s.bodies[r.URL.Path]
	status := s.status[r.URL.Path]
	s.mu.Unlock()
	c.Add(1)

	w.Header().Set("Content-Type", "application/xml")
	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<response response_code="NOT_FOUND"><action>` + r.URL.Path + `</action><message>No data found</message></response>`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
