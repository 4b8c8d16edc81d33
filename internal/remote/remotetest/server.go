// Package remotetest runs an in-process stand-in for the business API.
package remotetest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"cementops/admin/internal/gateway"
	"cementops/admin/internal/remote"
)

const Token = "test-token"

const (
	RegionsJSON    = `[{"id":1,"name":"North"},{"id":2,"name":"South"}]`
	SubRegionsJSON = `[{"id":10,"name":"N1","region":{"id":1,"name":"North"}},{"id":11,"name":"N2","region":{"id":1}},{"id":20,"name":"S1","region":{"id":2}}]`
	DepotJSON      = `{"id":7,"name":"Depot Cikarang","region":{"id":1},"sub_region":{"id":11},"date_created":"2024-03-05T08:00:00Z"}`
	ProductJSON    = `{"id":3,"name":"OPC 50kg","description":null,"price":"65000","category":{"id":1,"name":"Cement"},"image_url":"","stock":120}`
)

type response struct {
	status int
	body   string
}

type Server struct {
	srv *httptest.Server

	mu     sync.Mutex
	routes map[string]response
	calls  map[string]int
	bodies map[string][]byte
	holds  map[string]chan struct{}
}

// New starts a server with no routes; unknown routes answer 404.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		routes: map[string]response{},
		calls:  map[string]int{},
		bodies: map[string][]byte{},
		holds:  map[string]chan struct{}{},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

// NewSeeded starts a server answering the regions, sub-regions, depot 7 and
// product 3 fixtures.
func NewSeeded(t testing.TB) *Server {
	s := New(t)
	s.Data(http.MethodGet, "/regions", RegionsJSON)
	s.Data(http.MethodGet, "/sub-regions", SubRegionsJSON)
	s.Data(http.MethodGet, "/depots/7", DepotJSON)
	s.Data(http.MethodGet, "/products/3", ProductJSON)
	return s
}

func (s *Server) URL() string { return s.srv.URL }

// API returns a client wired through the real gateway with a static token.
func (s *Server) API() *remote.API {
	return remote.New(s.Gateway(gateway.StaticToken(Token)))
}

func (s *Server) Gateway(creds gateway.CredentialProvider) *gateway.Client {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return gateway.New(s.srv.URL, creds, gateway.WithLogger(l))
}

// Data answers method+path with 200 and {"data": payload}.
func (s *Server) Data(method, path, payload string) {
	s.Respond(method, path, http.StatusOK, `{"data":`+payload+`}`)
}

func (s *Server) Respond(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+path] = response{status: status, body: body}
}

func (s *Server) Fail(method, path string, status int) {
	s.Respond(method, path, status, `{"message":"`+http.StatusText(status)+`"}`)
}

// Hold makes method+path block until the returned release func is called.
func (s *Server) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[method+" "+path] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// LastBody returns the last request body seen on method+path.
func (s *Server) LastBody(method, path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[method+" "+path]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.calls[key]++
	s.bodies[key] = body
	resp, ok := s.routes[key]
	hold := s.holds[key]
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"missing token"}`)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}
