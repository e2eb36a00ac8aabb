// Package fakesdb is a stand-in SurrealDB server for tests.
//
// It runs the in-process engine behind the two transports SurrealDB
// serves: the RPC protocol over WebSocket at /rpc, and plain HTTP
// endpoints for /rpc, /health, /version, /export and /import. Sign in
// and sign up hand out JWTs the server verifies on later calls.
//
// Stub responses override what the engine would answer for matching
// requests, and failure configurations inject delays, corrupt frames or
// dropped connections into the WebSocket transport.
package fakesdb

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lxzan/gws"
	"github.com/rs/zerolog"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/engine"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// RequestMatcher selects the requests a stub answers.
type RequestMatcher struct {
	Method string
	// Matcher further filters on the request params. Nil matches every
	// request of Method.
	Matcher func(params []any) bool
}

func (m RequestMatcher) matches(req *connection.RPCRequest) bool {
	return m.Method == req.Method && (m.Matcher == nil || m.Matcher(req.Params))
}

// StubResponse answers matching requests with Result or Error instead of
// running them.
type StubResponse struct {
	Matcher  RequestMatcher
	Result   any
	Error    *connection.RPCError
	Failures []FailureConfig
}

// MatchMethod matches every request of method.
func MatchMethod(method string) RequestMatcher {
	return RequestMatcher{Method: method}
}

// MatchMethodWithParams matches requests of method whose params satisfy matcher.
func MatchMethodWithParams(method string, matcher func(params []any) bool) RequestMatcher {
	return RequestMatcher{Method: method, Matcher: matcher}
}

// SimpleStubResponse answers every request of method with result.
func SimpleStubResponse(method string, result any) StubResponse {
	return StubResponse{Matcher: MatchMethod(method), Result: result}
}

// ErrorStubResponse answers every request of method with an RPC error.
func ErrorStubResponse(method string, code int, message string) StubResponse {
	return StubResponse{
		Matcher: MatchMethod(method),
		Error:   &connection.RPCError{Code: code, Message: message},
	}
}

// Server is a fake SurrealDB server.
type Server struct {
	// Logger receives transport errors.
	Logger logger.Logger

	requireAuth atomic.Bool

	addr       string
	listener   net.Listener
	httpServer *http.Server
	upgrader   *gws.Upgrader

	ds     *engine.Datastore
	codec  models.CborCodec
	tokens *tokenIssuer

	mu          sync.RWMutex
	stubs       []StubResponse
	failures    []FailureConfig
	users       map[string]string
	recordUsers map[string]string
	conns       map[*gws.Conn]*state
}

// NewServer creates a server that will listen on addr once started.
// Use "127.0.0.1:0" to pick a free port.
func NewServer(addr string) *Server {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}

	s := &Server{
		Logger:      logger.NewZerolog(zerolog.New(os.Stderr).Level(zerolog.WarnLevel)),
		addr:        addr,
		ds:          engine.NewMemory(),
		tokens:      &tokenIssuer{secret: secret, ttl: time.Hour},
		users:       map[string]string{},
		recordUsers: map[string]string{},
		conns:       map[*gws.Conn]*state{},
	}
	s.upgrader = gws.NewUpgrader(&wsHandler{server: s}, &gws.ServerOption{})
	return s
}

// RequireAuth makes the server reject queries from connections that
// have not signed in, signed up or authenticated.
func (s *Server) RequireAuth(on bool) {
	s.requireAuth.Store(on)
}

// AddUser registers root credentials accepted by signin.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// AddStubResponse adds a stub. Stubs are tried in the order they were added.
func (s *Server) AddStubResponse(stub StubResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs = append(s.stubs, stub)
}

// SetGlobalFailures sets the failures checked for every WebSocket request,
// before the failures of a matched stub.
func (s *Server) SetGlobalFailures(failures []FailureConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = failures
}

// GenerateToken issues a token for username that expires after ttl. A
// negative ttl gives an already expired token.
func (s *Server) GenerateToken(username string, ttl time.Duration) (string, error) {
	return s.tokens.issue(Claims{User: username}, ttl)
}

// Datastore returns the engine behind the server.
func (s *Server) Datastore() *engine.Datastore {
	return s.ds
}

// Start listens on the address of the server and serves in the background.
func (s *Server) Start() error {
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("fakesdb: serve failed", "error", err)
		}
	}()
	return nil
}

// Stop closes the listener, every open WebSocket and the datastore.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Close()

	s.mu.Lock()
	for socket := range s.conns {
		_ = socket.NetConn().Close()
	}
	s.mu.Unlock()

	return errors.Join(err, s.ds.Close())
}

// Address returns the address the server listens on.
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the endpoint of the server for scheme, such as "ws" or "http".
func (s *Server) URL(scheme string) string {
	return fmt.Sprintf("%s://%s", scheme, s.Address())
}

func (s *Server) stub(req *connection.RPCRequest) *StubResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.stubs {
		if s.stubs[i].Matcher.matches(req) {
			stub := s.stubs[i]
			return &stub
		}
	}
	return nil
}

func (s *Server) globalFailures() []FailureConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures
}
