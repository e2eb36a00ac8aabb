package fakesdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/engine"
)

// JSON-RPC error codes SurrealDB answers with.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeDatabase       = -32000
)

// state is the session of one WebSocket connection or HTTP request.
type state struct {
	mu   sync.Mutex
	sess *engine.Session
	vars map[string]any
	auth *Claims
}

func newState(ns, db string) *state {
	return &state{
		sess: engine.NewSession(ns, db),
		vars: map[string]any{},
	}
}

func rpcError(code int, format string, args ...any) *connection.RPCError {
	return &connection.RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// respond answers req with stub when set, otherwise by running it.
func (s *Server) respond(ctx context.Context, st *state, req *connection.RPCRequest, stub *StubResponse) (any, *connection.RPCError) {
	if stub != nil {
		return stub.Result, stub.Error
	}
	return s.call(ctx, st, req)
}

func (s *Server) call(ctx context.Context, st *state, req *connection.RPCRequest) (any, *connection.RPCError) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch req.Method {
	case "ping":
		return nil, nil
	case "version":
		return constants.VersionPrefix + engine.Version, nil
	case "use":
		if len(req.Params) != 2 {
			return nil, rpcError(codeInvalidParams, "use takes a namespace and a database")
		}
		if ns, ok := req.Params[0].(string); ok {
			st.sess.NS = ns
		}
		if db, ok := req.Params[1].(string); ok {
			st.sess.DB = db
		}
		return nil, nil
	case "signin":
		return s.signIn(st, req.Params)
	case "signup":
		return s.signUp(st, req.Params)
	case "authenticate":
		token, ok := param[string](req.Params, 0)
		if !ok {
			return nil, rpcError(codeInvalidParams, "authenticate takes a token")
		}
		claims, err := s.tokens.verify(token)
		if err != nil {
			return nil, rpcError(codeDatabase, "There was a problem with authentication: %v", err)
		}
		st.auth = claims
		return nil, nil
	case "invalidate":
		st.auth = nil
		return nil, nil
	case "let", "set":
		name, ok := param[string](req.Params, 0)
		if !ok || len(req.Params) != 2 {
			return nil, rpcError(codeInvalidParams, "%s takes a name and a value", req.Method)
		}
		st.vars[name] = req.Params[1]
		return nil, nil
	case "unset":
		name, ok := param[string](req.Params, 0)
		if !ok {
			return nil, rpcError(codeInvalidParams, "unset takes a name")
		}
		delete(st.vars, name)
		return nil, nil
	case "query":
		return s.query(ctx, st, req.Params)
	}
	return nil, rpcError(codeMethodNotFound, "Method not found: %s", req.Method)
}

func (s *Server) query(ctx context.Context, st *state, params []any) (any, *connection.RPCError) {
	text, ok := param[string](params, 0)
	if !ok {
		return nil, rpcError(codeInvalidParams, "query takes the statements as a string")
	}
	if s.requireAuth.Load() && st.auth == nil {
		return nil, rpcError(codeDatabase, "There was a problem with authentication: Not signed in")
	}

	vars := make(map[string]any, len(st.vars))
	for k, v := range st.vars {
		vars[k] = v
	}
	if overlay, ok := param[map[string]any](params, 1); ok {
		for k, v := range overlay {
			vars[k] = v
		}
	}

	responses, err := s.ds.Execute(ctx, text, st.sess, vars, false)
	if err != nil {
		return nil, rpcError(codeDatabase, "There was a problem with the database: %v", err)
	}

	results := make([]connection.QueryResult, len(responses))
	for i, res := range responses {
		results[i] = connection.QueryResult{Status: connection.StatusOK, Time: res.Time.String(), Result: res.Result}
		if res.Err != nil {
			results[i].Status = "ERR"
			results[i].Result = res.Err.Error()
		}
	}
	return results, nil
}

func (s *Server) signIn(st *state, params []any) (any, *connection.RPCError) {
	auth, ok := param[map[string]any](params, 0)
	if !ok {
		return nil, rpcError(codeInvalidParams, "signin takes a credentials object")
	}
	user, _ := auth["user"].(string)
	pass, _ := auth["pass"].(string)
	ac, _ := auth["AC"].(string)
	if user == "" {
		return nil, rpcError(codeInvalidParams, "signin requires a user")
	}

	claims := Claims{User: user}
	s.mu.RLock()
	if ac == "" {
		ok = s.users[user] == pass && pass != ""
	} else {
		claims.NS, _ = auth["NS"].(string)
		claims.DB, _ = auth["DB"].(string)
		claims.AC = ac
		stored, found := s.recordUsers[recordUserKey(claims)]
		ok = found && stored == pass
	}
	s.mu.RUnlock()
	if !ok {
		return nil, rpcError(codeDatabase, "There was a problem with authentication: No record was found")
	}
	return s.authorize(st, claims)
}

func (s *Server) signUp(st *state, params []any) (any, *connection.RPCError) {
	auth, ok := param[map[string]any](params, 0)
	if !ok {
		return nil, rpcError(codeInvalidParams, "signup takes a credentials object")
	}
	claims := Claims{}
	claims.User, _ = auth["user"].(string)
	claims.NS, _ = auth["NS"].(string)
	claims.DB, _ = auth["DB"].(string)
	claims.AC, _ = auth["AC"].(string)
	pass, _ := auth["pass"].(string)
	if claims.User == "" || claims.NS == "" || claims.DB == "" || claims.AC == "" {
		return nil, rpcError(codeInvalidParams, "signup requires NS, DB, AC and user")
	}

	key := recordUserKey(claims)
	s.mu.Lock()
	_, exists := s.recordUsers[key]
	if !exists {
		s.recordUsers[key] = pass
	}
	s.mu.Unlock()
	if exists {
		return nil, rpcError(codeDatabase, "There was a problem with authentication: user %s already exists", claims.User)
	}
	return s.authorize(st, claims)
}

func (s *Server) authorize(st *state, claims Claims) (any, *connection.RPCError) {
	token, err := s.tokens.issue(claims, s.tokens.ttl)
	if err != nil {
		return nil, rpcError(codeInternalError, "issuing token: %v", err)
	}
	st.auth = &claims
	if claims.NS != "" {
		st.sess.NS, st.sess.DB = claims.NS, claims.DB
	}
	return token, nil
}

func recordUserKey(c Claims) string {
	return c.NS + "/" + c.DB + "/" + c.AC + "/" + c.User
}

func param[T any](params []any, i int) (T, bool) {
	var zero T
	if i >= len(params) {
		return zero, false
	}
	v, ok := params[i].(T)
	return v, ok
}
