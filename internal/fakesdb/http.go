package fakesdb

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/engine"
)

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/rpc", s.handleUpgrade).Methods(http.MethodGet).HeadersRegexp("Upgrade", "(?i)websocket")
	r.HandleFunc("/rpc", s.handleRPC).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	return r
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r)
	if err != nil {
		s.Logger.Warn("fakesdb: upgrade failed", "error", err)
		return
	}
	go socket.ReadLoop()
}

// httpError is the JSON body of failed non-RPC requests.
type httpError struct {
	Code        int    `json:"code"`
	Details     string `json:"details"`
	Description string `json:"description"`
	Information string `json:"information"`
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, details, information string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(httpError{
		Code:        status,
		Details:     details,
		Description: http.StatusText(status),
		Information: information,
	})
}

// requestState builds the session of one HTTP request from its headers.
// It reports false after answering the request itself.
func (s *Server) requestState(w http.ResponseWriter, r *http.Request) (*state, bool) {
	st := newState(r.Header.Get("Surreal-NS"), r.Header.Get("Surreal-DB"))

	if header := r.Header.Get("Authorization"); header != "" {
		claims, err := s.tokens.verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.writeJSONError(w, http.StatusUnauthorized, "Authentication failed", err.Error())
			return nil, false
		}
		st.auth = claims
	}
	return st, true
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	st, ok := s.requestState(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Request problems detected", err.Error())
		return
	}

	var req connection.RPCRequest
	var result any
	var rpcErr *connection.RPCError
	if err := s.codec.Unmarshal(body, &req); err != nil {
		rpcErr = rpcError(codeParseError, "Parse error: %v", err)
	} else {
		result, rpcErr = s.respond(r.Context(), st, &req, s.stub(&req))
	}

	resp := connection.RPCResponse[any]{ID: req.ID, Error: rpcErr}
	status := http.StatusOK
	if rpcErr != nil {
		status = http.StatusBadRequest
	} else {
		resp.Result = &result
	}

	data, err := s.codec.Marshal(resp)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Encoding failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, constants.VersionPrefix+engine.Version)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st, ok := s.requestState(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.ds.Export(r.Context(), st.sess, &buf); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Export failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	st, ok := s.requestState(w, r)
	if !ok {
		return
	}
	if s.requireAuth.Load() && st.auth == nil {
		s.writeJSONError(w, http.StatusForbidden, "Forbidden", "Not signed in")
		return
	}

	if err := s.ds.Import(r.Context(), st.sess, r.Body); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Import failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}
