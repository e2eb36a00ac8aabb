package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/surrealkit/surrealdb.go/internal/fakesdb"
	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

func newConnection(t *testing.T, endpoint string) *Connection {
	t.Helper()
	u, err := url.Parse(endpoint)
	require.NoError(t, err)
	return New(connection.NewConfig(u))
}

type HTTPTestSuite struct {
	suite.Suite
	server *fakesdb.Server
	conn   *Connection
	ctx    context.Context
}

func TestHTTPTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPTestSuite))
}

func (s *HTTPTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.server = fakesdb.NewServer("127.0.0.1:0")
	s.Require().NoError(s.server.Start())

	s.conn = newConnection(s.T(), s.server.URL("http"))
	s.Require().NoError(s.conn.Connect(s.ctx))
}

func (s *HTTPTestSuite) TearDownTest() {
	s.NoError(s.conn.Close(s.ctx))
	s.NoError(s.server.Stop())
}

func (s *HTTPTestSuite) TestExecuteNeedsNamespaceAndDatabase() {
	_, err := s.conn.Execute(s.ctx, "RETURN 1", nil)
	s.ErrorIs(err, constants.ErrNoNamespaceOrDB)

	s.Require().NoError(s.conn.Use(s.ctx, "test", ""))
	_, err = s.conn.Execute(s.ctx, "RETURN 1", nil)
	s.ErrorIs(err, constants.ErrNoNamespaceOrDB)

	s.Require().NoError(s.conn.Use(s.ctx, "", "test"))
	results, err := s.conn.Execute(s.ctx, "RETURN 1", nil)
	s.Require().NoError(err)
	s.Equal(int64(1), results[0].Value)
}

func (s *HTTPTestSuite) TestUseScopesEveryRequest() {
	s.Require().NoError(s.conn.Use(s.ctx, "test", "a"))
	_, err := s.conn.Execute(s.ctx, "CREATE person:1", nil)
	s.Require().NoError(err)

	s.Require().NoError(s.conn.Use(s.ctx, "", "b"))
	results, err := s.conn.Execute(s.ctx, "SELECT * FROM person", nil)
	s.Require().NoError(err)
	s.Equal([]any{}, results[0].Value)
}

func (s *HTTPTestSuite) TestVersion() {
	v, err := s.conn.Version(s.ctx)
	s.Require().NoError(err)
	s.Equal("surrealdb-2.1.0", v)
}

func (s *HTTPTestSuite) TestSignInStoresToken() {
	s.server.AddUser("root", "root")

	token, err := s.conn.SignIn(s.ctx, map[string]any{"user": "root", "pass": "root"})
	s.Require().NoError(err)

	stored, ok := s.conn.variables.Load(constants.AuthTokenKey)
	s.True(ok)
	s.Equal(token, stored)

	s.Require().NoError(s.conn.Invalidate(s.ctx))
	_, ok = s.conn.variables.Load(constants.AuthTokenKey)
	s.False(ok)
}

func (s *HTTPTestSuite) TestInvalidTokenIsRejected() {
	s.conn.variables.Store(constants.AuthTokenKey, "not-a-token")

	err := s.conn.Health(s.ctx)
	s.NoError(err)

	_, err = s.conn.Execute(s.ctx, "RETURN 1", nil)
	s.Error(err)

	s.Require().NoError(s.conn.Use(s.ctx, "test", "test"))
	_, err = s.conn.Execute(s.ctx, "RETURN 1", nil)
	var rpcErr *connection.RPCError
	s.Require().ErrorAs(err, &rpcErr)
	s.Equal(http.StatusUnauthorized, rpcErr.Code)
}

func (s *HTTPTestSuite) TestExportImport() {
	s.Require().NoError(s.conn.Use(s.ctx, "test", "test"))
	_, err := s.conn.Execute(s.ctx, "CREATE person:1 CONTENT $data", map[string]any{"data": map[string]any{"name": "a"}})
	s.Require().NoError(err)

	var buf bytes.Buffer
	s.Require().NoError(s.conn.Export(s.ctx, &buf))

	s.Require().NoError(s.conn.Use(s.ctx, "", "copy"))
	s.Require().NoError(s.conn.Import(s.ctx, &buf))

	results, err := s.conn.Execute(s.ctx, "SELECT * FROM person", nil)
	s.Require().NoError(err)
	s.Require().Len(results[0].Value, 1)
	record := results[0].Value.([]any)[0].(map[string]any)
	s.Equal(models.NewRecordID("person", int64(1)), record["id"])
}

func TestDecodeError(t *testing.T) {
	cborBody, err := models.CborMarshaler{}.Marshal(connection.RPCResponse[any]{
		Error: &connection.RPCError{Code: -32000, Message: "from cbor"},
	})
	require.NoError(t, err)

	tests := []struct {
		name        string
		contentType string
		body        []byte
		check       func(t *testing.T, err error)
	}{
		{
			name:        "json",
			contentType: "application/json; charset=utf-8",
			body:        []byte(`{"code":400,"details":"Request problems detected","description":"Bad Request","information":"There was a problem"}`),
			check: func(t *testing.T, err error) {
				var rpcErr *connection.RPCError
				require.ErrorAs(t, err, &rpcErr)
				assert.Equal(t, 400, rpcErr.Code)
				assert.Equal(t, "There was a problem", rpcErr.Message)
				assert.ErrorIs(t, err, constants.ErrQuery)
			},
		},
		{
			name:        "cbor",
			contentType: "application/cbor",
			body:        cborBody,
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "from cbor")
			},
		},
		{
			name:        "plain",
			contentType: "text/plain",
			body:        []byte("gateway timeout\n"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, constants.InvalidResponse)
				assert.Contains(t, err.Error(), "gateway timeout")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write(tt.body)
			}))
			defer srv.Close()

			conn := newConnection(t, srv.URL)
			_, err := conn.Version(context.Background())
			tt.check(t, err)
		})
	}
}
