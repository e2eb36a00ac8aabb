package fakesdb_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	surrealdb "github.com/surrealkit/surrealdb.go"
	"github.com/surrealkit/surrealdb.go/internal/fakesdb"
	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

func startServer(t *testing.T) *fakesdb.Server {
	t.Helper()
	server := fakesdb.NewServer("127.0.0.1:0")
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		assert.NoError(t, server.Stop())
	})
	return server
}

func TestServerStartStop(t *testing.T) {
	server := fakesdb.NewServer("127.0.0.1:0")
	require.NoError(t, server.Start())
	assert.NotEqual(t, "127.0.0.1:0", server.Address())
	assert.Equal(t, "ws://"+server.Address(), server.URL("ws"))
	require.NoError(t, server.Stop())
}

type item struct {
	ID   *models.RecordID `json:"id,omitempty"`
	Name string           `json:"name"`
}

// TransportTestSuite runs the same calls over every transport the server speaks.
type TransportTestSuite struct {
	suite.Suite
	scheme string
	server *fakesdb.Server
	db     *surrealdb.DB
	ctx    context.Context
}

func TestWebSocketTransport(t *testing.T) {
	suite.Run(t, &TransportTestSuite{scheme: "ws"})
}

func TestHTTPTransport(t *testing.T) {
	suite.Run(t, &TransportTestSuite{scheme: "http"})
}

func (s *TransportTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.server = startServer(s.T())
	s.server.AddUser("root", "secret")

	db, err := surrealdb.Connect(s.ctx, s.server.URL(s.scheme)+"/?ns=test&db=test")
	s.Require().NoError(err)
	s.db = db
}

func (s *TransportTestSuite) TearDownTest() {
	s.NoError(s.db.Close(s.ctx))
}

func (s *TransportTestSuite) TestCreateAndSelect() {
	id := models.NewRecordID("item", "one")
	created, err := surrealdb.Create[item](s.ctx, s.db, id, item{Name: "one"})
	s.Require().NoError(err)
	s.Equal("one", created.Name)
	s.Equal(id, *created.ID)

	selected, err := surrealdb.Select[item](s.ctx, s.db, id)
	s.Require().NoError(err)
	s.Equal(*created, *selected)
}

func (s *TransportTestSuite) TestQueryErrorsStayPerStatement() {
	results, err := surrealdb.Query[any](s.ctx, s.db, "CREATE item:1; CREATE item:1; RETURN 2", nil)
	s.ErrorIs(err, constants.ErrQuery)
	s.Require().Len(*results, 3)
	s.Equal(surrealdb.StatusOK, (*results)[0].Status)
	s.Equal(surrealdb.StatusError, (*results)[1].Status)
	s.Equal(int64(2), (*results)[2].Result)
}

func (s *TransportTestSuite) TestSessionVariables() {
	s.Require().NoError(s.db.Set(s.ctx, "greeting", "hello"))

	results, err := surrealdb.Query[string](s.ctx, s.db, "RETURN $greeting", nil)
	s.Require().NoError(err)
	s.Equal("hello", (*results)[0].Result)
}

func (s *TransportTestSuite) TestHealthAndVersion() {
	s.NoError(s.db.Health().Exec(s.ctx))

	v, err := s.db.Version().Exec(s.ctx)
	s.Require().NoError(err)
	s.Equal("2.1.0", v.String())
}

func (s *TransportTestSuite) TestSignIn() {
	_, err := s.db.SignIn(s.ctx, surrealdb.Auth{Username: "root", Password: "wrong"})
	s.ErrorIs(err, constants.ErrQuery)

	token, err := s.db.SignIn(s.ctx, surrealdb.Auth{Username: "root", Password: "secret"})
	s.Require().NoError(err)
	s.NotEmpty(token)
	s.NoError(s.db.Authenticate(s.ctx, token))
}

func (s *TransportTestSuite) TestSignUpThenAuthenticate() {
	auth := surrealdb.Auth{Namespace: "test", Database: "test", Access: "user", Username: "tobie", Password: "pw"}
	token, err := s.db.SignUp(s.ctx, auth)
	s.Require().NoError(err)

	_, err = s.db.SignUp(s.ctx, auth)
	s.Error(err)

	signedIn, err := s.db.SignIn(s.ctx, auth)
	s.Require().NoError(err)
	s.NotEmpty(signedIn)

	s.NoError(s.db.Authenticate(s.ctx, token))
	s.NoError(s.db.Invalidate(s.ctx))
}

func (s *TransportTestSuite) TestExpiredToken() {
	token, err := s.server.GenerateToken("root", -time.Minute)
	s.Require().NoError(err)
	s.Error(s.db.Authenticate(s.ctx, token))
}

func (s *TransportTestSuite) TestRequireAuth() {
	s.server.RequireAuth(true)

	_, err := surrealdb.Query[any](s.ctx, s.db, "RETURN 1", nil)
	s.Error(err)

	_, err = s.db.SignIn(s.ctx, surrealdb.Auth{Username: "root", Password: "secret"})
	s.Require().NoError(err)

	_, err = surrealdb.Query[any](s.ctx, s.db, "RETURN 1", nil)
	s.NoError(err)
}

func (s *TransportTestSuite) TestStubbedQuery() {
	s.server.AddStubResponse(fakesdb.SimpleStubResponse("query", []connection.QueryResult{
		{Status: connection.StatusOK, Result: "stubbed"},
	}))

	results, err := surrealdb.Query[string](s.ctx, s.db, "RETURN 1", nil)
	s.Require().NoError(err)
	s.Equal("stubbed", (*results)[0].Result)
}

func TestHTTPExportImport(t *testing.T) {
	ctx := context.Background()
	server := startServer(t)

	db, err := surrealdb.Connect(ctx, server.URL("http")+"/?ns=test&db=test")
	require.NoError(t, err)
	defer db.Close(ctx)

	_, err = surrealdb.Create[item](ctx, db, models.NewRecordID("item", 1), item{Name: "one"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, db.Export(ctx, &buf))

	require.NoError(t, db.Use(ctx, "", "copy"))
	require.NoError(t, db.Import(ctx, &buf))

	copied, err := surrealdb.Select[item](ctx, db, models.NewRecordID("item", 1))
	require.NoError(t, err)
	require.NotNil(t, copied)
	assert.Equal(t, "one", copied.Name)

	err = db.Import(ctx, bytes.NewReader([]byte("garbage")))
	assert.ErrorIs(t, err, constants.ErrQuery)
}

func TestWebSocketLiveQuery(t *testing.T) {
	ctx := context.Background()
	server := startServer(t)

	db, err := surrealdb.Connect(ctx, server.URL("ws")+"/?ns=test&db=test")
	require.NoError(t, err)
	defer db.Close(ctx)

	id, err := db.Live(ctx, "item", false)
	require.NoError(t, err)
	ch, err := db.LiveNotifications(*id)
	require.NoError(t, err)

	_, err = surrealdb.Create[item](ctx, db, models.NewRecordID("item", "a"), item{Name: "a"})
	require.NoError(t, err)

	select {
	case n := <-ch:
		assert.Equal(t, models.CreateAction, n.Action)
		assert.Equal(t, id.String(), n.ID.String())
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}

	require.NoError(t, db.Kill(ctx, *id))
}

func TestHTTPLiveQueryIsNotAvailable(t *testing.T) {
	ctx := context.Background()
	server := startServer(t)

	db, err := surrealdb.Connect(ctx, server.URL("http")+"/?ns=test&db=test")
	require.NoError(t, err)
	defer db.Close(ctx)

	_, err = db.Live(ctx, "item", false)
	assert.ErrorIs(t, err, constants.ErrMethodNotAvailable)
}
