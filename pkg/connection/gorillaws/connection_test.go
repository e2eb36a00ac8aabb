package gorillaws

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/surrealkit/surrealdb.go/internal/fakesdb"
	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

type WebSocketTestSuite struct {
	suite.Suite
	server *fakesdb.Server
	conn   *Connection
	ctx    context.Context
}

func TestWebSocketTestSuite(t *testing.T) {
	suite.Run(t, new(WebSocketTestSuite))
}

func (s *WebSocketTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.server = fakesdb.NewServer("127.0.0.1:0")
	s.Require().NoError(s.server.Start())

	u, err := url.Parse(s.server.URL("ws"))
	s.Require().NoError(err)
	cfg := connection.NewConfig(u)
	cfg.Logger = logger.Discard
	cfg.Timeout = time.Second

	s.conn = New(cfg)
	s.Require().NoError(s.conn.Connect(s.ctx))
	s.Require().NoError(s.conn.Use(s.ctx, "test", "test"))
}

func (s *WebSocketTestSuite) TearDownTest() {
	s.NoError(s.conn.Close(s.ctx))
	s.NoError(s.server.Stop())
}

func (s *WebSocketTestSuite) TestExecute() {
	results, err := s.conn.Execute(s.ctx, "CREATE person:1; CREATE person:1; RETURN $x", map[string]any{"x": "y"})
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	s.NoError(results[0].Err)
	s.ErrorIs(results[1].Err, constants.ErrQuery)
	s.Equal("y", results[2].Value)
}

func (s *WebSocketTestSuite) TestHealthAndVersion() {
	s.NoError(s.conn.Health(s.ctx))

	v, err := s.conn.Version(s.ctx)
	s.Require().NoError(err)
	s.Equal("surrealdb-2.1.0", v)
}

func (s *WebSocketTestSuite) TestRPCError() {
	s.server.AddStubResponse(fakesdb.ErrorStubResponse("version", -32000, "version is broken"))

	_, err := s.conn.Version(s.ctx)
	s.ErrorIs(err, constants.ErrQuery)
	s.EqualError(err, "version is broken")
}

func (s *WebSocketTestSuite) TestTimeout() {
	s.server.AddStubResponse(fakesdb.StubResponse{
		Matcher:  fakesdb.MatchMethod("ping"),
		Failures: []fakesdb.FailureConfig{{Type: fakesdb.FailureNoResponse, Probability: 1}},
	})

	err := s.conn.Health(s.ctx)
	s.ErrorIs(err, constants.ErrTimeout)
	s.False(s.conn.IsClosed())

	_, err = s.conn.Version(s.ctx)
	s.NoError(err)
}

func (s *WebSocketTestSuite) TestLateResponseIsDropped() {
	s.server.AddStubResponse(fakesdb.StubResponse{
		Matcher: fakesdb.MatchMethod("ping"),
		Failures: []fakesdb.FailureConfig{{
			Type:        fakesdb.FailureResponseDelay,
			Probability: 1,
			MinDelay:    1500 * time.Millisecond,
		}},
	})

	s.ErrorIs(s.conn.Health(s.ctx), constants.ErrTimeout)
	time.Sleep(time.Second)

	_, err := s.conn.Version(s.ctx)
	s.NoError(err)
}

func (s *WebSocketTestSuite) TestDroppedConnection() {
	s.server.AddStubResponse(fakesdb.StubResponse{
		Matcher:  fakesdb.MatchMethod("ping"),
		Failures: []fakesdb.FailureConfig{{Type: fakesdb.FailureDropConnection, Probability: 1}},
	})

	err := s.conn.Health(s.ctx)
	s.ErrorIs(err, constants.ErrConnectionClosed)
	s.Eventually(s.conn.IsClosed, time.Second, 10*time.Millisecond)

	_, err = s.conn.Version(s.ctx)
	s.ErrorIs(err, constants.ErrConnectionClosed)
}

func (s *WebSocketTestSuite) TestCorruptedResponseTimesOut() {
	s.server.AddStubResponse(fakesdb.StubResponse{
		Matcher:  fakesdb.MatchMethod("ping"),
		Failures: []fakesdb.FailureConfig{{Type: fakesdb.FailureInvalidResponse, Probability: 1}},
	})

	s.ErrorIs(s.conn.Health(s.ctx), constants.ErrTimeout)
}

func (s *WebSocketTestSuite) TestNotifications() {
	got := make(chan models.Notification, 1)
	s.conn.SetNotificationHandler(func(n models.Notification) { got <- n })

	results, err := s.conn.Execute(s.ctx, "LIVE SELECT * FROM person", nil)
	s.Require().NoError(err)
	s.Require().NoError(results[0].Err)
	id, ok := results[0].Value.(models.UUID)
	s.Require().True(ok, "live id is %T", results[0].Value)

	_, err = s.conn.Execute(s.ctx, "CREATE person:1", nil)
	s.Require().NoError(err)

	select {
	case n := <-got:
		s.Equal(id.String(), n.ID.String())
		s.Equal(models.CreateAction, n.Action)
	case <-time.After(time.Second):
		s.Fail("no notification")
	}
}

func (s *WebSocketTestSuite) TestCloseTwice() {
	s.NoError(s.conn.Close(s.ctx))
	s.NoError(s.conn.Close(s.ctx))

	_, err := s.conn.Version(s.ctx)
	s.ErrorIs(err, constants.ErrConnectionClosed)
}
