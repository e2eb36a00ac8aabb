package connection

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/surrealkit/surrealdb.go/internal/codec"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

func TestNewConfig(t *testing.T) {
	u, err := url.Parse("wss://db.example.com:8000/?ns=app&db=prod")
	require.NoError(t, err)

	cfg := NewConfig(u)
	assert.Equal(t, "wss://db.example.com:8000", cfg.BaseURL)
	assert.Equal(t, "app", cfg.Namespace)
	assert.Equal(t, "prod", cfg.Database)
	assert.NotNil(t, cfg.Marshaler)
	assert.NotNil(t, cfg.Unmarshaler)

	cfg.Capacity = 8
	cfg.NotificationBuffer = 4
	rc := cfg.RouterConfig()
	assert.Equal(t, 8, rc.Capacity)
	assert.Equal(t, 4, rc.NotificationBuffer)
	assert.Equal(t, cfg.Logger, rc.Logger)
}

func TestRPCErrorIs(t *testing.T) {
	var err error = &RPCError{Code: -32000, Message: "There was a problem with the database"}

	assert.ErrorIs(t, err, constants.ErrQuery)
	assert.ErrorIs(t, err, &RPCError{})
	assert.False(t, errors.Is(err, constants.ErrDecode))
	assert.Equal(t, "There was a problem with the database", err.Error())

	err = &RPCError{Message: "short", Description: "long"}
	assert.Equal(t, "long", err.Error())
}

func TestToResults(t *testing.T) {
	results := ToResults([]QueryResult{
		{Status: StatusOK, Result: []any{"a"}},
		{Status: "ERR", Result: "Database record `person:1` already exists"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, []any{"a"}, results[0].Value)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, constants.ErrQuery)
	assert.EqualError(t, results[1].Err, "Database record `person:1` already exists")
}

// fakeSender answers every call with a canned reply.
type fakeSender struct {
	method string
	params []any
	reply  *RPCResponse[cbor.RawMessage]
	err    error
}

func (f *fakeSender) Send(_ context.Context, method string, params ...any) (*RPCResponse[cbor.RawMessage], error) {
	f.method, f.params = method, params
	return f.reply, f.err
}

func (f *fakeSender) GetUnmarshaler() codec.Unmarshaler {
	return models.CborUnmarshaler{}
}

func rawReply(t *testing.T, v any) *RPCResponse[cbor.RawMessage] {
	t.Helper()
	data, err := models.CborMarshaler{}.Marshal(v)
	require.NoError(t, err)
	raw := cbor.RawMessage(data)
	return &RPCResponse[cbor.RawMessage]{ID: "1", Result: &raw}
}

func TestSendDecodesResult(t *testing.T) {
	f := &fakeSender{reply: rawReply(t, "surrealdb-2.1.0")}

	var res RPCResponse[string]
	require.NoError(t, Send(f, context.Background(), &res, Version))
	assert.Equal(t, "version", f.method)
	require.NotNil(t, res.Result)
	assert.Equal(t, "surrealdb-2.1.0", *res.Result)
}

func TestSendDecodeFailure(t *testing.T) {
	f := &fakeSender{reply: rawReply(t, "not a number")}

	var res RPCResponse[int]
	err := Send(f, context.Background(), &res, Version)
	assert.ErrorIs(t, err, constants.ErrDecode)
}

func TestSendPassesErrors(t *testing.T) {
	rpcErr := &RPCError{Code: -32000, Message: "boom"}
	f := &fakeSender{err: rpcErr}

	err := Send[any](f, context.Background(), nil, Ping)
	assert.ErrorIs(t, err, rpcErr)
}

type ToolkitTestSuite struct {
	suite.Suite
	tk Toolkit
}

func TestToolkitTestSuite(t *testing.T) {
	suite.Run(t, new(ToolkitTestSuite))
}

func (s *ToolkitTestSuite) SetupTest() {
	u, err := url.Parse("ws://localhost:8000")
	s.Require().NoError(err)
	s.tk = NewToolkit(NewConfig(u))
}

func (s *ToolkitTestSuite) TestPreConnectionChecks() {
	s.NoError(s.tk.PreConnectionChecks())

	s.tk.BaseURL = ""
	s.ErrorIs(s.tk.PreConnectionChecks(), constants.ErrNoBaseURL)

	s.tk.BaseURL = "ws://localhost:8000"
	s.tk.Marshaler = nil
	s.ErrorIs(s.tk.PreConnectionChecks(), constants.ErrNoMarshaler)
}

func (s *ToolkitTestSuite) TestResponseChannels() {
	ch, err := s.tk.CreateResponseChannel("a")
	s.Require().NoError(err)

	_, err = s.tk.CreateResponseChannel("a")
	s.ErrorIs(err, constants.ErrIDInUse)

	got, ok := s.tk.GetResponseChannel("a")
	s.True(ok)
	s.Equal(ch, got)

	s.tk.RemoveResponseChannel("a")
	_, ok = s.tk.GetResponseChannel("a")
	s.False(ok)
}

func (s *ToolkitTestSuite) TestNotify() {
	n := models.Notification{Action: models.CreateAction}
	s.False(s.tk.Notify(n))

	var got []models.Notification
	s.tk.SetNotificationHandler(func(n models.Notification) { got = append(got, n) })
	s.True(s.tk.Notify(n))
	s.Equal([]models.Notification{n}, got)
}
