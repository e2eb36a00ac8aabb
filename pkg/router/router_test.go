package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

type call struct {
	text string
	vars map[string]any
}

// fakeBackend records every statement and answers with execFn.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []call
	execFn  func(text string, vars map[string]any) ([]Result, error)
	gate    chan struct{}
	closed  bool
	ns, db  string
	handler func(models.Notification)
}

func (b *fakeBackend) Connect(context.Context) error { return nil }

func (b *fakeBackend) Use(_ context.Context, ns, db string) error {
	b.ns, b.db = ns, db
	return nil
}

func (b *fakeBackend) Execute(_ context.Context, text string, vars map[string]any) ([]Result, error) {
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	b.calls = append(b.calls, call{text: text, vars: vars})
	b.mu.Unlock()

	if b.execFn != nil {
		return b.execFn(text, vars)
	}
	return []Result{{Value: []any{}}}, nil
}

func (b *fakeBackend) Health(context.Context) error { return nil }

func (b *fakeBackend) Version(context.Context) (string, error) { return "surrealdb-2.1.0", nil }

func (b *fakeBackend) Close(context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) recorded() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]call(nil), b.calls...)
}

type liveBackend struct {
	fakeBackend
}

func (b *liveBackend) SetNotificationHandler(h func(models.Notification)) {
	b.handler = h
}

type RouterTestSuite struct {
	suite.Suite
	backend *fakeBackend
	router  *Router
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	s.backend = &fakeBackend{}
	r, err := Connect(context.Background(), s.backend, Config{})
	s.Require().NoError(err)
	s.router = r
}

func (s *RouterTestSuite) TearDownTest() {
	s.Require().NoError(s.router.Close(context.Background()))
}

func (s *RouterTestSuite) exec(method Method, values ...any) (DbResponse, error) {
	cmd, err := NewCommand(method, values...)
	s.Require().NoError(err)
	return s.router.Execute(context.Background(), cmd)
}

func (s *RouterTestSuite) TestCreateTranslatesAndTakesOne() {
	s.backend.execFn = func(string, map[string]any) ([]Result, error) {
		return []Result{{Value: []any{map[string]any{"name": "tobie"}}}}, nil
	}

	id := models.NewRecordID("person", "tobie")
	resp, err := s.exec(MethodCreate, id, map[string]any{"name": "tobie"})
	s.Require().NoError(err)
	s.Equal(map[string]any{"name": "tobie"}, resp.Other)

	calls := s.backend.recorded()
	s.Require().Len(calls, 1)
	s.Equal("CREATE $what_1 CONTENT $data_1 RETURN AFTER", calls[0].text)
	s.Equal(id, calls[0].vars["what_1"])
}

func (s *RouterTestSuite) TestSelectTableReturnsCollection() {
	resp, err := s.exec(MethodSelect, models.Table("person"))
	s.Require().NoError(err)
	s.Equal([]any{}, resp.Other)
}

func (s *RouterTestSuite) TestSetQueryUnset() {
	s.backend.execFn = func(text string, vars map[string]any) ([]Result, error) {
		if v, ok := vars["x"]; ok {
			return []Result{{Value: v}}, nil
		}
		return []Result{{Value: models.None}}, nil
	}

	_, err := s.exec(MethodSet, "x", 42)
	s.Require().NoError(err)

	resp, err := s.exec(MethodQuery, "RETURN $x")
	s.Require().NoError(err)
	s.Require().Len(resp.Query, 1)
	s.Equal(42, resp.Query[0].Result)
	s.Equal([]any{42}, resp.Query[0].Values)

	_, err = s.exec(MethodUnset, "x")
	s.Require().NoError(err)
	_, err = s.exec(MethodUnset, "x")
	s.Require().NoError(err)

	resp, err = s.exec(MethodQuery, "RETURN $x")
	s.Require().NoError(err)
	s.Equal(models.None, resp.Query[0].Result)
	s.Equal([]any{}, resp.Query[0].Values)
}

func (s *RouterTestSuite) TestSetFailureDoesNotStore() {
	s.backend.execFn = func(string, map[string]any) ([]Result, error) {
		return []Result{{Err: errors.New("cannot bind")}}, nil
	}

	_, err := s.exec(MethodSet, "x", 1)
	s.ErrorIs(err, constants.ErrQuery)

	s.backend.execFn = nil
	_, err = s.exec(MethodSelect, "person")
	s.Require().NoError(err)

	calls := s.backend.recorded()
	_, stored := calls[len(calls)-1].vars["x"]
	s.False(stored)
}

func (s *RouterTestSuite) TestQueryOverlayDoesNotPersist() {
	_, err := s.exec(MethodSet, "a", 1)
	s.Require().NoError(err)

	_, err = s.exec(MethodQuery, "RETURN $a + $b", map[string]any{"a": 10, "b": 2})
	s.Require().NoError(err)
	_, err = s.exec(MethodQuery, "RETURN $a")
	s.Require().NoError(err)

	calls := s.backend.recorded()
	s.Equal(map[string]any{"a": 10, "b": 2}, calls[1].vars)
	s.Equal(map[string]any{"a": 1}, calls[2].vars)
}

func (s *RouterTestSuite) TestQueryPartialFailure() {
	s.backend.execFn = func(string, map[string]any) ([]Result, error) {
		return []Result{
			{Value: []any{"a"}},
			{Err: &QueryError{Message: "parse error"}},
			{Value: []any{"b"}},
		}, nil
	}

	cmd, err := NewCommand(MethodQuery, "CREATE a; BAD; CREATE b")
	s.Require().NoError(err)
	p, err := s.router.Send(context.Background(), cmd)
	s.Require().NoError(err)

	results, err := s.router.RecvQuery(context.Background(), p)
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	s.NoError(results[0].Err)
	s.ErrorIs(results[1].Err, constants.ErrQuery)
	s.NoError(results[2].Err)
}

func (s *RouterTestSuite) TestRecvQueryRejectsOtherMethods() {
	cmd, err := NewCommand(MethodHealth)
	s.Require().NoError(err)
	p, err := s.router.Send(context.Background(), cmd)
	s.Require().NoError(err)

	_, err = s.router.RecvQuery(context.Background(), p)
	s.ErrorIs(err, constants.ErrInvalidParams)

	_, err = s.router.Recv(context.Background(), p)
	s.NoError(err)
}

func (s *RouterTestSuite) TestUseAndVersion() {
	_, err := s.exec(MethodUse, "test", "test")
	s.Require().NoError(err)

	resp, err := s.exec(MethodVersion)
	s.Require().NoError(err)
	s.Equal("surrealdb-2.1.0", resp.Other)
	s.Equal("test", s.backend.ns)
}

func (s *RouterTestSuite) TestMissingCapabilities() {
	for _, method := range []Method{MethodInvalidate, MethodReset} {
		_, err := s.exec(method)
		s.ErrorIs(err, constants.ErrMethodNotAvailable, method.String())
	}
	_, err := s.exec(MethodLive, "person")
	s.ErrorIs(err, constants.ErrMethodNotAvailable)
}

func (s *RouterTestSuite) TestZeroParamRejectedBeforeEnqueue() {
	_, err := s.router.Send(context.Background(), Command{Method: MethodQuery})
	s.ErrorIs(err, constants.ErrInvalidParams)
	s.Empty(s.backend.recorded())
}

func (s *RouterTestSuite) TestOrdering() {
	const n = 50
	pending := make([]*Pending, 0, n)
	for i := 0; i < n; i++ {
		cmd, err := NewCommand(MethodQuery, fmt.Sprintf("RETURN %d", i))
		s.Require().NoError(err)
		p, err := s.router.Send(context.Background(), cmd)
		s.Require().NoError(err)
		pending = append(pending, p)
	}
	for _, p := range pending {
		_, err := s.router.RecvQuery(context.Background(), p)
		s.Require().NoError(err)
	}

	calls := s.backend.recorded()
	s.Require().Len(calls, n)
	for i, c := range calls {
		s.Equal(fmt.Sprintf("RETURN %d", i), c.text)
	}
}

func (s *RouterTestSuite) TestConcurrentCallersEachGetTheirReply() {
	s.backend.execFn = func(text string, _ map[string]any) ([]Result, error) {
		return []Result{{Value: text}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd, err := NewCommand(MethodQuery, fmt.Sprintf("RETURN %d", i))
			if !s.NoError(err) {
				return
			}
			resp, err := s.router.Execute(context.Background(), cmd)
			if s.NoError(err) {
				s.Equal(fmt.Sprintf("RETURN %d", i), resp.Query[0].Result)
			}
		}(i)
	}
	wg.Wait()
}

func TestConnectFailure(t *testing.T) {
	b := &failingBackend{err: errors.New("refused")}
	_, err := Connect(context.Background(), b, Config{})
	assert.ErrorIs(t, err, constants.ErrConnection)
	assert.ErrorContains(t, err, "refused")
}

type failingBackend struct {
	fakeBackend
	err error
}

func (b *failingBackend) Connect(context.Context) error { return b.err }

func TestNegativeCapacity(t *testing.T) {
	_, err := Connect(context.Background(), &fakeBackend{}, Config{Capacity: -1})
	assert.ErrorIs(t, err, constants.ErrInvalidParams)
}

func TestUnboundedQueueNeverBlocksProducers(t *testing.T) {
	b := &fakeBackend{gate: make(chan struct{})}
	r, err := Connect(context.Background(), b, Config{})
	require.NoError(t, err)

	cmd, err := NewCommand(MethodSelect, "person")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 1000; i++ {
		_, err := r.Send(ctx, cmd)
		require.NoError(t, err)
	}

	close(b.gate)
	require.NoError(t, r.Close(context.Background()))
	assert.Len(t, b.recorded(), 1000)
}

func TestBoundedQueueAppliesBackpressure(t *testing.T) {
	b := &fakeBackend{gate: make(chan struct{})}
	r, err := Connect(context.Background(), b, Config{Capacity: 1})
	require.NoError(t, err)

	cmd, err := NewCommand(MethodSelect, "person")
	require.NoError(t, err)

	// The first command is taken by the loop and blocks on the gate, the
	// second fills the queue.
	_, err = r.Send(context.Background(), cmd)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := r.Send(context.Background(), cmd)
		return err == nil
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Send(ctx, cmd)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(b.gate)
	require.NoError(t, r.Close(context.Background()))
}

func TestCloseDrainsAndClosesBackend(t *testing.T) {
	b := &fakeBackend{}
	r, err := Connect(context.Background(), b, Config{Capacity: 8})
	require.NoError(t, err)

	cmd, err := NewCommand(MethodSelect, "person")
	require.NoError(t, err)
	p, err := r.Send(context.Background(), cmd)
	require.NoError(t, err)

	require.NoError(t, r.Close(context.Background()))
	require.NoError(t, r.Close(context.Background()))

	_, err = r.Recv(context.Background(), p)
	assert.NoError(t, err)

	_, err = r.Send(context.Background(), cmd)
	assert.ErrorIs(t, err, constants.ErrConnectionClosed)
	assert.True(t, b.closed)
}

func TestAbandonedCallerDoesNotBlockLoop(t *testing.T) {
	b := &fakeBackend{gate: make(chan struct{})}
	r, err := Connect(context.Background(), b, Config{})
	require.NoError(t, err)

	cmd, err := NewCommand(MethodSelect, "person")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p, err := r.Send(ctx, cmd)
	require.NoError(t, err)
	cancel()
	_, err = r.Recv(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)

	close(b.gate)
	resp, err := r.Execute(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, []any{}, resp.Other)
	assert.Len(t, b.recorded(), 2)
	require.NoError(t, r.Close(context.Background()))
}

func TestLiveNotifications(t *testing.T) {
	id, err := models.NewUUID()
	require.NoError(t, err)

	b := &liveBackend{}
	b.execFn = func(text string, _ map[string]any) ([]Result, error) {
		if text == "LIVE SELECT * FROM type::table($table_1)" {
			// A notification racing ahead of the LIVE reply is kept.
			b.handler(models.Notification{ID: id, Action: models.CreateAction, Result: "early"})
			return []Result{{Value: id}}, nil
		}
		return []Result{{Value: models.None}}, nil
	}

	r, err := Connect(context.Background(), b, Config{NotificationBuffer: 4})
	require.NoError(t, err)

	cmd, err := NewCommand(MethodLive, models.Table("person"))
	require.NoError(t, err)
	resp, err := r.Execute(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, id, resp.Other)

	ch, ok := r.Notifications(id)
	require.True(t, ok)

	b.handler(models.Notification{ID: id, Action: models.UpdateAction, Result: "late"})

	n := <-ch
	assert.Equal(t, "early", n.Result)
	n = <-ch
	assert.Equal(t, models.UpdateAction, n.Action)

	cmd, err = NewCommand(MethodKill, id)
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), cmd)
	require.NoError(t, err)

	_, open := <-ch
	assert.False(t, open)
	_, ok = r.Notifications(id)
	assert.False(t, ok)

	require.NoError(t, r.Close(context.Background()))
}

func TestLiveChannelsClosedOnClose(t *testing.T) {
	id, err := models.NewUUID()
	require.NoError(t, err)

	b := &liveBackend{}
	b.execFn = func(string, map[string]any) ([]Result, error) {
		return []Result{{Value: id.String()}}, nil
	}
	r, err := Connect(context.Background(), b, Config{})
	require.NoError(t, err)

	cmd, err := NewCommand(MethodLive, "person", true)
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), cmd)
	require.NoError(t, err)

	ch, ok := r.Notifications(id)
	require.True(t, ok)

	require.NoError(t, r.Close(context.Background()))
	_, open := <-ch
	assert.False(t, open)
}
