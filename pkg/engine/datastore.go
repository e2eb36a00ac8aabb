// Package engine is a small embedded SurrealQL engine.
//
// It understands the statements the router emits (CREATE, UPDATE with
// CONTENT, MERGE or PATCH, SELECT * FROM, DELETE, RETURN, LET, LIVE SELECT
// and KILL) over record ids, record ranges, tables, parameters and literal
// values. Records live in a Store, either in memory or in SQLite.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// Version is the engine version embedded connections report.
const Version = "2.1.0"

var (
	ErrRecordExists  = errors.New("record already exists")
	ErrReadOnly      = errors.New("statement is not allowed in a read only transaction")
	ErrNoNamespace   = errors.New("specify a namespace to use")
	ErrNoDatabase    = errors.New("specify a database to use")
	ErrLiveNotFound  = errors.New("live query not found")
	ErrInvalidTarget = errors.New("invalid statement target")
	ErrClosed        = errors.New("datastore is closed")
)

// Session is the per connection state a query runs with.
type Session struct {
	NS string
	DB string
	// Notify receives the notifications of live queries this session started.
	Notify func(models.Notification)
}

// NewSession returns a session scoped to ns and db.
func NewSession(ns, db string) *Session {
	return &Session{NS: ns, DB: db}
}

func (s *Session) keyspace() (Keyspace, error) {
	if s.NS == "" {
		return Keyspace{}, ErrNoNamespace
	}
	if s.DB == "" {
		return Keyspace{}, ErrNoDatabase
	}
	return Keyspace{NS: s.NS, DB: s.DB}, nil
}

// Response is the outcome of one statement.
type Response struct {
	Result any
	Err    error
	Time   time.Duration
}

type liveQuery struct {
	id      models.UUID
	ks      Keyspace
	table   string
	diff    bool
	session *Session
}

// Datastore executes SurrealQL against a Store. It is safe for concurrent
// use; statements from different callers never interleave.
type Datastore struct {
	mu     sync.Mutex
	store  Store
	live   map[string]*liveQuery
	logger logger.Logger
	closed bool
}

type Option func(*Datastore)

func WithLogger(l logger.Logger) Option {
	return func(ds *Datastore) {
		ds.logger = l
	}
}

// New returns a datastore over store.
func New(store Store, opts ...Option) *Datastore {
	ds := &Datastore{
		store:  store,
		live:   make(map[string]*liveQuery),
		logger: logger.Discard,
	}
	for _, opt := range opts {
		opt(ds)
	}
	return ds
}

// NewMemory returns a datastore that keeps its records in memory.
func NewMemory(opts ...Option) *Datastore {
	return New(NewMemoryStore(), opts...)
}

// Execute runs every statement of text in order and returns one Response
// per statement. A statement that fails to parse or execute is reported in
// its Response and does not stop the statements after it. The error is
// only set when nothing could run at all.
func (ds *Datastore) Execute(ctx context.Context, text string, sess *Session, vars map[string]any, readOnly bool) ([]Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: nil session", constants.ErrInvalidParams)
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return nil, ErrClosed
	}

	local := make(map[string]any, len(vars))
	for k, v := range vars {
		local[k] = normalize(v)
	}
	x := &executor{
		ds:       ds,
		ctx:      ctx,
		sess:     sess,
		eval:     &evaluator{vars: local},
		readOnly: readOnly,
	}

	var responses []Response
	for _, text := range splitStatements(text) {
		start := time.Now()
		stmt, err := Parse(text)
		if err == nil && stmt == nil {
			continue
		}

		var result any
		if err == nil {
			result, err = x.execute(stmt)
		}
		if err != nil {
			ds.logger.Debug("statement failed", "error", err)
			result = nil
		}
		responses = append(responses, Response{Result: result, Err: err, Time: time.Since(start)})
	}
	return responses, nil
}

// Reset removes every record and kills every live query.
func (ds *Datastore) Reset(ctx context.Context) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	for key, lq := range ds.live {
		ds.sendKilled(lq)
		delete(ds.live, key)
	}
	return ds.store.Clear(ctx)
}

// EndSession kills the live queries started by sess.
func (ds *Datastore) EndSession(sess *Session) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	for key, lq := range ds.live {
		if lq.session == sess {
			delete(ds.live, key)
		}
	}
}

// Close closes the store. Further calls to Execute fail.
func (ds *Datastore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return nil
	}
	ds.closed = true
	ds.live = make(map[string]*liveQuery)
	return ds.store.Close()
}

func (ds *Datastore) sendKilled(lq *liveQuery) {
	if lq.session.Notify != nil {
		lq.session.Notify(models.Notification{ID: lq.id, Action: models.KilledAction, Result: none})
	}
}

// notify fans a change out to the live queries watching table.
func (ds *Datastore) notify(ks Keyspace, table string, action models.Action, before, after map[string]any) {
	for _, lq := range ds.live {
		if lq.ks != ks || lq.table != table || lq.session.Notify == nil {
			continue
		}

		var result any
		switch {
		case lq.diff:
			result = diff(before, after)
		case action == models.DeleteAction:
			result = cloneObject(before)
		default:
			result = cloneObject(after)
		}
		lq.session.Notify(models.Notification{ID: lq.id, Action: action, Result: result})
	}
}
