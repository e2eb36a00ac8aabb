// Package router serializes database commands from many goroutines onto a
// single backend.
//
// Every connection runs one processing goroutine that owns the backend and
// the session variables. Callers enqueue a Command and wait on its one-shot
// response channel; commands run strictly in the order they were enqueued.
package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// Config holds the router's tunables.
type Config struct {
	// Capacity bounds the queue. Zero means unbounded.
	Capacity int
	// NotificationBuffer is the buffer size of each live query channel.
	NotificationBuffer int
	Logger             logger.Logger
}

// Router is the caller side handle of a connection. It is safe for
// concurrent use.
type Router struct {
	queue  queue
	seq    atomic.Uint64
	live   *liveRegistry
	logger logger.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Connect connects backend and starts the processing loop.
func Connect(ctx context.Context, backend Backend, cfg Config) (*Router, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard
	}
	if cfg.NotificationBuffer <= 0 {
		cfg.NotificationBuffer = constants.DefaultNotificationBuffer
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("%w: negative queue capacity %d", constants.ErrInvalidParams, cfg.Capacity)
	}

	if err := backend.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrConnection, err)
	}

	r := &Router{
		queue:  newQueue(cfg.Capacity),
		live:   newLiveRegistry(cfg.NotificationBuffer, cfg.Logger),
		logger: cfg.Logger,
		done:   make(chan struct{}),
	}

	if n, ok := backend.(LiveNotifier); ok {
		n.SetNotificationHandler(r.live.notify)
	}

	l := &loop{
		backend: backend,
		vars:    NewVars(),
		live:    r.live,
		logger:  cfg.Logger,
	}
	go func() {
		defer close(r.done)
		l.run(r.queue)
	}()

	return r, nil
}

// Send enqueues cmd. It blocks only while a bounded queue is full.
func (r *Router) Send(ctx context.Context, cmd Command) (*Pending, error) {
	if err := cmd.Param.check(cmd.Method); err != nil {
		return nil, err
	}

	id := r.seq.Add(1)
	ch := make(chan response, 1)

	if err := r.queue.push(ctx, envelope{cmd: cmd, id: id, ch: ch}); err != nil {
		return nil, err
	}
	return &Pending{ID: id, Method: cmd.Method, ch: ch}, nil
}

func (r *Router) wait(ctx context.Context, p *Pending) (response, error) {
	select {
	case res := <-p.ch:
		return res, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	case <-r.done:
		select {
		case res := <-p.ch:
			return res, nil
		default:
			return response{}, constants.ErrConnectionClosed
		}
	}
}

// Recv waits for the reply of a non-batch command.
func (r *Router) Recv(ctx context.Context, p *Pending) (any, error) {
	res, err := r.wait(ctx, p)
	if err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.resp.Other, nil
}

// RecvQuery waits for the per statement results of a MethodQuery command.
func (r *Router) RecvQuery(ctx context.Context, p *Pending) ([]QueryResult, error) {
	if p.Method != MethodQuery {
		return nil, fmt.Errorf("%w: %s is not a query", constants.ErrInvalidParams, p.Method)
	}
	res, err := r.wait(ctx, p)
	if err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.resp.Query, nil
}

// Execute enqueues cmd and waits for its response.
func (r *Router) Execute(ctx context.Context, cmd Command) (DbResponse, error) {
	p, err := r.Send(ctx, cmd)
	if err != nil {
		return DbResponse{}, err
	}
	res, err := r.wait(ctx, p)
	if err != nil {
		return DbResponse{}, err
	}
	return res.resp, res.err
}

// Notifications returns the channel of the live query id. The channel is
// closed when the query is killed or the router is closed.
func (r *Router) Notifications(id models.UUID) (<-chan models.Notification, bool) {
	ch, ok := r.live.get(id)
	if !ok {
		return nil, false
	}
	return ch, true
}

// Done is closed once the processing loop has exited.
func (r *Router) Done() <-chan struct{} {
	return r.done
}

// Close stops accepting commands, lets the loop finish what is queued and
// closes the backend. It returns ctx.Err() if ctx ends first.
func (r *Router) Close(ctx context.Context) error {
	r.closeOnce.Do(r.queue.close)

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
