// Package gws is a WebSocket backend built on lxzan/gws. It speaks the
// same RPC protocol as gorillaws and can replace it where gws is already
// in use:
//
//	r, err := gws.Connect(ctx, cfg)
//	db := surrealdb.FromRouter(r, cfg.Logger)
package gws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/lxzan/gws"

	"github.com/surrealkit/surrealdb.go/internal/rand"
	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/connection/rpc"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

type Connection struct {
	connection.Toolkit

	conn     *gws.Conn
	connLock sync.Mutex

	// Timeout bounds the wait for each RPC response. Zero disables it.
	Timeout time.Duration

	logger logger.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

var (
	_ router.Backend       = (*Connection)(nil)
	_ router.Authenticator = (*Connection)(nil)
	_ router.LiveNotifier  = (*Connection)(nil)
)

func New(cfg *connection.Config) *Connection {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = constants.DefaultWSTimeout
	}
	l := cfg.Logger
	if l == nil {
		l = logger.Discard
	}
	return &Connection{
		Toolkit: connection.NewToolkit(cfg),
		Timeout: timeout,
		logger:  l,
		closeCh: make(chan struct{}),
	}
}

// Connect connects a gws backend to the server of cfg and starts its router.
func Connect(ctx context.Context, cfg *connection.Config) (*router.Router, error) {
	return router.Connect(ctx, New(cfg), cfg.RouterConfig())
}

type handler struct {
	c *Connection
}

func (h *handler) OnOpen(*gws.Conn) {}

func (h *handler) OnClose(_ *gws.Conn, err error) {
	h.c.closeWithError(fmt.Errorf("%w: %w", constants.ErrConnectionClosed, err))
}

func (h *handler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (h *handler) OnPong(*gws.Conn, []byte) {}

func (h *handler) OnMessage(_ *gws.Conn, message *gws.Message) {
	defer message.Close()
	h.c.HandleMessage(message.Bytes(), h.c.logger)
}

// Connect dials the server and starts reading from it.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.PreConnectionChecks(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, _, err := gws.NewClient(&handler{c: c}, &gws.ClientOption{
		Addr: fmt.Sprintf("%s/rpc", c.BaseURL),
		RequestHeader: http.Header{
			"Sec-WebSocket-Protocol": []string{"cbor"},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", constants.ErrConnection, err)
	}

	c.connLock.Lock()
	c.conn = conn
	c.connLock.Unlock()

	go conn.ReadLoop()
	return nil
}

// IsClosed reports whether the connection was closed or lost.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

func (c *Connection) closeWithError(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		c.closed.Store(true)
		close(c.closeCh)
	})
}

// Close sends a close frame and closes the connection.
func (c *Connection) Close(context.Context) error {
	c.closeWithError(constants.ErrConnectionClosed)

	c.connLock.Lock()
	defer c.connLock.Unlock()

	if c.conn == nil {
		return nil
	}
	c.conn.WriteClose(constants.CloseMessageCode, nil)
	err := c.conn.NetConn().Close()
	c.conn = nil
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (c *Connection) write(v any) error {
	data, err := c.Marshaler.Marshal(v)
	if err != nil {
		return err
	}

	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.conn == nil {
		return constants.ErrConnectionClosed
	}
	return c.conn.WriteMessage(gws.OpcodeBinary, data)
}

// Send writes one request and waits for its response.
func (c *Connection) Send(ctx context.Context, method string, params ...any) (*connection.RPCResponse[cbor.RawMessage], error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	select {
	case <-c.closeCh:
		return nil, c.closeErr
	default:
	}

	id := rand.NewRequestID(constants.RequestIDLength)
	ch, err := c.CreateResponseChannel(id)
	if err != nil {
		return nil, err
	}
	defer c.RemoveResponseChannel(id)

	if err := c.write(&connection.RPCRequest{ID: id, Method: method, Params: params}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", constants.ErrTimeout, method)
		}
		return nil, ctx.Err()
	case <-c.closeCh:
		return nil, c.closeErr
	case res := <-ch:
		if res.Error != nil {
			return nil, res.Error
		}
		return &res, nil
	}
}

func (c *Connection) Use(ctx context.Context, namespace, database string) error {
	return rpc.Use(c, ctx, namespace, database)
}

func (c *Connection) Execute(ctx context.Context, text string, vars map[string]any) ([]router.Result, error) {
	return rpc.Query(c, ctx, text, vars)
}

func (c *Connection) Health(ctx context.Context) error {
	return rpc.Ping(c, ctx)
}

func (c *Connection) Version(ctx context.Context) (string, error) {
	return rpc.Version(c, ctx)
}

func (c *Connection) SignIn(ctx context.Context, auth any) (string, error) {
	return rpc.SignIn(c, ctx, auth)
}

func (c *Connection) SignUp(ctx context.Context, auth any) (string, error) {
	return rpc.SignUp(c, ctx, auth)
}

func (c *Connection) Authenticate(ctx context.Context, token string) error {
	return rpc.Authenticate(c, ctx, token)
}

func (c *Connection) Invalidate(ctx context.Context) error {
	return rpc.Invalidate(c, ctx)
}
