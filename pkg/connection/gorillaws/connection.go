// Package gorillaws is the WebSocket backend, built on gorilla/websocket.
package gorillaws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	gorilla "github.com/gorilla/websocket"

	"github.com/surrealkit/surrealdb.go/internal/rand"
	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/connection/rpc"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

// DefaultDialer is the default gorilla dialer used by the Connection
//
// It uses the default gorilla dialer as of gorilla/websocket v1.5.0 with the following modifications:
// - EnableCompression is set to true
// - Subprotocols is set to ["cbor"]
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
	Subprotocols:      []string{"cbor"},
}

type Option func(ws *Connection) error

type Connection struct {
	connection.Toolkit

	Conn *gorilla.Conn
	// connLock serializes writes and guards Conn against Close.
	connLock sync.Mutex

	// Timeout is the timeout for receiving the RPC response after
	// the request was written. Zero disables it.
	Timeout time.Duration

	Option []Option
	logger logger.Logger

	// connCloseCh is closed once the connection is closing or lost.
	connCloseCh    chan struct{}
	connCloseOnce  sync.Once
	connCloseError error

	closed atomic.Bool
}

var (
	_ router.Backend       = (*Connection)(nil)
	_ router.Authenticator = (*Connection)(nil)
	_ router.LiveNotifier  = (*Connection)(nil)
)

func New(p *connection.Config) *Connection {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = constants.DefaultWSTimeout
	}
	l := p.Logger
	if l == nil {
		l = logger.Discard
	}

	return &Connection{
		Toolkit:     connection.NewToolkit(p),
		Timeout:     timeout,
		logger:      l,
		connCloseCh: make(chan struct{}),
	}
}

// Connect connects a WebSocket backend to the server of cfg and starts its router.
func Connect(ctx context.Context, cfg *connection.Config) (*router.Router, error) {
	return router.Connect(ctx, New(cfg), cfg.RouterConfig())
}

// IsClosed reports whether the connection was closed or lost.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Connect dials the server and starts reading from it.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.PreConnectionChecks(); err != nil {
		return err
	}

	conn, res, err := DefaultDialer.DialContext(ctx, fmt.Sprintf("%s/rpc", c.BaseURL), nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	c.connLock.Lock()
	defer c.connLock.Unlock()

	c.Conn = conn

	for _, option := range c.Option {
		if err := option(c); err != nil {
			return err
		}
	}

	go c.readLoop(conn)

	return nil
}

func (c *Connection) SetTimeOut(timeout time.Duration) *Connection {
	c.Option = append(c.Option, func(ws *Connection) error {
		ws.Timeout = timeout
		return nil
	})
	return c
}

func (c *Connection) Logger(logData logger.Logger) *Connection {
	c.logger = logData
	return c
}

func (c *Connection) SetCompression(compress bool) *Connection {
	c.Option = append(c.Option, func(ws *Connection) error {
		ws.Conn.EnableWriteCompression(compress)
		return nil
	})
	return c
}

// Close sends a close frame, bounded by ctx, and closes the connection.
// The connection is closed locally even when the close frame can not be written.
func (c *Connection) Close(ctx context.Context) error {
	if c.IsClosed() {
		return nil
	}
	c.closeWithError(constants.ErrConnectionClosed)

	c.connLock.Lock()
	defer c.connLock.Unlock()

	conn := c.Conn
	c.Conn = nil
	if conn == nil {
		return nil
	}

	writeErr := make(chan error, 1)
	go func() {
		if deadline, ok := ctx.Deadline(); ok {
			if err := conn.SetWriteDeadline(deadline); err != nil {
				writeErr <- err
				return
			}
		}
		writeErr <- conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(constants.CloseMessageCode, ""))
	}()

	select {
	case err := <-writeErr:
		if err != nil {
			c.logger.Error("failed to write close message", "error", err)
		}
	case <-ctx.Done():
	}

	return conn.Close()
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

func (c *Connection) Authenticate(ctx context.Context, token string) error {
	return rpc.Authenticate(c, ctx, token)
}

func (c *Connection) SignUp(ctx context.Context, authData any) (string, error) {
	return rpc.SignUp(c, ctx, authData)
}

func (c *Connection) SignIn(ctx context.Context, authData any) (string, error) {
	return rpc.SignIn(c, ctx, authData)
}

func (c *Connection) Invalidate(ctx context.Context) error {
	return rpc.Invalidate(c, ctx)
}

// Send sends a request to SurrealDB and waits for its response.
//
// The ctx is wrapped with a timeout if c.Timeout is set; running out of
// time returns constants.ErrTimeout.
func (c *Connection) Send(ctx context.Context, method string, params ...any) (*connection.RPCResponse[cbor.RawMessage], error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	select {
	case <-c.connCloseCh:
		return nil, c.connCloseError
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	id := rand.NewRequestID(constants.RequestIDLength)
	request := &connection.RPCRequest{
		ID:     id,
		Method: method,
		Params: params,
	}

	responseChan, err := c.CreateResponseChannel(id)
	if err != nil {
		return nil, err
	}
	defer c.RemoveResponseChannel(id)

	if err := c.write(request); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", constants.ErrTimeout, method)
		}
		return nil, ctx.Err()
	case <-c.connCloseCh:
		return nil, c.connCloseError
	case res := <-responseChan:
		if res.Error != nil {
			return nil, res.Error
		}
		return &res, nil
	}
}

func (c *Connection) write(v any) error {
	data, err := c.Marshaler.Marshal(v)
	if err != nil {
		return err
	}

	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.Conn == nil {
		return constants.ErrConnectionClosed
	}
	err = c.Conn.WriteMessage(gorilla.BinaryMessage, data)

	if errors.Is(err, gorilla.ErrCloseSent) {
		c.closeWithError(err)
	}

	return err
}

func (c *Connection) closeWithError(err error) {
	c.connCloseOnce.Do(func() {
		c.connCloseError = err
		c.closed.Store(true)
		close(c.connCloseCh)
	})
}

func (c *Connection) readLoop(conn *gorilla.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.handleError(err) {
				return
			}
			continue
		}
		c.handleResponse(data)
	}
}

// handleError returns true if the error indicates that the connection is closed
// and the readLoop should exit, false otherwise.
func (c *Connection) handleError(err error) bool {
	select {
	case <-c.connCloseCh:
		return true
	default:
	}

	switch {
	case errors.Is(err, net.ErrClosed):
		c.closeWithError(fmt.Errorf("%w: %w", constants.ErrConnectionClosed, err))
		return true
	case gorilla.IsUnexpectedCloseError(err), gorilla.IsCloseError(err, gorilla.CloseNormalClosure):
		c.closeWithError(fmt.Errorf("%w: %w", constants.ErrConnectionClosed, io.ErrClosedPipe))
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && !netErr.Timeout() {
		c.closeWithError(fmt.Errorf("%w: %w", constants.ErrConnectionClosed, err))
		return true
	}

	c.logger.Error("failed to read message", "error", err)
	return false
}

func (c *Connection) handleResponse(res []byte) {
	c.HandleMessage(res, c.logger)
}
