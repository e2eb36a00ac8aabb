// Package http is the HTTP backend. It is also the backend used by
// browser builds, where net/http runs on the fetch API.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"

	"github.com/surrealkit/surrealdb.go/internal/codec"
	"github.com/surrealkit/surrealdb.go/internal/rand"
	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/connection/rpc"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

const (
	namespaceKey = "namespace"
	databaseKey  = "database"
)

type Connection struct {
	BaseURL     string
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler

	httpClient *http.Client
	variables  sync.Map
}

var (
	_ router.Backend       = (*Connection)(nil)
	_ router.Authenticator = (*Connection)(nil)
	_ router.Porter        = (*Connection)(nil)
)

func New(p *connection.Config) *Connection {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	return &Connection{
		Marshaler:   p.Marshaler,
		Unmarshaler: p.Unmarshaler,
		BaseURL:     p.BaseURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Connect connects an HTTP backend to the server of cfg and starts its router.
func Connect(ctx context.Context, cfg *connection.Config) (*router.Router, error) {
	return router.Connect(ctx, New(cfg), cfg.RouterConfig())
}

// Connect probes the server's health endpoint.
func (c *Connection) Connect(ctx context.Context) error {
	if c.BaseURL == "" {
		return constants.ErrNoBaseURL
	}
	if c.Marshaler == nil {
		return constants.ErrNoMarshaler
	}
	if c.Unmarshaler == nil {
		return constants.ErrNoUnmarshaler
	}
	return c.Health(ctx)
}

func (c *Connection) Close(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Connection) SetTimeout(timeout time.Duration) *Connection {
	c.httpClient.Timeout = timeout
	return c
}

func (c *Connection) SetHTTPClient(client *http.Client) *Connection {
	c.httpClient = client
	return c
}

func (c *Connection) GetUnmarshaler() codec.Unmarshaler {
	return c.Unmarshaler
}

func (c *Connection) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	if namespace, ok := c.variables.Load(namespaceKey); ok {
		req.Header.Set("Surreal-NS", namespace.(string))
	}
	if database, ok := c.variables.Load(databaseKey); ok {
		req.Header.Set("Surreal-DB", database.(string))
	}
	if token, ok := c.variables.Load(constants.AuthTokenKey); ok {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token.(string)))
	}
	setFetchOptions(req)

	return req, nil
}

func (c *Connection) Send(ctx context.Context, method string, params ...any) (*connection.RPCResponse[cbor.RawMessage], error) {
	request := &connection.RPCRequest{
		ID:     rand.NewRequestID(constants.RequestIDLength),
		Method: method,
		Params: params,
	}
	reqBody, err := c.Marshaler.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/rpc", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/cbor")
	req.Header.Set("Content-Type", "application/cbor")

	respData, err := c.MakeRequest(req)
	if err != nil {
		return nil, err
	}

	var res connection.RPCResponse[cbor.RawMessage]
	if err := c.Unmarshaler.Unmarshal(respData, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrDecode, err)
	}
	if res.Error != nil {
		return nil, res.Error
	}

	return &res, nil
}

// httpError is the JSON body SurrealDB answers failed HTTP requests with.
type httpError struct {
	Code        int    `json:"code"`
	Details     string `json:"details"`
	Description string `json:"description"`
	Information string `json:"information"`
}

func (c *Connection) MakeRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBytes, nil
	}
	return nil, c.decodeError(resp, respBytes)
}

func (c *Connection) decodeError(resp *http.Response, body []byte) error {
	contentType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])

	switch contentType {
	case "application/json":
		var e httpError
		if err := json.Unmarshal(body, &e); err != nil {
			return fmt.Errorf("%w: %s", constants.InvalidResponse, body)
		}
		msg := e.Information
		if msg == "" {
			msg = e.Details
		}
		return &connection.RPCError{Code: e.Code, Message: msg, Description: e.Description}
	case "application/cbor":
		var errorResponse connection.RPCResponse[any]
		if err := c.Unmarshaler.Unmarshal(body, &errorResponse); err != nil || errorResponse.Error == nil {
			return fmt.Errorf("%w: status %d", constants.InvalidResponse, resp.StatusCode)
		}
		return errorResponse.Error
	}
	return fmt.Errorf("%w: status %d: %s", constants.InvalidResponse, resp.StatusCode, strings.TrimSpace(string(body)))
}

// Use stores the scope sent with every request. An empty name leaves
// that part unchanged.
func (c *Connection) Use(ctx context.Context, namespace, database string) error {
	if namespace != "" {
		c.variables.Store(namespaceKey, namespace)
	}
	if database != "" {
		c.variables.Store(databaseKey, database)
	}

	return nil
}

func (c *Connection) Execute(ctx context.Context, text string, vars map[string]any) ([]router.Result, error) {
	if _, ok := c.variables.Load(namespaceKey); !ok {
		return nil, constants.ErrNoNamespaceOrDB
	}
	if _, ok := c.variables.Load(databaseKey); !ok {
		return nil, constants.ErrNoNamespaceOrDB
	}
	return rpc.Query(c, ctx, text, vars)
}

func (c *Connection) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", http.NoBody)
	if err != nil {
		return err
	}
	_, err = c.MakeRequest(req)
	return err
}

func (c *Connection) Version(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/version", http.NoBody)
	if err != nil {
		return "", err
	}
	body, err := c.MakeRequest(req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Connection) Authenticate(ctx context.Context, token string) error {
	if err := rpc.Authenticate(c, ctx, token); err != nil {
		return err
	}

	c.variables.Store(constants.AuthTokenKey, token)
	return nil
}

func (c *Connection) SignUp(ctx context.Context, authData any) (string, error) {
	token, err := rpc.SignUp(c, ctx, authData)
	if err != nil {
		return "", err
	}

	c.variables.Store(constants.AuthTokenKey, token)
	return token, nil
}

func (c *Connection) SignIn(ctx context.Context, authData any) (string, error) {
	token, err := rpc.SignIn(c, ctx, authData)
	if err != nil {
		return "", err
	}

	c.variables.Store(constants.AuthTokenKey, token)
	return token, nil
}

func (c *Connection) Invalidate(ctx context.Context) error {
	if err := rpc.Invalidate(c, ctx); err != nil {
		return err
	}

	c.variables.Delete(constants.AuthTokenKey)
	return nil
}

// Export streams the database export into w.
func (c *Connection) Export(ctx context.Context, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/export", http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/octet-stream")

	body, err := c.MakeRequest(req)
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// Import uploads the export read from r.
func (c *Connection) Import(ctx context.Context, r io.Reader) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/import", r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	_, err = c.MakeRequest(req)
	return err
}
