package surrealdb

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/surrealkit/surrealdb.go/internal/codec"
	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/connection/embedded"
	"github.com/surrealkit/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealkit/surrealdb.go/pkg/connection/http"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/models"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

// DB is a client for one logical connection. It is safe for concurrent use;
// commands from all goroutines run one at a time in the order they were sent.
type DB struct {
	router *router.Router
	codec  codec.Codec
	logger logger.Logger
}

// Connect connects to the endpoint and returns a DB.
//
// The URL scheme selects the backend: "ws" and "wss" connect over
// WebSocket, "http" and "https" over HTTP, "mem" and "memory" start an
// in-memory embedded engine and "sqlite" an embedded engine storing its
// records in the SQLite file of the URL path.
func Connect(ctx context.Context, endpoint string) (*DB, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrConnection, err)
	}
	return FromConfig(ctx, connection.NewConfig(u))
}

// FromConfig connects with the backend cfg.URL's scheme selects.
func FromConfig(ctx context.Context, cfg *connection.Config) (*DB, error) {
	var (
		r   *router.Router
		err error
	)
	switch cfg.URL.Scheme {
	case constants.WebsocketScheme, constants.SecureWebsocketScheme:
		r, err = gorillaws.Connect(ctx, cfg)
	case constants.HTTPScheme, constants.HTTPSecureScheme:
		r, err = http.Connect(ctx, cfg)
	case constants.MemoryScheme, constants.MemoryAltScheme, constants.SQLiteScheme:
		r, err = embedded.Connect(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", constants.ErrUnsupportedScheme, cfg.URL.Scheme)
	}
	if err != nil {
		return nil, err
	}

	db := FromRouter(r, cfg.Logger)
	if cfg.Namespace != "" || cfg.Database != "" {
		if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
	}
	return db, nil
}

// FromRouter wraps a connected router, such as one returned by
// gorillaws.Connect, http.Connect or embedded.Connect.
func FromRouter(r *router.Router, l logger.Logger) *DB {
	if l == nil {
		l = logger.Discard
	}
	return &DB{
		router: r,
		codec:  models.CborCodec{},
		logger: l,
	}
}

// Close lets queued commands finish and closes the connection.
func (db *DB) Close(ctx context.Context) error {
	return db.router.Close(ctx)
}

// Send enqueues a raw command and waits for its response.
func Send(ctx context.Context, db *DB, method router.Method, values ...any) (router.DbResponse, error) {
	cmd, err := router.NewCommand(method, values...)
	if err != nil {
		return router.DbResponse{}, err
	}
	return db.router.Execute(ctx, cmd)
}

func (db *DB) send(ctx context.Context, method router.Method, values ...any) (any, error) {
	res, err := Send(ctx, db, method, values...)
	if err != nil {
		return nil, err
	}
	return res.Other, nil
}

// Use switches the namespace and database. An empty name leaves that
// part unchanged.
func (db *DB) Use(ctx context.Context, ns, database string) error {
	_, err := db.send(ctx, router.MethodUse, ns, database)
	return err
}

// Set stores a session variable that every later statement can read as $name.
func (db *DB) Set(ctx context.Context, name string, value any) error {
	_, err := db.send(ctx, router.MethodSet, name, value)
	return err
}

// Unset removes a session variable. Removing a missing variable is not an error.
func (db *DB) Unset(ctx context.Context, name string) error {
	_, err := db.send(ctx, router.MethodUnset, name)
	return err
}

// SignIn signs in with the credentials in auth and returns the session token.
func (db *DB) SignIn(ctx context.Context, auth any) (string, error) {
	return db.token(ctx, router.MethodSignin, auth)
}

// SignUp signs up a record user and returns the session token.
func (db *DB) SignUp(ctx context.Context, auth any) (string, error) {
	return db.token(ctx, router.MethodSignup, auth)
}

func (db *DB) token(ctx context.Context, method router.Method, auth any) (string, error) {
	v, err := db.send(ctx, method, auth)
	if err != nil {
		return "", err
	}
	token, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %T", constants.ErrDecode, method, v)
	}
	return token, nil
}

// Authenticate authenticates the connection with a token from SignIn or SignUp.
func (db *DB) Authenticate(ctx context.Context, token string) error {
	_, err := db.send(ctx, router.MethodAuthenticate, token)
	return err
}

// Invalidate drops the authentication of the connection.
func (db *DB) Invalidate(ctx context.Context) error {
	_, err := db.send(ctx, router.MethodInvalidate)
	return err
}

// Export writes an export of the current database to w.
func (db *DB) Export(ctx context.Context, w io.Writer) error {
	_, err := db.send(ctx, router.MethodExport, w)
	return err
}

// Import restores an export read from r into the current database.
func (db *DB) Import(ctx context.Context, r io.Reader) error {
	_, err := db.send(ctx, router.MethodImport, r)
	return err
}

// Reset removes every record of an embedded datastore and kills its live queries.
func (db *DB) Reset(ctx context.Context) error {
	_, err := db.send(ctx, router.MethodReset)
	return err
}

// Live starts a live query on table and returns its id. With diff set,
// notifications carry JSON Patch operations instead of whole records.
func (db *DB) Live(ctx context.Context, table models.Table, diff bool) (*models.UUID, error) {
	v, err := db.send(ctx, router.MethodLive, table, diff)
	if err != nil {
		return nil, err
	}
	id, ok := v.(models.UUID)
	if !ok {
		return nil, fmt.Errorf("%w: live returned %T", constants.ErrDecode, v)
	}
	return &id, nil
}

// Kill stops a live query and closes its notification channel.
func (db *DB) Kill(ctx context.Context, id models.UUID) error {
	_, err := db.send(ctx, router.MethodKill, id)
	return err
}

// LiveNotifications returns the notification channel of a live query.
func (db *DB) LiveNotifications(id models.UUID) (<-chan models.Notification, error) {
	ch, ok := db.router.Notifications(id)
	if !ok {
		return nil, fmt.Errorf("%w: no live query %s", constants.ErrInvalidParams, id.String())
	}
	return ch, nil
}

// Health returns a future reporting whether the server is healthy.
func (db *DB) Health() *Health {
	return &Health{db: db}
}

// Version returns a future reporting the server version.
func (db *DB) Version() *Version {
	return &Version{db: db}
}

// Delete returns a future deleting what, which is a table, a record id, a
// record range or a list of them.
func (db *DB) Delete(what any) *Delete {
	return &Delete{db: db, what: what}
}
