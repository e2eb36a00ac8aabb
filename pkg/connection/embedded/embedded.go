// Package embedded runs the engine in process, behind the same router the
// network backends use.
package embedded

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/surrealkit/surrealdb.go/internal/codec"
	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/engine"
	"github.com/surrealkit/surrealdb.go/pkg/engine/sqlitestore"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/models"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

// Connection is a session on a datastore it owns.
type Connection struct {
	ds      *engine.Datastore
	sess    *engine.Session
	codec   codec.Codec
	logger  logger.Logger
	version string
}

var (
	_ router.Backend      = (*Connection)(nil)
	_ router.Porter       = (*Connection)(nil)
	_ router.Resetter     = (*Connection)(nil)
	_ router.LiveNotifier = (*Connection)(nil)
)

// New returns a backend over ds scoped to the namespace and database of cfg.
func New(ds *engine.Datastore, cfg *connection.Config) *Connection {
	l := cfg.Logger
	if l == nil {
		l = logger.Discard
	}
	return &Connection{
		ds:      ds,
		sess:    engine.NewSession(cfg.Namespace, cfg.Database),
		codec:   models.CborCodec{},
		logger:  l,
		version: constants.VersionPrefix + engine.Version,
	}
}

// Open creates the datastore the scheme of cfg.URL names: "mem" and
// "memory" keep records in memory, "sqlite" stores them in the SQLite
// file of the URL path.
func Open(cfg *connection.Config) (*engine.Datastore, error) {
	opts := []engine.Option{}
	if cfg.Logger != nil {
		opts = append(opts, engine.WithLogger(cfg.Logger))
	}

	switch cfg.URL.Scheme {
	case constants.MemoryScheme, constants.MemoryAltScheme:
		return engine.NewMemory(opts...), nil
	case constants.SQLiteScheme:
		store, err := sqlitestore.Open(sqlitePath(&cfg.URL))
		if err != nil {
			return nil, err
		}
		return engine.New(store, opts...), nil
	}
	return nil, fmt.Errorf("%w: %q", constants.ErrUnsupportedScheme, cfg.URL.Scheme)
}

// sqlitePath extracts the database file from sqlite:data.db,
// sqlite://data.db or sqlite:///abs/data.db. No path means an in-memory database.
func sqlitePath(u *url.URL) string {
	path := u.Opaque
	if path == "" {
		path = u.Host + u.Path
	}
	if path == "" {
		return ":memory:"
	}
	return strings.TrimPrefix(path, "//")
}

// Connect opens the datastore cfg.URL names and starts a router over it.
func Connect(ctx context.Context, cfg *connection.Config) (*router.Router, error) {
	ds, err := Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrConnection, err)
	}
	return router.Connect(ctx, New(ds, cfg), cfg.RouterConfig())
}

func (c *Connection) Connect(ctx context.Context) error {
	return ctx.Err()
}

// Use switches the session in place. Data of every namespace and
// database stays where it is.
func (c *Connection) Use(_ context.Context, namespace, database string) error {
	if namespace != "" {
		c.sess.NS = namespace
	}
	if database != "" {
		c.sess.DB = database
	}
	return nil
}

func (c *Connection) Execute(ctx context.Context, text string, vars map[string]any) ([]router.Result, error) {
	// Bound values are rebuilt through the codec so structs reach the engine as objects.
	native := map[string]any{}
	if len(vars) > 0 {
		if err := codec.Convert(c.codec, vars, &native); err != nil {
			return nil, fmt.Errorf("%w: %w", constants.ErrInvalidParams, err)
		}
	}

	responses, err := c.ds.Execute(ctx, text, c.sess, native, false)
	if err != nil {
		return nil, err
	}

	results := make([]router.Result, len(responses))
	for i, res := range responses {
		results[i] = router.Result{Value: res.Result, Err: res.Err}
	}
	return results, nil
}

// Health succeeds while the datastore is open.
func (c *Connection) Health(ctx context.Context) error {
	_, err := c.ds.Execute(ctx, "", c.sess, nil, true)
	return err
}

func (c *Connection) Version(context.Context) (string, error) {
	return c.version, nil
}

func (c *Connection) Export(ctx context.Context, w io.Writer) error {
	return c.ds.Export(ctx, c.sess, w)
}

func (c *Connection) Import(ctx context.Context, r io.Reader) error {
	return c.ds.Import(ctx, c.sess, r)
}

func (c *Connection) Reset(ctx context.Context) error {
	c.logger.Warn("resetting embedded datastore")
	return c.ds.Reset(ctx)
}

func (c *Connection) SetNotificationHandler(handler func(models.Notification)) {
	c.sess.Notify = handler
}

func (c *Connection) Close(context.Context) error {
	c.ds.EndSession(c.sess)
	return c.ds.Close()
}
