package router

import (
	"context"
	"io"

	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// Backend executes statements for a router. The router calls it from a
// single goroutine, so implementations need no locking for its sake.
type Backend interface {
	// Connect performs the handshake, and for network backends a health probe.
	Connect(ctx context.Context) error
	// Use scopes subsequent statements to the namespace and database.
	// An empty name leaves that part of the scope unchanged.
	Use(ctx context.Context, ns, db string) error
	// Execute runs text with vars bound and returns one Result per statement.
	// The error is reserved for transport failures.
	Execute(ctx context.Context, text string, vars map[string]any) ([]Result, error)
	Health(ctx context.Context) error
	// Version returns the raw version string, such as "surrealdb-2.1.0".
	Version(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// Authenticator is implemented by backends that manage a session token.
type Authenticator interface {
	SignIn(ctx context.Context, auth any) (string, error)
	SignUp(ctx context.Context, auth any) (string, error)
	Authenticate(ctx context.Context, token string) error
	Invalidate(ctx context.Context) error
}

// Porter is implemented by backends that can dump and restore a database.
type Porter interface {
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader) error
}

// Resetter is implemented by backends that can wipe all of their data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// LiveNotifier is implemented by backends that deliver live query
// notifications. The handler may be called from any goroutine.
type LiveNotifier interface {
	SetNotificationHandler(handler func(models.Notification))
}
