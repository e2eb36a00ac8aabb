package rpc

import (
	"context"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// Use scopes the session. An empty name is sent as NONE, which leaves
// that part of the scope as it is.
func Use(c connection.Sender, ctx context.Context, namespace, database string) error {
	return connection.Send[any](c, ctx, nil, connection.Use, orNone(namespace), orNone(database))
}

func orNone(s string) any {
	if s == "" {
		return models.None
	}
	return s
}
