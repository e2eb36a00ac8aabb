package rpc

import (
	"context"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
)

func Authenticate(c connection.Sender, ctx context.Context, token string) error {
	return connection.Send[any](c, ctx, nil, connection.Authenticate, token)
}
