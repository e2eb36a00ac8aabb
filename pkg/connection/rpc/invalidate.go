package rpc

import (
	"context"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
)

func Invalidate(c connection.Sender, ctx context.Context) error {
	return connection.Send[any](c, ctx, nil, connection.Invalidate)
}
