package rpc

import (
	"context"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
)

func Version(c connection.Sender, ctx context.Context) (string, error) {
	var v connection.RPCResponse[string]
	if err := connection.Send(c, ctx, &v, connection.Version); err != nil {
		return "", err
	}
	if v.Result == nil {
		return "", constants.InvalidResponse
	}

	return *v.Result, nil
}

func Ping(c connection.Sender, ctx context.Context) error {
	return connection.Send[any](c, ctx, nil, connection.Ping)
}
