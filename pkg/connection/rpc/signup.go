package rpc

import (
	"context"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
)

func SignUp(c connection.Sender, ctx context.Context, authData any) (string, error) {
	var token connection.RPCResponse[string]
	if err := connection.Send(c, ctx, &token, connection.SignUp, authData); err != nil {
		return "", err
	}
	if token.Result == nil {
		return "", constants.InvalidResponse
	}

	return *token.Result, nil
}
