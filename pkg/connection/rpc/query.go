package rpc

import (
	"context"
	"fmt"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

// Query runs text with vars bound and returns one result per statement.
func Query(c connection.Sender, ctx context.Context, text string, vars map[string]any) ([]router.Result, error) {
	var res connection.RPCResponse[[]connection.QueryResult]
	if err := connection.Send(c, ctx, &res, connection.Query, text, vars); err != nil {
		return nil, err
	}
	if res.Result == nil {
		return nil, fmt.Errorf("%w: query reply has no result", constants.InvalidResponse)
	}

	return connection.ToResults(*res.Result), nil
}
