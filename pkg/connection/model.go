package connection

import (
	"fmt"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

// RPCError represents a JSON-RPC error
type RPCError struct {
	Code        int    `json:"code"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
}

func (r *RPCError) Error() string {
	if r.Description != "" {
		return r.Description
	}
	return r.Message
}

// Is reports whether target is another RPCError or constants.ErrQuery.
func (r *RPCError) Is(target error) bool {
	if target == nil {
		return r == nil
	}
	if target == constants.ErrQuery {
		return true
	}

	_, ok := target.(*RPCError)
	return ok
}

// RPCRequest represents an outgoing JSON-RPC request
type RPCRequest struct {
	ID     any    `json:"id"`
	Method string `json:"method,omitempty"`
	Params []any  `json:"params,omitempty"`
}

// RPCResponse represents an incoming JSON-RPC response
type RPCResponse[T any] struct {
	// ID is the ID of the request this response corresponds to.
	// Live query notifications carry no ID.
	ID     any       `json:"id"`
	Error  *RPCError `json:"error,omitempty"`
	Result *T        `json:"result,omitempty"`
}

// QueryResult is one statement's entry in the reply to a "query" call.
type QueryResult struct {
	Status string `json:"status"`
	Time   string `json:"time,omitempty"`
	Result any    `json:"result"`
}

// StatusOK marks a statement that succeeded.
const StatusOK = "OK"

// ToResults converts a "query" reply into router results. A failed
// statement carries its message as the result.
func ToResults(results []QueryResult) []router.Result {
	out := make([]router.Result, len(results))
	for i, res := range results {
		if res.Status == StatusOK {
			out[i] = router.Result{Value: res.Result}
			continue
		}
		out[i] = router.Result{Err: &router.QueryError{Message: fmt.Sprint(res.Result)}}
	}
	return out
}

type RPCFunction string

var (
	Use          RPCFunction = "use"
	Ping         RPCFunction = "ping"
	Version      RPCFunction = "version"
	SignUp       RPCFunction = "signup"
	SignIn       RPCFunction = "signin"
	Authenticate RPCFunction = "authenticate"
	Invalidate   RPCFunction = "invalidate"
	Query        RPCFunction = "query"
)
