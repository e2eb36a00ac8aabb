package router

import (
	"errors"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
)

// Command is the unit placed on the queue. Its only identity is its queue position.
type Command struct {
	Method Method
	Param  Param
}

// NewCommand validates values and builds a Command.
func NewCommand(method Method, values ...any) (Command, error) {
	p, err := NewParam(method, values...)
	if err != nil {
		return Command{}, err
	}
	return Command{Method: method, Param: p}, nil
}

// DbResponse is the result of one command. Query is set for MethodQuery,
// Other for every other method.
type DbResponse struct {
	Other any
	Query []QueryResult
}

// QueryResult is the outcome of one statement of a batch. Values is the
// statement's output as a list; Result keeps the value exactly as the
// database returned it, so a RETURN of an unset variable is models.None.
type QueryResult struct {
	Values []any
	Result any
	Err    error
}

// Result is the raw outcome of one statement as a backend reports it.
type Result struct {
	Value any
	Err   error
}

// QueryError is a statement failure reported by the database.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Is(target error) bool {
	return target == constants.ErrQuery
}

func asQueryError(err error) *QueryError {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	return &QueryError{Message: err.Error()}
}

// response travels on a command's one-shot channel.
type response struct {
	resp DbResponse
	err  error
}

// Pending is the receiving half of an enqueued command.
type Pending struct {
	ID     uint64
	Method Method
	ch     chan response
}
