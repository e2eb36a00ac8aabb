package router

import (
	"fmt"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// intoValues turns one statement's raw outcome into a list.
// Arrays are returned as is, NONE and NULL become an empty list and any
// other value becomes a one element list.
func intoValues(res Result) ([]any, error) {
	if res.Err != nil {
		return nil, asQueryError(res.Err)
	}
	switch v := res.Value.(type) {
	case []any:
		return v, nil
	case nil, models.CustomNil, *models.CustomNil:
		return []any{}, nil
	}
	return []any{res.Value}, nil
}

// take extracts the caller's value from the last statement of results.
// With one set it returns models.None for an empty result, the element
// itself for a single result and ErrTooManyResults otherwise. Without one
// it always returns a []any.
func take(one bool, results []Result) (any, error) {
	var last Result
	if len(results) > 0 {
		last = results[len(results)-1]
	}

	values, err := intoValues(last)
	if err != nil {
		return nil, err
	}

	if !one {
		return values, nil
	}
	switch len(values) {
	case 0:
		return models.None, nil
	case 1:
		return values[0], nil
	}
	return nil, fmt.Errorf("%w: got %d", constants.ErrTooManyResults, len(values))
}

// queryResults extracts every statement of a batch independently.
func queryResults(results []Result) []QueryResult {
	out := make([]QueryResult, len(results))
	for i, res := range results {
		values, err := intoValues(res)
		out[i] = QueryResult{Values: values, Err: err}
		if err == nil {
			out[i].Result = res.Value
		}
	}
	return out
}
