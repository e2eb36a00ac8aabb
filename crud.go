package surrealdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/surrealkit/surrealdb.go/internal/codec"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

// Create creates what with data. A table target gets a record with a
// generated id; a record id target fails if the record already exists.
func Create[TResult any](ctx context.Context, db *DB, what, data any) (*TResult, error) {
	return write[TResult](ctx, db, router.MethodCreate, what, data)
}

// Select reads what.
func Select[TResult any](ctx context.Context, db *DB, what any) (*TResult, error) {
	return write[TResult](ctx, db, router.MethodSelect, what)
}

// Update replaces the content of what with data. A missing record is created.
func Update[TResult any](ctx context.Context, db *DB, what, data any) (*TResult, error) {
	if data == nil {
		return write[TResult](ctx, db, router.MethodUpdate, what)
	}
	return write[TResult](ctx, db, router.MethodUpdate, what, data)
}

// Merge merges data into the content of what.
func Merge[TResult any](ctx context.Context, db *DB, what, data any) (*TResult, error) {
	return write[TResult](ctx, db, router.MethodMerge, what, data)
}

// Patch applies JSON Patch operations to what and returns the operations
// that were applied.
func Patch(ctx context.Context, db *DB, what any, patches []PatchData) (*[]PatchData, error) {
	return write[[]PatchData](ctx, db, router.MethodPatch, what, patches)
}

func write[TResult any](ctx context.Context, db *DB, method router.Method, values ...any) (*TResult, error) {
	v, err := db.send(ctx, method, values...)
	if err != nil {
		return nil, err
	}
	return decode[TResult](db.codec, v)
}

// decode converts a loosely typed router value into TResult. NONE and
// NULL decode to a nil pointer.
func decode[TResult any](c codec.Codec, v any) (*TResult, error) {
	if models.IsNone(v) {
		return nil, nil
	}
	var res TResult
	if err := codec.Convert(c, v, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrDecode, err)
	}
	return &res, nil
}

// Query runs a batch of SurrealQL statements. Each statement reports its
// own status; a failed statement leaves the others untouched. The returned
// error joins the errors of every failed statement, so results are
// returned alongside it.
func Query[TResult any](ctx context.Context, db *DB, sql string, vars map[string]any) (*[]QueryResult[TResult], error) {
	values := []any{sql}
	if vars != nil {
		values = append(values, vars)
	}
	resp, err := Send(ctx, db, router.MethodQuery, values...)
	if err != nil {
		return nil, err
	}

	results := make([]QueryResult[TResult], len(resp.Query))
	var errs []error
	for i, qr := range resp.Query {
		if qr.Err != nil {
			results[i] = QueryResult[TResult]{Status: StatusError, Error: qr.Err}
			errs = append(errs, fmt.Errorf("statement %d: %w", i, qr.Err))
			continue
		}
		results[i].Status = StatusOK
		if models.IsNone(qr.Result) {
			continue
		}
		if err := codec.Convert(db.codec, qr.Result, &results[i].Result); err != nil {
			err = fmt.Errorf("%w: %w", constants.ErrDecode, err)
			results[i] = QueryResult[TResult]{Status: StatusError, Error: err}
			errs = append(errs, fmt.Errorf("statement %d: %w", i, err))
		}
	}
	return &results, errors.Join(errs...)
}
