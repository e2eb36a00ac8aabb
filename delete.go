package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
	"github.com/surrealkit/surrealdb.go/pkg/router"
	"github.com/surrealkit/surrealdb.go/pkg/statement"
)

// Delete is a pending delete. Nothing is sent until Exec.
type Delete struct {
	db   *DB
	what any
	rng  *models.RecordRange
}

// Range narrows a table delete to the records of r. The range is
// applied when Exec runs.
func (d *Delete) Range(r models.RecordRange) *Delete {
	d.rng = &r
	return d
}

// Exec runs the delete.
func (d *Delete) Exec(ctx context.Context) error {
	what, err := d.target()
	if err != nil {
		return err
	}
	_, err = d.db.send(ctx, router.MethodDelete, what)
	return err
}

func (d *Delete) target() (any, error) {
	if d.rng == nil {
		return d.what, nil
	}
	if statement.IsThing(d.what) {
		return nil, fmt.Errorf("%w: can not narrow the delete of a single record to a range", constants.ErrInvalidParams)
	}

	var table string
	switch t := d.what.(type) {
	case models.Table:
		table = string(t)
	case string:
		table = t
	default:
		return nil, fmt.Errorf("%w: a range needs a table to narrow, got %T", constants.ErrInvalidParams, d.what)
	}
	if table != d.rng.Table {
		return nil, fmt.Errorf("%w: range on %s does not match table %s", constants.ErrInvalidParams, d.rng.Table, table)
	}
	return *d.rng, nil
}
