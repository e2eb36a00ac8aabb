package surrealdb

import (
	"context"

	"github.com/surrealkit/surrealdb.go/pkg/router"
)

// Health is a pending health check.
type Health struct {
	db *DB
}

// Exec returns nil when the server is healthy.
func (h *Health) Exec(ctx context.Context) error {
	_, err := h.db.send(ctx, router.MethodHealth)
	return err
}
