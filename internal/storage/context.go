package storage

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout is the maximum time allowed for database queries.
	DefaultQueryTimeout = 5 * time.Second
)

// withQueryTimeout wraps the context with a query timeout if one isn't already set.
// A deadline set by the caller is respected.
func withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultQueryTimeout)
}
