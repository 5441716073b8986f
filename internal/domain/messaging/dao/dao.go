// Package dao contains storage implementations for conversations, messages
// and the user directory: PostgreSQL for production and in-memory stores for
// local development without a database.
package dao

import (
	"context"
	"time"
)

// withTimeout bounds a single storage call. A non-positive timeout leaves the
// context untouched.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
