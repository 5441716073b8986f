// Package auth extracts the caller identity set by the platform gateway.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vadim/neo-dm/internal/httpx/response"
)

// HeaderUserID carries the authenticated user id
const HeaderUserID = "X-User-ID"

type ctxKey struct{}

// WithCaller returns a context carrying the caller id
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// CallerID returns the caller id stored by RequireCaller
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// RequireCaller rejects requests without a caller id with 401
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			response.Unauthorized(w, "missing "+HeaderUserID+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), userID)))
	})
}
