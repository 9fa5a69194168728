package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"phpayroll/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, role, permission string) (bool, error)
}

// Can reports whether the authenticated caller holds permission. Anonymous
// callers and lookup failures are treated as denied.
func Can(ctx context.Context, store PermissionStore, permission string) bool {
	user, ok := GetUser(ctx)
	if !ok || store == nil {
		return false
	}
	allowed, err := store.HasPermission(ctx, user.Role, permission)
	if err != nil {
		slog.WarnContext(ctx, "permission check failed", "permission", permission, "role", user.Role, "err", err)
		return false
	}
	return allowed
}

// RequirePermission answers 401 for anonymous callers and 403 for callers
// whose role lacks permission.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())
			if _, ok := GetUser(r.Context()); !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
				return
			}
			if !Can(r.Context(), store, permission) {
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", requestID)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
