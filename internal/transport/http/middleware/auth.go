package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"phpayroll/internal/domain/auth"
	"phpayroll/internal/requestctx"
)

type userKey struct{}

// Auth verifies HS256 bearer tokens issued by the identity provider and
// attaches the caller. Requests without a valid token continue anonymously;
// RequirePermission rejects them on protected routes.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := auth.ParseToken(secret, raw)
			if err != nil {
				requestctx.Logger(r.Context(), slog.Default()).Debug("bearer token rejected", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.User())))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(userKey{}).(auth.UserContext)
	return user, ok
}
