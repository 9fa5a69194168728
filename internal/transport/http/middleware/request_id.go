package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"phpayroll/internal/requestctx"
)

const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller supplied ids before they reach logs and
// audit_events.
const maxRequestIDLen = 128

// RequestID propagates the caller's X-Request-ID or assigns a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(requestctx.WithRequestID(r.Context(), reqID)))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
