package web

import (
	"net/http"

	"github.com/JonMunkholm/watchlist/internal/core"
)

// requestMetadata adds the client IP and User-Agent to the request context
// for audit logging. It runs after TrustedRealIP so the IP is the real one.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithRequestMeta(r.Context(), core.RequestMeta{
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
