package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// UserRateLimitMiddleware limits requests per authenticated user, falling back to the client IP
func UserRateLimitMiddleware(requestLimit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requestLimit, window,
		httprate.WithKeyFuncs(keyByUser),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
		}),
	)
}

func keyByUser(r *http.Request) (string, error) {
	if identity, ok := GetIdentity(r.Context()); ok {
		return "user:" + identity.UserID, nil
	}
	return httprate.KeyByIP(r)
}
