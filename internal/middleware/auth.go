package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

// IdentityVerifier is the interface that wraps identity token validation
type IdentityVerifier interface {
	// Method Verify validates an identity token and returns the identity it carries.
	//
	// If the token is malformed, expired or signed with another key, an error is returned together with "nil" value.
	Verify(token string) (*models.Identity, error)
}

// AuthMiddleware validates the identity token and puts the identity into the request context.
//
// The token is read from the "Authorization: Bearer" header, then from the "id_token" cookie.
func AuthMiddleware(verifier IdentityVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.Fields(authHeader)
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					token = parts[1]
				}
			}
			if token == "" {
				if cookie, err := r.Cookie("id_token"); err == nil {
					token = cookie.Value
				}
			}

			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("identity token rejected",
					zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying the identity
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the authenticated identity from context
func GetIdentity(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}
