package middleware

import (
	"context"
	"net/http"
	"strings"

	"logileet/internal/shared/jwt"
	"logileet/internal/shared/util"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the resolved actor for a request: who is calling and with
// which role. The same struct is produced for WebSocket handshakes.
type Identity struct {
	UserID string
	Role   string
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

type Auth struct {
	tokens *jwt.Manager
}

func NewAuth(tokens *jwt.Manager) *Auth {
	return &Auth{tokens: tokens}
}

// Authenticate verifies the bearer token and stores the actor identity in
// the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			util.WriteJSONError(w, "access token is required", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := a.tokens.Parse(tokenStr)
		if err != nil {
			util.WriteJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, Identity{
			UserID: claims.UserID,
			Role:   claims.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				util.WriteJSONError(w, "access token is required", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			util.WriteJSONError(w, "access denied. required roles: "+strings.Join(roles, ", "), http.StatusForbidden)
		})
	}
}
