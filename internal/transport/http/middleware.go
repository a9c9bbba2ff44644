package http

import (
	"context"
	"net/http"
	"strings"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/domain"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticator resolves a bearer token to the caller's claims.
type Authenticator interface {
	Authenticate(token string) (app.Claims, error)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// requireAuth rejects requests without a valid bearer token.
func requireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := bearerToken(r)
			if !found {
				fail(w, http.StatusUnauthorized, "authentication required")
				return
			}
			claims, err := auth.Authenticate(token)
			if err != nil {
				fail(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireRole admits only the listed roles. It must run after requireAuth.
func requireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, found := claimsFrom(r.Context())
			if !found {
				fail(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			fail(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

func claimsFrom(ctx context.Context) (app.Claims, bool) {
	claims, found := ctx.Value(claimsKey).(app.Claims)
	return claims, found
}
