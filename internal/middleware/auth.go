package middleware

import (
	"context"
	"net/http"
	"strings"

	"kitstock-api/internal/service"
	"kitstock-api/pkg/apierror"
)

// ClaimsKey is the context key for verified token claims.
const ClaimsKey contextKey = "claims"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*service.Claims, error)
}

// NewAuthMiddleware creates a bearer-token middleware. Requests without a
// valid Authorization: Bearer token are rejected with 401.
func NewAuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use Authorization: Bearer <token>."))
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				writeError(w, apierror.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_, _ = w.Write(err.ToJSON())
}

// GetClaims retrieves verified token claims from request context.
func GetClaims(ctx context.Context) *service.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*service.Claims); ok {
		return claims
	}
	return nil
}
