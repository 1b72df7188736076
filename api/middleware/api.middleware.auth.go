// FilePath: api/middleware/api.middleware.auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/hubservice"
	"github.com/avisproject/avis-hub/internal/tokens"
	"github.com/redis/go-redis/v9"
)

// AuthMiddleware authenticates requests against the redis token store.
type AuthMiddleware struct {
	tokens *tokens.Store
}

func NewAuthMiddleware(tokenStore *tokens.Store) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokenStore}
}

// Authenticate validates the bearer token and adds the account id to the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}

		accountID, err := m.tokens.Validate(r.Context(), token)
		if err != nil {
			if err == redis.Nil {
				handleError(w, errors.NewAuthError("invalid token", nil))
				return
			}
			handleError(w, errors.NewInternalError("token validation failed", err))
			return
		}

		ctx := context.WithValue(r.Context(), hubservice.AccountIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Helper functions

func extractToken(r *http.Request) string {
	bearerToken := r.Header.Get("Authorization")
	if len(strings.Split(bearerToken, " ")) == 2 {
		return strings.Split(bearerToken, " ")[1]
	}
	return ""
}

func handleError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		http.Error(w, apiErr.Message, apiErr.Code)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
