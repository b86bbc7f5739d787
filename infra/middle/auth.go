package middle

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mstgnz/gobuckaroo/infra/auth"
	"github.com/mstgnz/gobuckaroo/infra/config"
	"github.com/mstgnz/gobuckaroo/infra/response"
)

// TenantIDKey holds the authenticated tenant in the request context
const TenantIDKey config.CKey = "tenant_id"

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.JWTClaims, error)
}

// JWTAuthMiddleware requires a valid bearer token and stores its tenant in the context
func JWTAuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Error(w, http.StatusUnauthorized, "Authorization header required", nil)
				return
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				response.Error(w, http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <token>", nil)
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(tokenString))
			if err != nil {
				message := "Invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					message = "Token has expired"
				}
				response.Error(w, http.StatusUnauthorized, message, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenantID(r.Context(), claims.TenantID)))
		})
	}
}

// WithTenantID returns a context carrying the tenant
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetTenantIDFromContext returns the authenticated tenant or an empty string
func GetTenantIDFromContext(ctx context.Context) string {
	tenantID, _ := ctx.Value(TenantIDKey).(string)
	return tenantID
}
