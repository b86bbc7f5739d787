package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gobuckaroo/infra/auth"
	"github.com/mstgnz/gobuckaroo/infra/response"
)

// TokenService issues and validates API tokens
type TokenService interface {
	ValidateToken(tokenString string) (*auth.JWTClaims, error)
	RefreshToken(tokenString string) (string, error)
}

// AuthHandler handles token related HTTP requests
type AuthHandler struct {
	jwtService TokenService
	validate   *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(jwtService TokenService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
		validate:   validate,
	}
}

// RefreshTokenRequest represents the refresh token request structure
type RefreshTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// RefreshToken exchanges a valid token for a fresh one
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	newToken, err := h.jwtService.RefreshToken(req.Token)
	if err != nil {
		writeTokenError(w, err)
		return
	}

	claims, err := h.jwtService.ValidateToken(newToken)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to refresh token", err)
		return
	}

	response.Success(w, http.StatusOK, "Token refreshed successfully", map[string]any{
		"token":      newToken,
		"tenant_id":  claims.TenantID,
		"expires_at": claims.ExpiresAt.Time,
	})
}

// ValidateToken reports the claims of the bearer token
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		response.Error(w, http.StatusBadRequest, "Authorization header required", nil)
		return
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		response.Error(w, http.StatusBadRequest, "Invalid authorization format. Use: Bearer <token>", nil)
		return
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		response.Error(w, http.StatusBadRequest, "JWT token required", nil)
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		writeTokenError(w, err)
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	response.Success(w, http.StatusOK, "Token is valid", map[string]any{
		"valid":       true,
		"tenant_id":   claims.TenantID,
		"expires_at":  expiresAt,
		"time_to_exp": time.Until(expiresAt).Round(time.Second).String(),
	})
}

func writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		response.Error(w, http.StatusUnauthorized, "Token has expired", nil)
	case errors.Is(err, auth.ErrInvalidToken):
		response.Error(w, http.StatusUnauthorized, "Invalid token", nil)
	case errors.Is(err, auth.ErrInvalidClaims):
		response.Error(w, http.StatusUnauthorized, "Invalid token claims", nil)
	case errors.Is(err, auth.ErrMissingTenant):
		response.Error(w, http.StatusUnauthorized, "Missing tenant information in token", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "Token validation failed", err)
	}
}
