package handler

import (
	"net/http"

	"github.com/mstgnz/gobuckaroo/infra/middle"
	"github.com/mstgnz/gobuckaroo/infra/response"
)

// TenantRateLimitHandler reports rate limit budgets
type TenantRateLimitHandler struct {
	rateLimiter *middle.RateLimiter
}

// NewTenantRateLimitHandler creates a new tenant rate limit handler
func NewTenantRateLimitHandler(rateLimiter *middle.RateLimiter) *TenantRateLimitHandler {
	return &TenantRateLimitHandler{
		rateLimiter: rateLimiter,
	}
}

// GetTenantStats returns the remaining budget per action for the authenticated tenant
func (h *TenantRateLimitHandler) GetTenantStats(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	response.Success(w, http.StatusOK, "Tenant rate limiting statistics retrieved", map[string]any{
		"tenantId": tenantID,
		"actions":  h.rateLimiter.Stats(middle.TenantKey(tenantID)),
	})
}
