package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gobuckaroo/infra/config"
	"github.com/mstgnz/gobuckaroo/infra/logger"
	"github.com/mstgnz/gobuckaroo/infra/response"
	"github.com/mstgnz/gobuckaroo/provider"
)

// TenantConfigStore persists per-tenant gateway credentials
type TenantConfigStore interface {
	SetTenantConfig(tenantID, providerName string, conf map[string]string) error
	GetTenantConfig(tenantID, providerName string) (map[string]string, error)
	DeleteTenantConfig(tenantID, providerName string) error
	GetStats() map[string]any
}

// ProviderInvalidator drops initialized providers after their configuration changes
type ProviderInvalidator interface {
	InvalidateProvider(tenantID, providerName string)
	CacheStats() provider.CacheStats
}

// ConfigHandler handles configuration related HTTP requests
type ConfigHandler struct {
	store    TenantConfigStore
	registry *provider.ProviderRegistry
	service  ProviderInvalidator
}

// NewConfigHandler creates a new config handler. A nil registry uses provider.DefaultRegistry.
func NewConfigHandler(store TenantConfigStore, registry *provider.ProviderRegistry, service ProviderInvalidator) *ConfigHandler {
	if registry == nil {
		registry = provider.DefaultRegistry
	}
	return &ConfigHandler{
		store:    store,
		registry: registry,
		service:  service,
	}
}

// GetRequiredFields lists the configuration fields a provider expects
func (h *ConfigHandler) GetRequiredFields(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	p, err := h.registry.CreateProvider(providerName)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	environment := r.URL.Query().Get("environment")
	if environment != "production" {
		environment = "test"
	}

	response.Success(w, http.StatusOK, "Configuration fields retrieved", map[string]any{
		"provider":    strings.ToLower(providerName),
		"environment": environment,
		"fields":      p.GetRequiredConfig(environment),
	})
}

// SetTenantConfig validates and stores the caller's configuration for a provider
func (h *ConfigHandler) SetTenantConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	providerName := strings.ToLower(chi.URLParam(r, "provider"))

	p, err := h.registry.CreateProvider(providerName)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	var conf map[string]string
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := p.ValidateConfig(conf); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid configuration", err)
		return
	}

	if err := h.store.SetTenantConfig(tenantID, providerName, conf); err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to save configuration", err)
		return
	}
	h.service.InvalidateProvider(tenantID, providerName)

	logger.WithTenantAndProvider(tenantID, providerName).Info("Tenant configuration updated")

	response.Success(w, http.StatusOK, "Configuration updated", map[string]any{
		"tenantId": tenantID,
		"provider": providerName,
		"config":   maskConfig(conf),
	})
}

// GetTenantConfig returns the caller's configuration with secrets masked
func (h *ConfigHandler) GetTenantConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	providerName := strings.ToLower(chi.URLParam(r, "provider"))

	conf, err := h.store.GetTenantConfig(tenantID, providerName)
	if err != nil {
		writeConfigError(w, "Configuration not found", err)
		return
	}

	response.Success(w, http.StatusOK, "Configuration retrieved", map[string]any{
		"tenantId": tenantID,
		"provider": providerName,
		"config":   maskConfig(conf),
	})
}

// DeleteTenantConfig deletes the caller's configuration for a provider
func (h *ConfigHandler) DeleteTenantConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	providerName := strings.ToLower(chi.URLParam(r, "provider"))

	if err := h.store.DeleteTenantConfig(tenantID, providerName); err != nil {
		writeConfigError(w, "Failed to delete configuration", err)
		return
	}
	h.service.InvalidateProvider(tenantID, providerName)

	logger.WithTenantAndProvider(tenantID, providerName).Info("Tenant configuration deleted")

	response.Success(w, http.StatusOK, "Configuration deleted", map[string]any{
		"tenantId": tenantID,
		"provider": providerName,
	})
}

// GetStats returns configuration and provider cache statistics
func (h *ConfigHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.store.GetStats()
	stats["provider_cache"] = h.service.CacheStats()
	stats["providers"] = h.registry.GetProviderNames()

	response.Success(w, http.StatusOK, "Statistics retrieved", stats)
}

func writeConfigError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, config.ErrConfigNotFound) {
		response.Error(w, http.StatusNotFound, message, err)
		return
	}
	response.Error(w, http.StatusInternalServerError, message, err)
}

// maskConfig hides credential values, keeping the first and last four characters of long ones
func maskConfig(conf map[string]string) map[string]string {
	masked := make(map[string]string, len(conf))
	for key, value := range conf {
		lower := strings.ToLower(key)
		if !strings.Contains(lower, "key") && !strings.Contains(lower, "secret") && !strings.Contains(lower, "password") {
			masked[key] = value
			continue
		}
		if len(value) > 8 {
			masked[key] = value[:4] + "****" + value[len(value)-4:]
		} else {
			masked[key] = "****"
		}
	}
	return masked
}
