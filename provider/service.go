package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/gobuckaroo/infra/logger"
)

var (
	// ErrProviderNotConfigured is returned when a tenant has no configuration for a provider
	ErrProviderNotConfigured = errors.New("provider is not configured for tenant")
	// ErrOperationNotSupported is returned when a provider does not implement an optional operation
	ErrOperationNotSupported = errors.New("operation not supported by provider")
)

const (
	defaultCacheSize = 1000
	defaultCacheTTL  = time.Hour
)

// ConfigSource supplies tenant configuration for a provider
type ConfigSource interface {
	GetTenantConfig(tenantID, providerName string) (map[string]string, error)
}

// PaymentService routes payment operations to initialized per-tenant providers
type PaymentService struct {
	registry  *ProviderRegistry
	configs   ConfigSource
	cache     *ProviderCache
	exchanges ExchangeLogger
	now       func() time.Time
}

// ServiceOption configures a PaymentService
type ServiceOption func(*PaymentService)

// WithProviderCache replaces the default provider cache
func WithProviderCache(cache *ProviderCache) ServiceOption {
	return func(s *PaymentService) { s.cache = cache }
}

// WithExchangeLogger records every gateway exchange
func WithExchangeLogger(l ExchangeLogger) ServiceOption {
	return func(s *PaymentService) { s.exchanges = l }
}

// NewPaymentService creates a payment service. A nil registry uses DefaultRegistry.
func NewPaymentService(registry *ProviderRegistry, configs ConfigSource, opts ...ServiceOption) *PaymentService {
	if registry == nil {
		registry = DefaultRegistry
	}
	s := &PaymentService{
		registry: registry,
		configs:  configs,
		cache:    NewProviderCache(defaultCacheSize, defaultCacheTTL),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetProvider returns the initialized provider of a tenant, creating it on first use
func (s *PaymentService) GetProvider(tenantID, providerName string) (PaymentProvider, error) {
	if tenantID == "" {
		return nil, errors.New("tenant ID is required")
	}

	if p := s.cache.Get(tenantID, providerName); p != nil {
		return p, nil
	}

	p, err := s.registry.CreateProvider(providerName)
	if err != nil {
		return nil, err
	}

	conf, err := s.configs.GetTenantConfig(tenantID, providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrProviderNotConfigured, tenantID, providerName, err)
	}

	if err := p.Initialize(conf); err != nil {
		return nil, fmt.Errorf("failed to initialize %s for tenant %s: %w", providerName, tenantID, err)
	}

	s.cache.Set(tenantID, providerName, p)
	logger.Info("Provider initialized", logger.LogContext{TenantID: tenantID, Provider: providerName})

	return p, nil
}

// InvalidateProvider drops a cached provider so the next call picks up new configuration
func (s *PaymentService) InvalidateProvider(tenantID, providerName string) {
	s.cache.Delete(tenantID, providerName)
}

// CacheStats reports provider cache usage
func (s *PaymentService) CacheStats() CacheStats {
	return s.cache.Stats()
}

// CreatePayment submits a payment through the tenant's provider
func (s *PaymentService) CreatePayment(ctx context.Context, tenantID, providerName string, request PaymentRequest) (*PaymentResponse, error) {
	p, err := s.GetProvider(tenantID, providerName)
	if err != nil {
		return nil, err
	}

	request.TenantID = tenantID
	start := s.now()
	resp, err := p.CreatePayment(ctx, request)

	exchange := Exchange{
		TenantID:      tenantID,
		Provider:      providerName,
		Operation:     string(request.Method),
		InvoiceNumber: request.InvoiceNumber,
	}
	if resp != nil {
		exchange.fromPayment(resp)
	}
	s.record(ctx, start, exchange, err)

	return resp, err
}

// GetPaymentStatus reports the paid state of an invoice
func (s *PaymentService) GetPaymentStatus(ctx context.Context, tenantID, providerName string, request GetPaymentStatusRequest) (*StatusResponse, error) {
	p, err := s.GetProvider(tenantID, providerName)
	if err != nil {
		return nil, err
	}

	start := s.now()
	resp, err := p.GetPaymentStatus(ctx, request)

	exchange := Exchange{
		TenantID:      tenantID,
		Provider:      providerName,
		Operation:     "status",
		InvoiceNumber: request.InvoiceNumber,
	}
	if resp != nil {
		exchange.fromPayment(&resp.PaymentResponse)
	}
	s.record(ctx, start, exchange, err)

	return resp, err
}

// ValidateWebhook verifies and classifies a push notification for a tenant
func (s *PaymentService) ValidateWebhook(ctx context.Context, tenantID, providerName string, data, headers map[string]string) (*WebhookResult, error) {
	p, err := s.GetProvider(tenantID, providerName)
	if err != nil {
		return nil, err
	}

	start := s.now()
	result, err := p.ValidateWebhook(ctx, data, headers)

	exchange := Exchange{
		TenantID:  tenantID,
		Provider:  providerName,
		Operation: "push",
	}
	if result != nil {
		exchange.InvoiceNumber = result.InvoiceNumber
		exchange.StatusCode = result.StatusCode
		exchange.Status = result.Status
		exchange.Valid = result.Valid
		exchange.Success = result.Valid && result.Status == StatusSuccessful
		exchange.Response = encodeFields(result.Fields)
	}
	s.record(ctx, start, exchange, err)

	return result, err
}

// ConvertToIBAN converts a domestic account number
func (s *PaymentService) ConvertToIBAN(ctx context.Context, tenantID, providerName string, request IBANRequest) (*IBANResponse, error) {
	resolver, err := s.ibanResolver(tenantID, providerName)
	if err != nil {
		return nil, err
	}

	start := s.now()
	resp, err := resolver.ConvertToIBAN(ctx, request)

	exchange := Exchange{TenantID: tenantID, Provider: providerName, Operation: "iban"}
	if resp != nil {
		exchange.Valid = resp.Valid
		exchange.Success = resp.Success
		if resp.Error != "" {
			exchange.Error = resp.Error
		}
	}
	s.record(ctx, start, exchange, err)

	return resp, err
}

// BICForIBAN resolves the BIC of an IBAN
func (s *PaymentService) BICForIBAN(ctx context.Context, tenantID, providerName, iban, countryISOCode string) (string, error) {
	resolver, err := s.ibanResolver(tenantID, providerName)
	if err != nil {
		return "", err
	}

	start := s.now()
	bic, err := resolver.BICForIBAN(ctx, iban, countryISOCode)
	s.record(ctx, start, Exchange{
		TenantID:  tenantID,
		Provider:  providerName,
		Operation: "bic",
		Success:   err == nil,
		Valid:     err == nil,
	}, err)

	return bic, err
}

func (s *PaymentService) ibanResolver(tenantID, providerName string) (IBANResolver, error) {
	p, err := s.GetProvider(tenantID, providerName)
	if err != nil {
		return nil, err
	}
	resolver, ok := p.(IBANResolver)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot convert IBANs", ErrOperationNotSupported, providerName)
	}
	return resolver, nil
}

func (e *Exchange) fromPayment(resp *PaymentResponse) {
	if resp.InvoiceNumber != "" {
		e.InvoiceNumber = resp.InvoiceNumber
	}
	if resp.Operation != "" {
		e.Operation = resp.Operation
	}
	e.StatusCode = resp.StatusCode
	e.Status = resp.Status
	e.Valid = resp.Valid
	e.Success = resp.Success
	e.Request = resp.PostData
	e.Response = resp.ResponseData
}

// encodeFields renders push fields as a sorted form body for the exchange log
func encodeFields(fields map[string]string) string {
	values := make(url.Values, len(fields))
	for k, v := range fields {
		values.Set(k, v)
	}
	return values.Encode()
}

// record logs the outcome of a gateway call and hands it to the exchange logger
func (s *PaymentService) record(ctx context.Context, start time.Time, exchange Exchange, err error) {
	exchange.Timestamp = start.UTC()
	exchange.ProcessingMs = s.now().Sub(start).Milliseconds()
	if exchange.RequestID == "" {
		exchange.RequestID = uuid.New().String()
	}
	if err != nil && exchange.Error == "" {
		exchange.Error = err.Error()
	}

	logCtx := logger.LogContext{
		TenantID:  exchange.TenantID,
		Provider:  exchange.Provider,
		RequestID: exchange.RequestID,
		Fields: map[string]any{
			"operation":      exchange.Operation,
			"invoice_number": exchange.InvoiceNumber,
			"status_code":    exchange.StatusCode,
			"valid":          exchange.Valid,
			"processing_ms":  exchange.ProcessingMs,
		},
	}
	if err != nil {
		logger.Warn("Gateway call failed: "+err.Error(), logCtx)
	} else {
		logger.Info("Gateway call completed", logCtx)
	}

	if s.exchanges == nil {
		return
	}
	if logErr := s.exchanges.LogExchange(ctx, exchange); logErr != nil {
		logger.Warn("Failed to log gateway exchange", logger.LogContext{
			TenantID:  exchange.TenantID,
			Provider:  exchange.Provider,
			RequestID: exchange.RequestID,
			Fields:    map[string]any{"error": logErr.Error()},
		})
	}
}
