package provider

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticConfigs is a ConfigSource keyed by tenant
type staticConfigs map[string]map[string]string

func (s staticConfigs) GetTenantConfig(tenantID, providerName string) (map[string]string, error) {
	conf, ok := s[tenantID]
	if !ok {
		return nil, errors.New("no config")
	}
	return conf, nil
}

type recordingExchangeLogger struct {
	mu        sync.Mutex
	exchanges []Exchange
	err       error
}

func (r *recordingExchangeLogger) LogExchange(ctx context.Context, exchange Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchanges = append(r.exchanges, exchange)
	return r.err
}

func (r *recordingExchangeLogger) last(t *testing.T) Exchange {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.exchanges)
	return r.exchanges[len(r.exchanges)-1]
}

type serviceFixture struct {
	service   *PaymentService
	exchanges *recordingExchangeLogger
	provider  PaymentProvider
	created   int
}

// newServiceFixture wires a service whose registry always hands out p
func newServiceFixture(t *testing.T, p PaymentProvider) *serviceFixture {
	t.Helper()

	f := &serviceFixture{exchanges: &recordingExchangeLogger{}, provider: p}

	registry := NewProviderRegistry()
	registry.Register("buckaroo", func() PaymentProvider {
		f.created++
		return f.provider
	})

	configs := staticConfigs{"APP1": {"apiKey": "key"}}
	f.service = NewPaymentService(registry, configs,
		WithExchangeLogger(f.exchanges),
		WithProviderCache(NewProviderCache(10, time.Hour)),
	)

	ticks := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time {
		ticks = ticks.Add(15 * time.Millisecond)
		return ticks
	}

	return f
}

func TestPaymentService_GetProviderCachesInitializedProvider(t *testing.T) {
	mock := &mockProvider{}
	f := newServiceFixture(t, mock)

	first, err := f.service.GetProvider("APP1", "buckaroo")
	require.NoError(t, err)
	second, err := f.service.GetProvider("APP1", "buckaroo")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, f.created)
	assert.Equal(t, map[string]string{"apiKey": "key"}, mock.config)
	assert.Equal(t, 1, f.service.CacheStats().Size)

	f.service.InvalidateProvider("APP1", "buckaroo")
	_, err = f.service.GetProvider("APP1", "buckaroo")
	require.NoError(t, err)
	assert.Equal(t, 2, f.created)
}

func TestPaymentService_GetProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		tenantID string
		provider string
		initErr  error
		wantIs   error
		wantMsg  string
	}{
		{name: "empty_tenant", provider: "buckaroo", wantMsg: "tenant ID is required"},
		{name: "unknown_provider", tenantID: "APP1", provider: "unknown", wantMsg: "is not registered"},
		{name: "not_configured", tenantID: "APP2", provider: "buckaroo", wantIs: ErrProviderNotConfigured},
		{name: "initialize_fails", tenantID: "APP1", provider: "buckaroo", initErr: errors.New("bad key"), wantMsg: "bad key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, &mockProvider{initErr: tt.initErr})

			_, err := f.service.GetProvider(tt.tenantID, tt.provider)
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.Zero(t, f.service.CacheStats().Size)
		})
	}
}

func TestPaymentService_CreatePaymentRecordsExchange(t *testing.T) {
	mock := &mockProvider{payment: &PaymentResponse{
		Success:       true,
		Valid:         true,
		Status:        StatusSuccessful,
		StatusCode:    "190",
		InvoiceNumber: "INV-1",
		Operation:     "TransactionRequest",
		PostData:      "brq_amount=10.00&brq_invoicenumber=INV-1",
		ResponseData:  "BRQ_STATUSCODE=190",
	}}
	f := newServiceFixture(t, mock)

	resp, err := f.service.CreatePayment(context.Background(), "APP1", "buckaroo", PaymentRequest{
		Method:        MethodCreditCard,
		Amount:        decimal.RequireFromString("10.00"),
		InvoiceNumber: "INV-1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "APP1", mock.lastPayment.TenantID)

	exchange := f.exchanges.last(t)
	assert.Equal(t, "APP1", exchange.TenantID)
	assert.Equal(t, "buckaroo", exchange.Provider)
	assert.Equal(t, "TransactionRequest", exchange.Operation)
	assert.Equal(t, "INV-1", exchange.InvoiceNumber)
	assert.Equal(t, "190", exchange.StatusCode)
	assert.Equal(t, StatusSuccessful, exchange.Status)
	assert.True(t, exchange.Valid)
	assert.Equal(t, "brq_amount=10.00&brq_invoicenumber=INV-1", exchange.Request)
	assert.Equal(t, "BRQ_STATUSCODE=190", exchange.Response)
	assert.Equal(t, int64(15), exchange.ProcessingMs)
	assert.NotEmpty(t, exchange.RequestID)
	assert.Empty(t, exchange.Error)
}

func TestPaymentService_CreatePaymentProviderError(t *testing.T) {
	f := newServiceFixture(t, &mockProvider{err: errors.New("invalid amount")})

	_, err := f.service.CreatePayment(context.Background(), "APP1", "buckaroo", PaymentRequest{
		Method:        MethodDirectDebit,
		InvoiceNumber: "INV-2",
	})
	require.EqualError(t, err, "invalid amount")

	exchange := f.exchanges.last(t)
	assert.Equal(t, string(MethodDirectDebit), exchange.Operation)
	assert.Equal(t, "INV-2", exchange.InvoiceNumber)
	assert.Equal(t, "invalid amount", exchange.Error)
	assert.False(t, exchange.Success)
}

func TestPaymentService_ExchangeLoggerFailureIsNotFatal(t *testing.T) {
	f := newServiceFixture(t, &mockProvider{payment: &PaymentResponse{Success: true}})
	f.exchanges.err = errors.New("disk full")

	resp, err := f.service.CreatePayment(context.Background(), "APP1", "buckaroo", PaymentRequest{Method: MethodSEPADirectDebit})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Len(t, f.exchanges.exchanges, 1)
}

func TestPaymentService_WithoutExchangeLogger(t *testing.T) {
	registry := NewProviderRegistry()
	registry.Register("buckaroo", func() PaymentProvider {
		return &mockProvider{payment: &PaymentResponse{Success: true}}
	})
	service := NewPaymentService(registry, staticConfigs{"APP1": {"apiKey": "key"}})

	resp, err := service.CreatePayment(context.Background(), "APP1", "buckaroo", PaymentRequest{Method: MethodCreditCard})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestPaymentService_GetPaymentStatus(t *testing.T) {
	mock := &mockProvider{status: &StatusResponse{
		PaymentResponse: PaymentResponse{Success: true, Valid: true, Status: StatusSuccessful, StatusCode: "190"},
		AmountInvoice:   "10.00",
		AmountPaid:      "10.00",
		Paid:            true,
	}}
	f := newServiceFixture(t, mock)

	resp, err := f.service.GetPaymentStatus(context.Background(), "APP1", "buckaroo", GetPaymentStatusRequest{
		InvoiceNumber: "INV-3",
		AmountInvoice: decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Paid)

	exchange := f.exchanges.last(t)
	assert.Equal(t, "status", exchange.Operation)
	assert.Equal(t, "INV-3", exchange.InvoiceNumber)
	assert.Equal(t, "190", exchange.StatusCode)
}

func TestPaymentService_ValidateWebhook(t *testing.T) {
	mock := &mockProvider{webhook: &WebhookResult{
		Valid:         true,
		Status:        StatusSuccessful,
		StatusCode:    "190",
		InvoiceNumber: "INV-4",
		Fields:        map[string]string{"brq_statuscode": "190", "brq_invoicenumber": "INV-4"},
	}}
	f := newServiceFixture(t, mock)

	result, err := f.service.ValidateWebhook(context.Background(), "APP1", "buckaroo", map[string]string{}, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	exchange := f.exchanges.last(t)
	assert.Equal(t, "push", exchange.Operation)
	assert.Equal(t, "INV-4", exchange.InvoiceNumber)
	assert.True(t, exchange.Success)

	values, err := url.ParseQuery(exchange.Response)
	require.NoError(t, err)
	assert.Equal(t, "190", values.Get("brq_statuscode"))
	assert.Equal(t, "INV-4", values.Get("brq_invoicenumber"))
}

func TestPaymentService_ValidateWebhookInvalidSignature(t *testing.T) {
	sigErr := errors.New("signature mismatch")
	f := newServiceFixture(t, &mockProvider{
		webhook: &WebhookResult{Valid: false, Status: StatusUnknown},
		err:     sigErr,
	})

	result, err := f.service.ValidateWebhook(context.Background(), "APP1", "buckaroo", map[string]string{}, nil)
	assert.ErrorIs(t, err, sigErr)
	require.NotNil(t, result)
	assert.False(t, result.Valid)

	exchange := f.exchanges.last(t)
	assert.False(t, exchange.Valid)
	assert.False(t, exchange.Success)
	assert.Equal(t, "signature mismatch", exchange.Error)
}

func TestPaymentService_IBANOperations(t *testing.T) {
	resolver := &ibanMockProvider{
		iban: &IBANResponse{Success: true, Valid: true, IBAN: "NL44RABO0123456789", BIC: "RABONL2U"},
		bic:  "RABONL2U",
	}
	f := newServiceFixture(t, resolver)

	resp, err := f.service.ConvertToIBAN(context.Background(), "APP1", "buckaroo", IBANRequest{
		AccountNumber:  "123456789",
		CountryISOCode: "NL",
	})
	require.NoError(t, err)
	assert.Equal(t, "NL44RABO0123456789", resp.IBAN)
	assert.Equal(t, "iban", f.exchanges.last(t).Operation)

	bic, err := f.service.BICForIBAN(context.Background(), "APP1", "buckaroo", "NL44RABO0123456789", "NL")
	require.NoError(t, err)
	assert.Equal(t, "RABONL2U", bic)

	exchange := f.exchanges.last(t)
	assert.Equal(t, "bic", exchange.Operation)
	assert.True(t, exchange.Success)
}

func TestPaymentService_BICLookupFailure(t *testing.T) {
	f := newServiceFixture(t, &ibanMockProvider{bicErr: errors.New("no bic")})

	_, err := f.service.BICForIBAN(context.Background(), "APP1", "buckaroo", "NL44RABO0123456789", "NL")
	require.Error(t, err)

	exchange := f.exchanges.last(t)
	assert.False(t, exchange.Success)
	assert.Equal(t, "no bic", exchange.Error)
}

func TestPaymentService_IBANNotSupported(t *testing.T) {
	f := newServiceFixture(t, &mockProvider{})

	_, err := f.service.ConvertToIBAN(context.Background(), "APP1", "buckaroo", IBANRequest{})
	assert.ErrorIs(t, err, ErrOperationNotSupported)

	_, err = f.service.BICForIBAN(context.Background(), "APP1", "buckaroo", "NL44RABO0123456789", "NL")
	assert.ErrorIs(t, err, ErrOperationNotSupported)

	assert.Empty(t, f.exchanges.exchanges)
}
