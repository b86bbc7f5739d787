package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gobuckaroo/infra/logger"
	"github.com/mstgnz/gobuckaroo/infra/middle"
	"github.com/mstgnz/gobuckaroo/infra/response"
	"github.com/mstgnz/gobuckaroo/provider"
	"github.com/mstgnz/gobuckaroo/provider/buckaroo"
	"github.com/shopspring/decimal"
)

const (
	gatewayTimeout = 30 * time.Second

	// defaultBICCountry is used when a BIC lookup names no country
	defaultBICCountry = "NL"
)

// PaymentServiceInterface defines the gateway operations used by the HTTP layer
type PaymentServiceInterface interface {
	CreatePayment(ctx context.Context, tenantID, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error)
	GetPaymentStatus(ctx context.Context, tenantID, providerName string, request provider.GetPaymentStatusRequest) (*provider.StatusResponse, error)
	ValidateWebhook(ctx context.Context, tenantID, providerName string, data, headers map[string]string) (*provider.WebhookResult, error)
	ConvertToIBAN(ctx context.Context, tenantID, providerName string, request provider.IBANRequest) (*provider.IBANResponse, error)
	BICForIBAN(ctx context.Context, tenantID, providerName, iban, countryISOCode string) (string, error)
}

// PaymentHandler handles Buckaroo payment related HTTP requests
type PaymentHandler struct {
	paymentService PaymentServiceInterface
	validate       *validator.Validate
	providerName   string
}

// NewPaymentHandler creates a new payment handler for the buckaroo provider
func NewPaymentHandler(paymentService PaymentServiceInterface, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validate:       validate,
		providerName:   "buckaroo",
	}
}

// CreditCardPurchase handles POST /creditcard/purchase
func (h *PaymentHandler) CreditCardPurchase(w http.ResponseWriter, r *http.Request) {
	h.createPayment(w, r, provider.MethodCreditCard)
}

// CreditCardRecurring handles POST /creditcard/recurring
func (h *PaymentHandler) CreditCardRecurring(w http.ResponseWriter, r *http.Request) {
	h.createPayment(w, r, provider.MethodCreditCardRecurring)
}

// DirectDebit handles POST /directdebit
func (h *PaymentHandler) DirectDebit(w http.ResponseWriter, r *http.Request) {
	h.createPayment(w, r, provider.MethodDirectDebit)
}

// SEPADirectDebit handles POST /sepa
func (h *PaymentHandler) SEPADirectDebit(w http.ResponseWriter, r *http.Request) {
	h.createPayment(w, r, provider.MethodSEPADirectDebit)
}

func (h *PaymentHandler) createPayment(w http.ResponseWriter, r *http.Request, method provider.PaymentMethod) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout)
	defer cancel()

	var req provider.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	req.Method = method
	req.ClientIP = middle.GetClientIP(r)

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}
	if !req.Amount.IsPositive() {
		response.Error(w, http.StatusBadRequest, "Validation error", errors.New("amount must be greater than zero"))
		return
	}

	resp, err := h.paymentService.CreatePayment(ctx, tenantID, h.providerName, req)
	if err != nil {
		writeServiceError(w, "Payment failed", err)
		return
	}

	if !resp.Valid {
		response.Success(w, http.StatusOK, "Gateway response could not be verified", resp)
		return
	}
	response.Success(w, http.StatusOK, "Payment processed", resp)
}

// GetPaymentStatus handles GET /status/{invoice}?amount=
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout)
	defer cancel()

	invoice := chi.URLParam(r, "invoice")
	if invoice == "" {
		response.Error(w, http.StatusBadRequest, "Missing invoice number", nil)
		return
	}

	rawAmount := r.URL.Query().Get("amount")
	if rawAmount == "" {
		response.Error(w, http.StatusBadRequest, "amount query parameter is required", nil)
		return
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	req := provider.GetPaymentStatusRequest{InvoiceNumber: invoice, AmountInvoice: amount}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	resp, err := h.paymentService.GetPaymentStatus(ctx, tenantID, h.providerName, req)
	if err != nil {
		writeServiceError(w, "Failed to get payment status", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment status retrieved", resp)
}

// ConvertToIBAN handles POST /iban/convert
func (h *PaymentHandler) ConvertToIBAN(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout)
	defer cancel()

	var req provider.IBANRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	resp, err := h.paymentService.ConvertToIBAN(ctx, tenantID, h.providerName, req)
	if err != nil {
		writeServiceError(w, "IBAN conversion failed", err)
		return
	}

	if !resp.Success {
		response.Success(w, http.StatusOK, "No IBAN returned", resp)
		return
	}
	response.Success(w, http.StatusOK, "IBAN converted", resp)
}

// BICForIBAN handles GET /iban/bic?iban=&country=
func (h *PaymentHandler) BICForIBAN(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout)
	defer cancel()

	iban := strings.TrimSpace(r.URL.Query().Get("iban"))
	if iban == "" {
		response.Error(w, http.StatusBadRequest, "iban query parameter is required", nil)
		return
	}
	country := r.URL.Query().Get("country")
	if country == "" {
		country = defaultBICCountry
	}

	bic, err := h.paymentService.BICForIBAN(ctx, tenantID, h.providerName, iban, country)
	if err != nil {
		writeServiceError(w, "BIC lookup failed", err)
		return
	}

	response.Success(w, http.StatusOK, "BIC resolved", map[string]string{
		"iban": iban,
		"bic":  bic,
	})
}

// HandleWebhook handles push notifications on POST /webhooks/buckaroo/{tenant}.
// Pushes arrive form encoded; JSON objects with string values are accepted too.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout)
	defer cancel()

	tenantID := chi.URLParam(r, "tenant")
	if tenantID == "" {
		response.Error(w, http.StatusBadRequest, "Tenant parameter is required", nil)
		return
	}

	var webhookData map[string]string
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&webhookData); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid JSON webhook data", err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid form data", err)
			return
		}
		webhookData = make(map[string]string, len(r.PostForm))
		for key, values := range r.PostForm {
			if len(values) > 0 {
				webhookData[key] = values[0]
			}
		}
	}

	if len(webhookData) == 0 {
		response.Error(w, http.StatusBadRequest, "Empty webhook payload", nil)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	result, err := h.paymentService.ValidateWebhook(ctx, tenantID, h.providerName, webhookData, headers)
	if err != nil {
		h.logWebhookError(tenantID, err, result)
		writeServiceError(w, "Webhook validation failed", err)
		return
	}

	logger.Info("Push received", logger.LogContext{
		TenantID: tenantID,
		Provider: h.providerName,
		Fields: map[string]any{
			"invoice_number": result.InvoiceNumber,
			"status":         result.Status,
			"status_code":    result.StatusCode,
		},
	})

	response.Success(w, http.StatusOK, "Webhook received", result)
}

func (h *PaymentHandler) logWebhookError(tenantID string, err error, result *provider.WebhookResult) {
	fields := map[string]any{}
	if result != nil {
		fields["invoice_number"] = result.InvoiceNumber
		fields["status_code"] = result.StatusCode
	}
	logger.Warn("Webhook rejected: "+err.Error(), logger.LogContext{
		TenantID: tenantID,
		Provider: h.providerName,
		Fields:   fields,
	})
}

// requireTenant reads the authenticated tenant and answers 401 when there is none
func requireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := middle.GetTenantIDFromContext(r.Context())
	if tenantID == "" {
		response.Error(w, http.StatusUnauthorized, "Tenant ID is required", nil)
		return "", false
	}
	return tenantID, true
}

// writeServiceError maps gateway and service errors onto HTTP status codes
func writeServiceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, buckaroo.ErrInvalidOption), errors.Is(err, buckaroo.ErrInvalidSignature):
		status = http.StatusBadRequest
	case errors.Is(err, buckaroo.ErrBICLookup):
		status = http.StatusBadGateway
	case errors.Is(err, provider.ErrProviderNotConfigured):
		status = http.StatusNotFound
	case errors.Is(err, provider.ErrOperationNotSupported):
		status = http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	response.Error(w, status, message, err)
}
