package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current status of a payment
type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusSuccessful PaymentStatus = "successful"
	StatusFailed     PaymentStatus = "failed"
	StatusRefunded   PaymentStatus = "refunded"
	StatusUnknown    PaymentStatus = "unknown"
)

// PaymentMethod selects the gateway operation used for a payment request
type PaymentMethod string

const (
	MethodCreditCard          PaymentMethod = "creditcard"
	MethodCreditCardRecurring PaymentMethod = "creditcard_recurring"
	MethodDirectDebit         PaymentMethod = "directdebit"
	MethodSEPADirectDebit     PaymentMethod = "sepa"
)

// ConfigField represents a required configuration field for a payment provider
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "boolean", "url"
	Description string `json:"description"`
	Example     string `json:"example"`
	Pattern     string `json:"pattern,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// BankAccount holds the debtor account for direct debit payments
type BankAccount struct {
	Name   string `json:"name,omitempty"`
	Number string `json:"number,omitempty"`
	IBAN   string `json:"iban,omitempty"`
	BIC    string `json:"bic,omitempty"`
}

// Mandate holds SEPA mandate details
type Mandate struct {
	Reference string    `json:"reference,omitempty"`
	Date      time.Time `json:"date,omitempty"`
}

// PaymentRequest contains all information required to create a payment
type PaymentRequest struct {
	Method              PaymentMethod   `json:"method" validate:"required,oneof=creditcard creditcard_recurring directdebit sepa"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency,omitempty"`
	Culture             string          `json:"culture,omitempty"`
	Description         string          `json:"description" validate:"required"`
	InvoiceNumber       string          `json:"invoiceNumber" validate:"required"`
	CardBrand           string          `json:"cardBrand,omitempty"`
	ReturnURL           string          `json:"returnUrl,omitempty" validate:"omitempty,url"`
	StartRecurring      bool            `json:"startRecurring,omitempty"`
	Recurring           bool            `json:"recurring,omitempty"`
	OriginalTransaction string          `json:"originalTransaction,omitempty"`
	Account             BankAccount     `json:"account,omitempty"`
	Mandate             Mandate         `json:"mandate,omitempty"`
	CollectDate         time.Time       `json:"collectDate,omitempty"`
	ClientIP            string          `json:"-"`
	TenantID            string          `json:"-"`
}

// PaymentResponse contains the result of a payment request
type PaymentResponse struct {
	Success       bool              `json:"success"`
	Status        PaymentStatus     `json:"status"`
	Valid         bool              `json:"valid"`
	Message       string            `json:"message,omitempty"`
	StatusCode    string            `json:"statusCode,omitempty"`
	TransactionID string            `json:"transactionId,omitempty"`
	InvoiceNumber string            `json:"invoiceNumber,omitempty"`
	Amount        string            `json:"amount,omitempty"`
	Currency      string            `json:"currency,omitempty"`
	RedirectURL   string            `json:"redirectUrl,omitempty"`
	Test          bool              `json:"test"`
	Operation     string            `json:"operation,omitempty"`
	PostData      string            `json:"-"`
	ResponseData  string            `json:"-"`
	Fields        map[string]string `json:"fields,omitempty"`
	SystemTime    *time.Time        `json:"systemTime,omitempty"`
}

// GetPaymentStatusRequest contains information to request a payment status
type GetPaymentStatusRequest struct {
	InvoiceNumber string          `json:"invoiceNumber" validate:"required,max=40"`
	AmountInvoice decimal.Decimal `json:"amountInvoice"`
}

// StatusResponse reports the paid state of an invoice
type StatusResponse struct {
	PaymentResponse
	AmountInvoice string `json:"amountInvoice"`
	AmountDebit   string `json:"amountDebit"`
	AmountCredit  string `json:"amountCredit"`
	AmountPaid    string `json:"amountPaid"`
	Paid          bool   `json:"paid"`
}

// IBANRequest asks the gateway to convert a domestic account number
type IBANRequest struct {
	AccountNumber  string `json:"accountNumber" validate:"required"`
	CountryISOCode string `json:"countryIsoCode" validate:"required,len=2"`
	BankCode       string `json:"bankCode,omitempty"`
}

// IBANResponse contains a converted IBAN and its BIC
type IBANResponse struct {
	Success bool   `json:"success"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	IBAN    string `json:"iban,omitempty"`
	BIC     string `json:"bic,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WebhookResult is the classified content of a verified push notification
type WebhookResult struct {
	Valid         bool              `json:"valid"`
	Status        PaymentStatus     `json:"status"`
	StatusCode    string            `json:"statusCode,omitempty"`
	TransactionID string            `json:"transactionId,omitempty"`
	InvoiceNumber string            `json:"invoiceNumber,omitempty"`
	Amount        string            `json:"amount,omitempty"`
	Currency      string            `json:"currency,omitempty"`
	Test          bool              `json:"test"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// PaymentProvider defines the interface that all payment gateways must implement
type PaymentProvider interface {
	// Initialize sets up the payment provider with authentication and configuration
	Initialize(config map[string]string) error

	// GetRequiredConfig returns the configuration fields required for this provider
	GetRequiredConfig(environment string) []ConfigField

	// ValidateConfig validates the provided configuration against provider requirements
	ValidateConfig(config map[string]string) error

	// CreatePayment submits a signed payment request
	CreatePayment(ctx context.Context, request PaymentRequest) (*PaymentResponse, error)

	// GetPaymentStatus retrieves the current status of an invoice
	GetPaymentStatus(ctx context.Context, request GetPaymentStatusRequest) (*StatusResponse, error)

	// ValidateWebhook verifies and classifies an incoming push notification
	ValidateWebhook(ctx context.Context, data map[string]string, headers map[string]string) (*WebhookResult, error)
}

// IBANResolver is implemented by providers that can convert account numbers
type IBANResolver interface {
	ConvertToIBAN(ctx context.Context, request IBANRequest) (*IBANResponse, error)
	BICForIBAN(ctx context.Context, iban, countryISOCode string) (string, error)
}

// ProviderFactory is a function type that creates a new PaymentProvider
type ProviderFactory func() PaymentProvider
