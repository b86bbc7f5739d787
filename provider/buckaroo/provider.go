package buckaroo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mstgnz/gobuckaroo/provider"
)

// Provider adapts the BPE3 gateways to provider.PaymentProvider.
type Provider struct {
	config  Config
	options []Option

	creditCard  *CreditCardGateway
	directDebit *DirectDebitGateway
	sepa        *SEPADirectDebitGateway
	iban        *IBANConverterGateway
	status      *StatusGateway
}

var (
	_ provider.PaymentProvider = (*Provider)(nil)
	_ provider.IBANResolver    = (*Provider)(nil)
)

// NewProvider creates an uninitialized Buckaroo provider
func NewProvider() provider.PaymentProvider {
	return NewProviderWithOptions()
}

// NewProviderWithOptions creates a provider whose gateways share opts.
func NewProviderWithOptions(opts ...Option) *Provider {
	return &Provider{options: opts}
}

// Initialize builds the gateways from tenant configuration.
func (p *Provider) Initialize(conf map[string]string) error {
	if conf["secretKey"] == "" || conf["websiteKey"] == "" {
		return errors.New("buckaroo: secretKey and websiteKey are required")
	}

	cfg := Config{
		SecretKey:     conf["secretKey"],
		WebsiteKey:    conf["websiteKey"],
		Test:          conf["environment"] != "production",
		BaseURL:       conf["baseURL"],
		MandatePrefix: conf["mandatePrefix"],
	}
	if v, ok := conf["test"]; ok && v != "" {
		test, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("buckaroo: test must be a boolean: %w", err)
		}
		cfg.Test = test
	}
	if v := conf["timeoutSeconds"]; v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return errors.New("buckaroo: timeoutSeconds must be a positive integer")
		}
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	var err error
	if p.creditCard, err = NewCreditCardGateway(cfg, p.options...); err != nil {
		return err
	}
	if p.directDebit, err = NewDirectDebitGateway(cfg, p.options...); err != nil {
		return err
	}
	if p.sepa, err = NewSEPADirectDebitGateway(cfg, p.options...); err != nil {
		return err
	}
	if p.iban, err = NewIBANConverterGateway(cfg, p.options...); err != nil {
		return err
	}
	if p.status, err = NewStatusGateway(cfg, p.options...); err != nil {
		return err
	}
	p.config = cfg

	return nil
}

// GetRequiredConfig returns the configuration fields required for Buckaroo
func (p *Provider) GetRequiredConfig(environment string) []provider.ConfigField {
	return []provider.ConfigField{
		{
			Key:         "secretKey",
			Required:    true,
			Type:        "string",
			Description: "Buckaroo secret key used to sign requests and verify responses",
			Example:     "ABCDEF1234567890",
			MinLength:   8,
			MaxLength:   128,
		},
		{
			Key:         "websiteKey",
			Required:    true,
			Type:        "string",
			Description: "Buckaroo website key identifying the merchant site",
			Example:     "12345ABCDE",
			MinLength:   4,
			MaxLength:   64,
		},
		{
			Key:         "environment",
			Required:    false,
			Type:        "string",
			Description: "Use 'production' for the live checkout, anything else selects the test checkout",
			Example:     environment,
			Pattern:     "^(test|sandbox|production)$",
		},
		{
			Key:         "mandatePrefix",
			Required:    false,
			Type:        "string",
			Description: "Prefix prepended to SEPA mandate references",
			Example:     "ACME",
			MaxLength:   10,
		},
		{
			Key:         "baseURL",
			Required:    false,
			Type:        "url",
			Description: "Overrides the NVP endpoint",
			Example:     TestURL,
		},
	}
}

// ValidateConfig validates the provided configuration against Buckaroo requirements
func (p *Provider) ValidateConfig(conf map[string]string) error {
	return provider.ValidateConfigFields(providerName, conf, p.GetRequiredConfig(conf["environment"]))
}

// CreatePayment dispatches the request to the gateway of its method.
func (p *Provider) CreatePayment(ctx context.Context, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
	if p.creditCard == nil {
		return nil, errors.New("buckaroo: provider is not initialized")
	}

	var (
		resp *Response
		err  error
	)
	switch request.Method {
	case provider.MethodCreditCard:
		resp, err = p.purchaseCreditCard(ctx, request)
	case provider.MethodCreditCardRecurring:
		resp, err = p.recurringCreditCard(ctx, request)
	case provider.MethodDirectDebit:
		resp, err = p.directDebit.Purchase(ctx, request.Amount, DirectDebitOptions{
			AccountName:   request.Account.Name,
			AccountNumber: request.Account.Number,
			Description:   request.Description,
			InvoiceNumber: request.InvoiceNumber,
			Culture:       request.Culture,
			Currency:      request.Currency,
			Recurring:     request.Recurring,
		})
	case provider.MethodSEPADirectDebit:
		resp, err = p.sepa.Purchase(ctx, request.Amount, SEPADirectDebitOptions{
			CollectDate:         request.CollectDate,
			CustomerAccountName: request.Account.Name,
			CustomerBIC:         request.Account.BIC,
			CustomerIBAN:        request.Account.IBAN,
			Description:         request.Description,
			InvoiceNumber:       request.InvoiceNumber,
			MandateDate:         request.Mandate.Date,
			MandateReference:    request.Mandate.Reference,
			Culture:             request.Culture,
			Currency:            request.Currency,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidOption, request.Method)
	}
	if err != nil {
		return nil, fmt.Errorf("buckaroo: invalid payment request: %w", err)
	}

	return toPaymentResponse(resp, p.config.Test), nil
}

func (p *Provider) purchaseCreditCard(ctx context.Context, request provider.PaymentRequest) (*Response, error) {
	method, err := ParsePaymentMethod(request.CardBrand)
	if err != nil {
		return nil, err
	}
	return p.creditCard.Purchase(ctx, request.Amount, CreditCardOptions{
		Description:    request.Description,
		InvoiceNumber:  request.InvoiceNumber,
		PaymentMethod:  method,
		Culture:        request.Culture,
		Currency:       request.Currency,
		Return:         request.ReturnURL,
		StartRecurring: request.StartRecurring,
	})
}

func (p *Provider) recurringCreditCard(ctx context.Context, request provider.PaymentRequest) (*Response, error) {
	method, err := ParsePaymentMethod(request.CardBrand)
	if err != nil {
		return nil, err
	}
	return p.creditCard.Recurring(ctx, request.Amount, CreditCardRecurringOptions{
		Description:         request.Description,
		InvoiceNumber:       request.InvoiceNumber,
		OriginalTransaction: request.OriginalTransaction,
		PaymentMethod:       method,
		Currency:            request.Currency,
		Return:              request.ReturnURL,
		StartRecurring:      request.StartRecurring,
	})
}

// GetPaymentStatus queries an invoice and reports how much of it has been paid.
func (p *Provider) GetPaymentStatus(ctx context.Context, request provider.GetPaymentStatusRequest) (*provider.StatusResponse, error) {
	if p.status == nil {
		return nil, errors.New("buckaroo: provider is not initialized")
	}

	amount := request.AmountInvoice
	resp, err := p.status.ForInvoiceNumber(ctx, StatusOptions{
		AmountInvoice: &amount,
		InvoiceNumber: request.InvoiceNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("buckaroo: invalid status request: %w", err)
	}

	return &provider.StatusResponse{
		PaymentResponse: *toPaymentResponse(resp, p.config.Test),
		AmountInvoice:   resp.StatusAmountInvoice().String(),
		AmountDebit:     resp.StatusAmountDebit().String(),
		AmountCredit:    resp.StatusAmountCredit().String(),
		AmountPaid:      resp.StatusAmountPaid().String(),
		Paid:            resp.StatusPaid(),
	}, nil
}

// ValidateWebhook verifies a push notification. The result is returned even
// when the signature does not match so callers can log what was received.
func (p *Provider) ValidateWebhook(ctx context.Context, data map[string]string, headers map[string]string) (*provider.WebhookResult, error) {
	if p.config.SecretKey == "" {
		return nil, errors.New("buckaroo: provider is not initialized")
	}

	push := NewPush(data, p.config.SecretKey)
	amount, _ := push.Amount()
	result := &provider.WebhookResult{
		Valid:         push.Valid(),
		Status:        push.Event(),
		StatusCode:    push.StatusCode(),
		TransactionID: push.Transactions(),
		InvoiceNumber: push.InvoiceNumber(),
		Amount:        amount,
		Currency:      push.Currency(),
		Test:          push.Test(),
		Fields:        push.ResponseParams(),
	}
	if !result.Valid {
		return result, ErrInvalidSignature
	}
	return result, nil
}

// ConvertToIBAN converts a domestic account number through the gateway.
func (p *Provider) ConvertToIBAN(ctx context.Context, request provider.IBANRequest) (*provider.IBANResponse, error) {
	if p.iban == nil {
		return nil, errors.New("buckaroo: provider is not initialized")
	}

	resp, err := p.iban.ConvertToIBAN(ctx, IBANConversionOptions{
		AccountNumber:  request.AccountNumber,
		CountryISOCode: request.CountryISOCode,
		BankCode:       request.BankCode,
	})
	if err != nil {
		return nil, fmt.Errorf("buckaroo: invalid iban request: %w", err)
	}

	return &provider.IBANResponse{
		Success: resp.Success() && resp.IBANConverterSuccess(),
		Valid:   resp.Valid(),
		Message: resp.Message(),
		IBAN:    resp.IBAN(),
		BIC:     resp.BIC(),
		Error:   resp.ErrorMessage(),
	}, nil
}

// BICForIBAN resolves the BIC of a Dutch IBAN.
func (p *Provider) BICForIBAN(ctx context.Context, iban, countryISOCode string) (string, error) {
	if p.iban == nil {
		return "", errors.New("buckaroo: provider is not initialized")
	}
	return p.iban.BICForIBAN(ctx, iban, countryISOCode)
}

func toPaymentResponse(resp *Response, test bool) *provider.PaymentResponse {
	amount, ok := resp.Amount()
	if !ok {
		amount, _ = resp.postParams.Get("brq_amount")
	}
	currency := resp.Currency()
	if currency == "" {
		currency, _ = resp.postParams.Get("brq_currency")
	}
	invoice := resp.InvoiceNumber()
	if invoice == "" {
		invoice, _ = resp.postParams.Get("brq_invoicenumber")
	}

	status := provider.StatusFailed
	if resp.Valid() {
		status = classify(resp.ResponseParser)
	}

	now := time.Now()
	return &provider.PaymentResponse{
		Success:       resp.Success(),
		Status:        status,
		Valid:         resp.Valid(),
		Message:       resp.Message(),
		StatusCode:    resp.StatusCode(),
		TransactionID: resp.Transactions(),
		InvoiceNumber: invoice,
		Amount:        amount,
		Currency:      strings.ToUpper(currency),
		RedirectURL:   resp.RedirectURL(),
		Test:          test || resp.Test(),
		Operation:     resp.Operation(),
		PostData:      resp.PostData(),
		ResponseData:  resp.ResponseData(),
		Fields:        resp.ResponseParams(),
		SystemTime:    &now,
	}
}
