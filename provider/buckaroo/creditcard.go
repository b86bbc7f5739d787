package buckaroo

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMethod is a card brand accepted by the credit card gateway.
type PaymentMethod string

const (
	Mastercard PaymentMethod = "mastercard"
	Visa       PaymentMethod = "visa"
)

func (m PaymentMethod) String() string { return string(m) }

// ParsePaymentMethod accepts a brand name in any case.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case Mastercard, Visa:
		return m, nil
	}
	return "", invalidOption("payment_method", "should be mastercard or visa")
}

// CreditCardOptions describes a hosted card checkout.
type CreditCardOptions struct {
	Description    string        `validate:"required,max=40"`
	InvoiceNumber  string        `validate:"required,max=40"`
	PaymentMethod  PaymentMethod `validate:"required,oneof=mastercard visa"`
	Culture        string        `validate:"omitempty,oneof=DE EN NL"`
	Currency       string        `validate:"omitempty,oneof=EUR GBP USD"`
	Return         string
	StartRecurring bool
}

// CreditCardRecurringOptions describes a charge against an earlier card transaction.
type CreditCardRecurringOptions struct {
	Description         string        `validate:"required,max=40"`
	InvoiceNumber       string        `validate:"required,max=40"`
	OriginalTransaction string        `validate:"required"`
	PaymentMethod       PaymentMethod `validate:"required,oneof=mastercard visa"`
	Currency            string        `validate:"omitempty,oneof=EUR GBP USD"`
	Return              string
	StartRecurring      bool
}

type CreditCardGateway struct {
	*Gateway
}

func NewCreditCardGateway(cfg Config, opts ...Option) (*CreditCardGateway, error) {
	g, err := newGateway(cfg, DefaultTimeout, opts)
	if err != nil {
		return nil, err
	}
	return &CreditCardGateway{Gateway: g}, nil
}

// Purchase starts a hosted checkout. Success means the payment is pending and
// the customer has to be sent to RedirectURL.
func (g *CreditCardGateway) Purchase(ctx context.Context, money decimal.Decimal, opts CreditCardOptions) (*Response, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if err := validateMoney(money); err != nil {
		return nil, err
	}

	params := g.baseParams(money, opts.Currency, opts.Description, opts.InvoiceNumber, opts.PaymentMethod, opts.StartRecurring, opts.Return)
	params.Set("brq_culture", withDefault(opts.Culture, defaultCulture))
	params.Set(serviceAction(opts.PaymentMethod), "Pay")

	return g.call(ctx, OperationTransactionRequest, params, requirePending), nil
}

// Recurring charges a card again using an earlier transaction key. Only a
// final 190 counts as success.
func (g *CreditCardGateway) Recurring(ctx context.Context, money decimal.Decimal, opts CreditCardRecurringOptions) (*Response, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if err := validateMoney(money); err != nil {
		return nil, err
	}

	params := g.baseParams(money, opts.Currency, opts.Description, opts.InvoiceNumber, opts.PaymentMethod, opts.StartRecurring, opts.Return)
	params.Set("brq_originaltransaction", opts.OriginalTransaction)
	params.Set(serviceAction(opts.PaymentMethod), "PayRecurrent")

	return g.call(ctx, OperationTransactionRequest, params, requireSuccess), nil
}

func (g *CreditCardGateway) baseParams(money decimal.Decimal, currency, description, invoice string, method PaymentMethod, startRecurring bool, returnURL string) Params {
	var p Params
	p.Set("brq_amount", money.String())
	p.Set("brq_currency", withDefault(currency, defaultCurrency))
	p.Set("brq_description", description)
	p.Set("brq_invoicenumber", invoice)
	p.Set("brq_payment_method", method)
	p.Set("brq_startrecurrent", startRecurring)
	p.Set("brq_websitekey", g.config.WebsiteKey)
	if returnURL != "" {
		p.Set("brq_return", returnURL)
	}
	return p
}

func serviceAction(service any) string {
	return "brq_service_" + formatValue(service) + "_action"
}
