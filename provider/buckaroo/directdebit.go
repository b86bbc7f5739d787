package buckaroo

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	serviceDirectDebit          = "directdebit"
	serviceDirectDebitRecurring = "directdebitrecurring"
)

// DirectDebitOptions describes a Dutch domestic direct debit.
type DirectDebitOptions struct {
	AccountName   string `validate:"required,max=40"`
	AccountNumber string `validate:"required,max=9"`
	Description   string `validate:"required,max=40"`
	InvoiceNumber string `validate:"required,max=40"`
	Culture       string `validate:"omitempty,oneof=DE EN NL"`
	Currency      string `validate:"omitempty,eq=EUR"`
	Recurring     bool
}

type DirectDebitGateway struct {
	*Gateway
}

func NewDirectDebitGateway(cfg Config, opts ...Option) (*DirectDebitGateway, error) {
	g, err := newGateway(cfg, DefaultTimeout, opts)
	if err != nil {
		return nil, err
	}
	return &DirectDebitGateway{Gateway: g}, nil
}

// Purchase submits a direct debit. The collection is asynchronous, so a
// pending status counts as success.
func (g *DirectDebitGateway) Purchase(ctx context.Context, money decimal.Decimal, opts DirectDebitOptions) (*Response, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if err := validateMoney(money); err != nil {
		return nil, err
	}

	service := serviceDirectDebit
	if opts.Recurring {
		service = serviceDirectDebitRecurring
	}

	var params Params
	params.Set("brq_amount", money.String())
	params.Set("brq_culture", withDefault(opts.Culture, defaultCulture))
	params.Set("brq_currency", withDefault(opts.Currency, defaultCurrency))
	params.Set("brq_description", opts.Description)
	params.Set("brq_invoicenumber", opts.InvoiceNumber)
	params.Set("brq_websitekey", g.config.WebsiteKey)
	params.Set("brq_payment_method", service)
	params.Set(serviceAction(service), "Pay")
	params.Set("brq_service_"+service+"_customeraccountname", opts.AccountName)
	params.Set("brq_service_"+service+"_customeraccountnumber", opts.AccountNumber)

	return g.call(ctx, OperationTransactionRequest, params, requirePending), nil
}
