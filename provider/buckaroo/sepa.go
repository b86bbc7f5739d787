package buckaroo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	serviceSimpleSEPADirectDebit = "simplesepadirectdebit"
	sepaDateLayout               = "2006-01-02"
)

// SEPADirectDebitOptions describes a SEPA direct debit against an existing mandate.
type SEPADirectDebitOptions struct {
	CollectDate         time.Time `validate:"required"`
	CustomerAccountName string    `validate:"required,max=40"`
	CustomerBIC         string    `validate:"required"`
	CustomerIBAN        string    `validate:"required"`
	Description         string    `validate:"required,max=40"`
	InvoiceNumber       string    `validate:"required,max=40"`
	MandateDate         time.Time `validate:"required"`
	MandateReference    string    `validate:"required"`
	Culture             string    `validate:"omitempty,oneof=DE EN NL"`
	Currency            string    `validate:"omitempty,eq=EUR"`
}

type SEPADirectDebitGateway struct {
	*Gateway
}

func NewSEPADirectDebitGateway(cfg Config, opts ...Option) (*SEPADirectDebitGateway, error) {
	g, err := newGateway(cfg, DefaultTimeout, opts)
	if err != nil {
		return nil, err
	}
	return &SEPADirectDebitGateway{Gateway: g}, nil
}

// Purchase submits a SEPA collection. Success means the debit is pending.
func (g *SEPADirectDebitGateway) Purchase(ctx context.Context, money decimal.Decimal, opts SEPADirectDebitOptions) (*Response, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if err := validateMoney(money); err != nil {
		return nil, err
	}

	field := func(name string) string {
		return "brq_service_" + serviceSimpleSEPADirectDebit + "_" + name
	}

	var params Params
	params.Set("brq_amount", money.String())
	params.Set("brq_channel", channelCallCenter)
	params.Set("brq_culture", withDefault(opts.Culture, defaultCulture))
	params.Set("brq_currency", withDefault(opts.Currency, defaultCurrency))
	params.Set("brq_description", opts.Description)
	params.Set("brq_invoicenumber", opts.InvoiceNumber)
	params.Set("brq_payment_method", serviceSimpleSEPADirectDebit)
	params.Set(serviceAction(serviceSimpleSEPADirectDebit), "Pay")
	params.Set(field("collectdate"), opts.CollectDate.Format(sepaDateLayout))
	params.Set(field("customeraccountname"), opts.CustomerAccountName)
	params.Set(field("customerbic"), opts.CustomerBIC)
	params.Set(field("customeriban"), opts.CustomerIBAN)
	params.Set(field("mandatedate"), opts.MandateDate.Format(sepaDateLayout))
	params.Set(field("mandatereference"), g.mandateReference(opts.MandateReference))
	params.Set("brq_startrecurrent", true)
	params.Set("brq_websitekey", g.config.WebsiteKey)

	return g.call(ctx, OperationTransactionRequest, params, requirePending), nil
}

func (g *SEPADirectDebitGateway) mandateReference(ref string) string {
	if g.config.MandatePrefix == "" {
		return ref
	}
	return g.config.MandatePrefix + "-" + ref
}
