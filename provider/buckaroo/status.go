package buckaroo

import (
	"context"

	"github.com/shopspring/decimal"
)

// StatusOptions identifies the invoice to query and the amount it should add up to.
type StatusOptions struct {
	AmountInvoice *decimal.Decimal `validate:"required"`
	InvoiceNumber string           `validate:"required,max=40"`
}

type StatusGateway struct {
	*Gateway
}

func NewStatusGateway(cfg Config, opts ...Option) (*StatusGateway, error) {
	g, err := newGateway(cfg, DefaultTimeout, opts)
	if err != nil {
		return nil, err
	}
	return &StatusGateway{Gateway: g}, nil
}

// ForInvoiceNumber fetches the transactions of an invoice. Use the
// StatusAmount* helpers on the result to see how much has been paid.
func (g *StatusGateway) ForInvoiceNumber(ctx context.Context, opts StatusOptions) (*Response, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	var params Params
	params.Set("brq_invoicenumber", opts.InvoiceNumber)
	params.Set("brq_websitekey", g.config.WebsiteKey)

	resp := g.call(ctx, OperationInvoiceInfo, params, requireSuccess)
	resp.amountInvoice = *opts.AmountInvoice
	return resp, nil
}
