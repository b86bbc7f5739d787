package buckaroo

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const maxInvoiceTransactions = 99

// Response is the outcome of one gateway call. Parsed fields are reachable
// through the embedded parser; Success and Message carry the decision made
// for the operation.
type Response struct {
	*ResponseParser

	operation     string
	success       bool
	message       string
	postData      string
	postParams    Params
	amountInvoice decimal.Decimal
	transportErr  error
}

// Success reports the operation outcome, which may differ from the parser's
// own status classification.
func (r *Response) Success() bool { return r.success }

func (r *Response) Message() string { return r.message }

func (r *Response) Operation() string { return r.operation }

// PostData is the signed wire string that was sent.
func (r *Response) PostData() string { return r.postData }

// PostParams returns a copy of the unsigned parameters that were sent.
func (r *Response) PostParams() Params { return r.postParams.Clone() }

func (r *Response) Parser() *ResponseParser { return r.ResponseParser }

// TransportError is the error reported by the transport, if any. The response
// is then invalid.
func (r *Response) TransportError() error { return r.transportErr }

// StatusAmountDebit sums the debit amounts of successful invoice transactions.
func (r *Response) StatusAmountDebit() decimal.Decimal {
	total := decimal.Zero
	for i := 1; i <= maxInvoiceTransactions; i++ {
		debit, ok := r.Lookup(invoiceTransactionField(i, "amountdebit"))
		if !ok || !strings.EqualFold(r.Field(invoiceTransactionField(i, "status_success")), "true") {
			continue
		}
		if amount, err := decimal.NewFromString(debit); err == nil {
			total = total.Add(amount)
		}
	}
	return total
}

// StatusAmountCredit sums the credit amounts of all invoice transactions.
func (r *Response) StatusAmountCredit() decimal.Decimal {
	total := decimal.Zero
	for i := 1; i <= maxInvoiceTransactions; i++ {
		credit, ok := r.Lookup(invoiceTransactionField(i, "amountcredit"))
		if !ok {
			continue
		}
		if amount, err := decimal.NewFromString(credit); err == nil {
			total = total.Add(amount)
		}
	}
	return total
}

// StatusAmountInvoice is the expected invoice amount supplied with a status query.
func (r *Response) StatusAmountInvoice() decimal.Decimal { return r.amountInvoice }

func (r *Response) StatusAmountPaid() decimal.Decimal {
	return r.StatusAmountDebit().Sub(r.StatusAmountCredit())
}

// StatusPaid reports whether the net paid amount equals the invoice amount.
func (r *Response) StatusPaid() bool {
	return r.StatusAmountPaid().Equal(r.amountInvoice)
}

func invoiceTransactionField(index int, name string) string {
	return fmt.Sprintf("brq_invoice_1_transactions_%d_%s", index, name)
}
