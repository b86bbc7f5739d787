package buckaroo

import (
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const additionalVariablePrefix = "add_"

// ResponseParser is the verified, normalized view of a response or push.
// Keys are lower-cased after the signature has been checked.
type ResponseParser struct {
	data   string
	params map[string]string
	valid  bool
}

// ParseResponse decodes a form-encoded response body. A body that cannot be
// decoded yields an empty, invalid parser.
func ParseResponse(body, secret string) *ResponseParser {
	raw, err := splitQuery(body)
	if err != nil {
		return &ResponseParser{data: body, params: map[string]string{}}
	}
	params, err := unescapeValues(raw)
	if err != nil {
		return &ResponseParser{data: body, params: map[string]string{}}
	}
	return newResponseParser(body, params, raw, secret)
}

// ParsePush verifies a push notification delivered as already decoded fields.
// Values are escaped again before verification since signing decodes them.
func ParsePush(fields map[string]string, secret string) *ResponseParser {
	params := ParamsFromMap(fields)
	return newResponseParser("", params, escapeValues(params), secret)
}

// newResponseParser verifies signed, which holds the fields as they appear on
// the wire, and exposes the decoded params.
func newResponseParser(data string, params, signed Params, secret string) *ResponseParser {
	normalized := make(map[string]string, len(params))
	for _, kv := range params {
		normalized[strings.ToLower(kv.Key)] = kv.Value
	}
	return &ResponseParser{
		data:   data,
		params: normalized,
		valid:  CheckSignature(signed, secret),
	}
}

// Valid reports whether the signature matched.
func (r *ResponseParser) Valid() bool { return r.valid }

// ResponseData is the raw body the parser was built from.
func (r *ResponseParser) ResponseData() string { return r.data }

// ResponseParams returns a copy of the normalized fields.
func (r *ResponseParser) ResponseParams() map[string]string {
	return maps.Clone(r.params)
}

// Lookup returns a field by its lower-case name.
func (r *ResponseParser) Lookup(key string) (string, bool) {
	v, ok := r.params[strings.ToLower(key)]
	return v, ok
}

// Field returns a field by name, or "" when absent.
func (r *ResponseParser) Field(key string) string {
	v, _ := r.Lookup(key)
	return v
}

// AdditionalVariables returns the custom fields echoed back by the gateway.
func (r *ResponseParser) AdditionalVariables() map[string]string {
	vars := make(map[string]string)
	for k, v := range r.params {
		if strings.HasPrefix(k, additionalVariablePrefix) {
			vars[k] = v
		}
	}
	return vars
}

// Amount returns brq_amount, or the negated brq_amount_credit for credit-only
// messages. The second result is false when neither field is present.
func (r *ResponseParser) Amount() (string, bool) {
	if v, ok := r.params["brq_amount"]; ok {
		return v, true
	}
	if v, ok := r.params["brq_amount_credit"]; ok {
		credit, err := decimal.NewFromString(v)
		if err != nil {
			return "", false
		}
		return credit.Neg().String(), true
	}
	return "", false
}

func (r *ResponseParser) APIResult() string { return r.Field("brq_apiresult") }
func (r *ResponseParser) BIC() string { return r.Field("brq_bic") }
func (r *ResponseParser) Currency() string { return r.Field("brq_currency") }
func (r *ResponseParser) ErrorMessage() string { return r.Field("brq_error") }
func (r *ResponseParser) IBAN() string { return r.Field("brq_iban") }
func (r *ResponseParser) InvoiceNumber() string { return r.Field("brq_invoicenumber") }
func (r *ResponseParser) MutationType() string { return r.Field("brq_mutationtype") }
func (r *ResponseParser) PaymentMethod() string { return r.Field("brq_payment_method") }
func (r *ResponseParser) RedirectURL() string { return r.Field("brq_redirecturl") }
func (r *ResponseParser) Signature() string { return r.Field(SignatureKey) }
func (r *ResponseParser) StatusCode() string { return r.Field("brq_statuscode") }
func (r *ResponseParser) StatusMessage() string { return r.Field("brq_statusmessage") }
func (r *ResponseParser) Timestamp() string { return r.Field("brq_timestamp") }
func (r *ResponseParser) Transactions() string { return r.Field("brq_transactions") }

func (r *ResponseParser) TransactionMethod() string { return r.Field("brq_transaction_method") }
func (r *ResponseParser) TransactionType() string { return r.Field("brq_transaction_type") }

func (r *ResponseParser) RelatedTransactionRefund() string {
	return r.Field("brq_relatedtransaction_refund")
}

func (r *ResponseParser) RelatedTransactionReversal() string {
	return r.Field("brq_relatedtransaction_reversal")
}

// CardNumberEnding returns the masked card suffix for mastercard or visa.
func (r *ResponseParser) CardNumberEnding() string {
	if v, ok := r.Lookup("brq_service_mastercard_cardnumberending"); ok {
		return v
	}
	return r.Field("brq_service_visa_cardnumberending")
}

func (r *ResponseParser) SEPACollectDate() string {
	return r.Field("brq_service_simplesepadirectdebit_collectdate")
}

func (r *ResponseParser) SEPAMandateReference() string {
	return r.Field("brq_service_simplesepadirectdebit_mandatereference")
}

func (r *ResponseParser) SEPAReasonCode() string {
	return r.Field("brq_service_simplesepadirectdebit_reasoncode")
}

func (r *ResponseParser) SEPAReasonText() string {
	return r.Field("brq_service_simplesepadirectdebit_reasonexplanation")
}

// Status classification. Codes are pinned by the remote service.
var (
	pendingCodes  = []string{"790", "791", "792", "793"}
	failureCodes  = []string{"490", "491", "492", "690", "890", "891"}
	reversalTypes = []string{"C501", "C502", "C562"}
)

const successCode = "190"

// Pending reports a provisional outcome awaiting processing.
func (r *ResponseParser) Pending() bool {
	return slices.Contains(pendingCodes, r.StatusCode())
}

// Success reports status 190. Result-only endpoints without a status code
// succeed when the API result is "success".
func (r *ResponseParser) Success() bool {
	if code, ok := r.Lookup("brq_statuscode"); ok {
		return code == successCode
	}
	return r.APIResultSuccess()
}

// Failure reports a definitive failure.
func (r *ResponseParser) Failure() bool {
	return slices.Contains(failureCodes, r.StatusCode())
}

func (r *ResponseParser) APIResultSuccess() bool {
	return strings.EqualFold(r.APIResult(), "success")
}

// IBANConverterSuccess reports a conversion without an error message.
func (r *ResponseParser) IBANConverterSuccess() bool {
	return strings.TrimSpace(r.ErrorMessage()) == ""
}

func (r *ResponseParser) Test() bool {
	return strings.EqualFold(r.Field("brq_test"), "true")
}

func (r *ResponseParser) isType(codes ...string) bool {
	t := r.TransactionType()
	for _, code := range codes {
		if strings.EqualFold(t, code) {
			return true
		}
	}
	return false
}

func (r *ResponseParser) Mastercard() bool { return r.isType("V043") }
func (r *ResponseParser) Visa() bool { return r.isType("V044") }
func (r *ResponseParser) CreditCard() bool { return r.Mastercard() || r.Visa() }
func (r *ResponseParser) Transfer() bool { return r.isType("C001", "C101") }
func (r *ResponseParser) DirectDebit() bool { return r.isType("C002") }
func (r *ResponseParser) DirectDebitRecurring() bool { return r.isType("C003") }
func (r *ResponseParser) SimpleSEPADirectDebit() bool { return r.isType("C008") }

// Reversal covers SEPA storno (C501), SEPA reject (C502) and direct debit reversal (C562).
func (r *ResponseParser) Reversal() bool { return r.isType(reversalTypes...) }
