package legacy

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
)

const (
	mandateSuccessStatus   = "600"
	mandateCalculateMethod = "111"
	genderUnknown          = "9"
)

// DirectDebitOptions describes a one-off direct debit mandate.
type DirectDebitOptions struct {
	AccountName   string `validate:"required"`
	AccountNumber string `validate:"required"`
	Description   string `validate:"required"`
	Email         string `validate:"required,email"`
	FirstName     string `validate:"required"`
	Invoice       string `validate:"required"`
	LastName      string `validate:"required"`
	Reference     string `validate:"required"`
}

// DirectDebitGateway submits one-off direct debits over SOAP.
type DirectDebitGateway struct {
	*client
	fingerprint string
}

func NewDirectDebitGateway(cfg Config, opts ...Option) (*DirectDebitGateway, error) {
	if cfg.SOAPKey == "" {
		return nil, errors.New("legacy: merchantid and soapkey are required")
	}
	c, err := newClient(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &DirectDebitGateway{client: c, fingerprint: md5Hex(cfg.SOAPKey)}, nil
}

// Purchase collects money (in cents) today. The mandate is accepted when the
// reply status is 600.
func (g *DirectDebitGateway) Purchase(ctx context.Context, money int64, opts DirectDebitOptions) (*Result, error) {
	if err := validateStruct(opts); err != nil {
		return nil, err
	}
	if err := validateCents(money); err != nil {
		return nil, err
	}

	now := g.now()
	collectDate := now.Format(dateLayout)
	test := g.testFlag()
	signed := fmt.Sprintf("%s%s%s%s%s%s%s%d%s%s%s",
		g.config.MerchantID, opts.AccountNumber, opts.AccountName, collectDate,
		opts.Invoice, opts.Reference, currencyEuro, money, opts.Description, test, g.config.SOAPKey)

	req := &mandateRequest{
		XMLNS: soapNamespace,
		Message: mandateMessage{
			Payload: mandatePayload{
				VersionID: versionID,
				Control: soapControl{
					Language:   language,
					Test:       test,
					Timestamp:  now.Format(stampLayout),
					MerchantID: g.config.MerchantID,
				},
				Transaction: mandateTransaction{
					Customer: mandateCustomer{
						FirstName: opts.FirstName,
						Gender:    genderUnknown,
						LastName:  opts.LastName,
						Mail:      opts.Email,
					},
					AccountName:   opts.AccountName,
					AccountNumber: opts.AccountNumber,
					Amount:        amount{Currency: currencyEuro, Cents: money},
					Description:   opts.Description,
					CollectDate:   collectDate,
					Invoice:       opts.Invoice,
					Reference:     opts.Reference,
				},
			},
		},
		Signature: xmlSignature{Signature: signature{
			Fingerprint:     g.fingerprint,
			DigestMethod:    digestMethod,
			CalculateMethod: mandateCalculateMethod,
			SignatureValue:  sha256Hex(signed),
		}},
	}

	sent, received, err := g.post(ctx, g.config.SOAPURL, "EenmaligeMachtiging", newEnvelope(soapBody{Mandate: req}))
	result := &Result{XMLSent: sent, XMLReceived: received, Err: err}
	if sent == "" {
		return nil, err
	}

	var reply soapReply
	if xml.Unmarshal([]byte(received), &reply) != nil {
		return result, nil
	}
	tx := reply.Body.Response.Message.Payload.Content.Transaction
	result.Status = tx.ResponseStatus
	result.Success = tx.ResponseStatus == mandateSuccessStatus
	if !result.Success {
		result.Message = string(tx.AdditionalMessage)
	}
	return result, nil
}

type mandateRequest struct {
	XMLNS     string         `xml:"xmlns,attr"`
	Message   mandateMessage `xml:"XMLMessage"`
	Signature xmlSignature   `xml:"XMLSignature"`
}

type mandateMessage struct {
	Payload mandatePayload `xml:"Payload"`
}

type mandatePayload struct {
	VersionID   string             `xml:"VersionID,attr"`
	XMLNS       string             `xml:"xmlns,attr"`
	Control     soapControl        `xml:"Control"`
	Transaction mandateTransaction `xml:"Content>Transaction"`
}

type mandateCustomer struct {
	FirstName string `xml:"Firstname"`
	Gender    string `xml:"Gender"`
	LastName  string `xml:"Lastname"`
	Mail      string `xml:"Mail"`
}

type mandateTransaction struct {
	Customer      mandateCustomer `xml:"Customer"`
	AccountName   string          `xml:"AccountName"`
	AccountNumber string          `xml:"AccountNumber"`
	Amount        amount          `xml:"Amount"`
	Description   string          `xml:"Description"`
	CollectDate   string          `xml:"CollectDate"`
	Invoice       string          `xml:"Invoice"`
	Reference     string          `xml:"Reference"`
}
