package legacy

import (
	"context"
	"encoding/xml"
	"errors"
	"slices"
	"strings"
)

const statusCalculateMethod = "199"

// Status codes that mean an invoice was paid: 100 credit card, 301 bank
// transfer, 601 direct debit.
var statusSuccessCodes = []string{"100", "301", "601"}

// StatusGateway queries invoice status over SOAP.
type StatusGateway struct {
	*client
	fingerprint string
}

func NewStatusGateway(cfg Config, opts ...Option) (*StatusGateway, error) {
	if cfg.SOAPKey == "" {
		return nil, errors.New("legacy: merchantid and soapkey are required")
	}
	c, err := newClient(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &StatusGateway{client: c, fingerprint: md5Hex(cfg.SOAPKey)}, nil
}

// ForInvoiceID returns the latest status of an invoice. The message is kept
// on success too.
func (g *StatusGateway) ForInvoiceID(ctx context.Context, invoiceID string) (*Result, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, validateStruct(struct {
			InvoiceID string `validate:"required"`
		}{})
	}

	req := &statusRequest{
		XMLNS: soapNamespace,
		Message: statusMessage{
			Payload: statusPayload{
				VersionID: versionID,
				Control: soapControl{
					Language:   language,
					Timestamp:  g.now().Format(stampLayout),
					MerchantID: g.config.MerchantID,
				},
				Invoice: invoiceID,
			},
		},
		Signature: xmlSignature{Signature: signature{
			Fingerprint:     g.fingerprint,
			DigestMethod:    digestMethod,
			CalculateMethod: statusCalculateMethod,
			SignatureValue:  sha256Hex(g.config.MerchantID + g.config.SOAPKey),
		}},
	}

	sent, received, err := g.post(ctx, g.config.SOAPURL, "StatusRequest", newEnvelope(soapBody{Status: req}))
	result := &Result{XMLSent: sent, XMLReceived: received, Err: err}
	if sent == "" {
		return nil, err
	}

	var reply soapReply
	if xml.Unmarshal([]byte(received), &reply) != nil {
		return result, nil
	}
	invoice := reply.Body.Response.Message.Payload.Content.Invoice
	result.Status = invoice.Status
	result.Message = string(invoice.AdditionalMessage)
	result.Success = slices.Contains(statusSuccessCodes, invoice.Status)
	return result, nil
}

type statusRequest struct {
	XMLNS     string        `xml:"xmlns,attr"`
	Message   statusMessage `xml:"XMLMessage"`
	Signature xmlSignature  `xml:"XMLSignature"`
}

type statusMessage struct {
	Payload statusPayload `xml:"Payload"`
}

type statusPayload struct {
	VersionID string      `xml:"VersionID,attr"`
	XMLNS     string      `xml:"xmlns,attr"`
	Control   soapControl `xml:"Control"`
	Invoice   string      `xml:"Content>Invoice"`
}
