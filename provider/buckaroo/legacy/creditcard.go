package legacy

import (
	"context"
	"encoding/xml"
	"errors"
	"strings"
)

const (
	batchSuccessStatus = "700"
	senderSessionID    = "sendersessionid"
)

// RecurringOptions describes one card charge delivered as a batch.
type RecurringOptions struct {
	BatchID     string `validate:"required"`
	CustomerID  string `validate:"required"`
	Description string `validate:"required"`
	Invoice     string `validate:"required"`
	ResponseURL string `validate:"required,url"`
	Notify      string
}

// CreditCardGateway submits recurring card charges through batch delivery.
type CreditCardGateway struct {
	*client
}

func NewCreditCardGateway(cfg Config, opts ...Option) (*CreditCardGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("legacy: merchantid and secretkey are required")
	}
	c, err := newClient(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &CreditCardGateway{client: c}, nil
}

// Recurring charges money (in cents) to the card stored for the customer.
// The batch is accepted when the reply status is 700.
func (g *CreditCardGateway) Recurring(ctx context.Context, money int64, opts RecurringOptions) (*Result, error) {
	if err := validateStruct(opts); err != nil {
		return nil, err
	}
	if err := validateCents(money); err != nil {
		return nil, err
	}

	now := g.now()
	msg := payMessage{
		Channel:   "batch",
		VersionID: versionID,
		Control: batchControl{
			Language:        language,
			Test:            g.testFlag(),
			BatchID:         opts.BatchID,
			Date:            now.Format(dateLayout),
			MerchantID:      g.config.MerchantID,
			MessageID:       "BatchDeliveryRequest",
			Notify:          opts.Notify,
			ResponseURL:     responseURL{Value: opts.ResponseURL},
			SenderSessionID: senderSessionID,
			Signature:       md5Hex(g.config.MerchantID + opts.BatchID + g.config.SecretKey),
			Time:            now.Format(timeLayout),
		},
		Content: batchContent{
			Transaction: batchTransaction{
				Amount:      amount{Currency: currencyEuro, Cents: money},
				CustomerID:  opts.CustomerID,
				Description: opts.Description,
				Invoice:     opts.Invoice,
			},
		},
	}
	if strings.HasPrefix(opts.ResponseURL, "https") {
		msg.Control.ResponseURL.SSL = opts.ResponseURL
	}

	sent, received, err := g.post(ctx, g.config.BatchURL, "BatchDelivery", msg)
	result := &Result{XMLSent: sent, XMLReceived: received, Err: err}
	if sent == "" {
		return nil, err
	}

	var reply batchReply
	if xml.Unmarshal([]byte(received), &reply) != nil {
		return result, nil
	}
	delivery := reply.Content.BatchDelivery
	result.Status = delivery.ResponseStatus
	result.Success = delivery.ResponseStatus == batchSuccessStatus
	if !result.Success {
		result.Message = string(delivery.AdditionalMessage)
	}
	return result, nil
}

type payMessage struct {
	XMLName   xml.Name     `xml:"PayMessage"`
	Channel   string       `xml:"Channel,attr"`
	VersionID string       `xml:"VersionID,attr"`
	Control   batchControl `xml:"Control"`
	Content   batchContent `xml:"Content"`
}

type batchControl struct {
	Language        string      `xml:"Language,attr"`
	Test            string      `xml:"Test,attr"`
	BatchID         string      `xml:"BatchID"`
	Date            string      `xml:"Date"`
	MerchantID      string      `xml:"MerchantID"`
	MessageID       string      `xml:"MessageID"`
	Notify          string      `xml:"Notify"`
	ResponseURL     responseURL `xml:"ResponseURL"`
	SenderSessionID string      `xml:"SenderSessionID"`
	Signature       string      `xml:"Signature"`
	Time            string      `xml:"Time"`
}

type responseURL struct {
	SSL   string `xml:"SSL,attr,omitempty"`
	Value string `xml:",chardata"`
}

type batchContent struct {
	Transaction batchTransaction `xml:"Transaction"`
}

type batchTransaction struct {
	Amount      amount `xml:"Amount"`
	CustomerID  string `xml:"CustomerID"`
	Description string `xml:"Description"`
	Invoice     string `xml:"Invoice"`
}

type batchReply struct {
	XMLName xml.Name `xml:"PayMessage"`
	Content struct {
		BatchDelivery struct {
			ResponseStatus    string    `xml:"ResponseStatus"`
			AdditionalMessage innerText `xml:"AdditionalMessage"`
		} `xml:"BatchDelivery"`
	} `xml:"Content"`
}
