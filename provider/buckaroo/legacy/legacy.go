// Package legacy talks to the pre-BPE3 Buckaroo batch and SOAP interfaces.
// Only recurring card batches, one-off direct debits and invoice status
// queries are supported.
package legacy

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gobuckaroo/infra/logger"
	"github.com/mstgnz/gobuckaroo/provider"
	"github.com/mstgnz/gobuckaroo/provider/buckaroo"
)

const (
	BatchURL = "https://payment.buckaroo.nl/batch/batch_delivery.asp"
	SOAPURL  = "https://payment.buckaroo.nl/soap/soap.asmx"

	DefaultTimeout = 300 * time.Second

	providerName  = "buckaroo-legacy"
	digestMethod  = "SHA-2"
	language      = "NL"
	versionID     = "1.0"
	currencyEuro  = "EUR"
	soapNamespace = "https://payment.buckaroo.nl/"
	dateLayout    = "2006-01-02"
	timeLayout    = "15:04:05"
	stampLayout   = "2006-01-02 15:04:05"
)

// Config identifies the merchant. SecretKey signs batch messages, SOAPKey
// signs SOAP envelopes.
type Config struct {
	MerchantID string `validate:"required"`
	SecretKey  string
	SOAPKey    string
	Test       bool
	BatchURL   string `validate:"omitempty,url"`
	SOAPURL    string `validate:"omitempty,url"`
	Timeout    time.Duration
}

// Result is the outcome of a legacy call. Both XML documents are kept for
// auditing.
type Result struct {
	Success     bool
	Message     string
	Status      string
	XMLSent     string
	XMLReceived string
	Err         error
}

type Option func(*client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t provider.Transport) Option {
	return func(c *client) {
		c.transport = t
	}
}

// WithClock replaces time.Now for message timestamps and collect dates.
func WithClock(now func() time.Time) Option {
	return func(c *client) {
		c.now = now
	}
}

type client struct {
	config    Config
	transport provider.Transport
	now       func() time.Time
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func newClient(cfg Config, opts []Option) (*client, error) {
	if err := validateStruct(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchURL == "" {
		cfg.BatchURL = BatchURL
	}
	if cfg.SOAPURL == "" {
		cfg.SOAPURL = SOAPURL
	}

	c := &client{config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = provider.NewHTTPTransport(provider.CreateHTTPClientConfig(cfg.Timeout))
	}
	return c, nil
}

func (c *client) testFlag() string {
	if c.config.Test {
		return "TRUE"
	}
	return "FALSE"
}

// post marshals doc, sends it and returns the exchanged documents. Transport
// failures come back as an empty reply.
func (c *client) post(ctx context.Context, endpoint, operation string, doc any) (sent, received string, err error) {
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("legacy: marshal %s: %w", operation, err)
	}
	sent = xml.Header + string(out)

	received, err = c.transport.PostXML(ctx, endpoint, sent, c.config.Timeout)
	if err != nil {
		logger.Warn("Buckaroo legacy request failed", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"operation": operation,
				"error":     err.Error(),
			},
		})
	}
	return sent, received, err
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "is invalid"
		switch fe.Tag() {
		case "required":
			reason = "is required"
		case "email":
			reason = "should be an e-mail address"
		case "url":
			reason = "should be an absolute URL"
		}
		return &buckaroo.ValidationError{Field: strings.ToLower(fe.Field()), Reason: reason}
	}
	return fmt.Errorf("%w: %v", buckaroo.ErrInvalidOption, err)
}

func validateCents(money int64) error {
	if money <= 0 {
		return &buckaroo.ValidationError{Field: "money", Reason: "should be more than 0"}
	}
	return nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

type amount struct {
	Currency string `xml:"Currency,attr"`
	Cents    int64  `xml:",chardata"`
}

type signature struct {
	XMLNS           string `xml:"xmlns,attr"`
	Fingerprint     string `xml:"Fingerprint"`
	DigestMethod    string `xml:"DigestMethod"`
	CalculateMethod string `xml:"CalculateMethod"`
	SignatureValue  string `xml:"SignatureValue"`
}

type xmlSignature struct {
	Signature signature `xml:"Signature"`
}

type soapControl struct {
	Language   string `xml:"Language,attr"`
	Test       string `xml:"Test,attr,omitempty"`
	Timestamp  string `xml:"Timestamp"`
	MerchantID string `xml:"MerchantID"`
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	XSI     string   `xml:"xmlns:xsi,attr"`
	XSD     string   `xml:"xmlns:xsd,attr"`
	Soap    string   `xml:"xmlns:soap,attr"`
	Body    soapBody `xml:"soap:Body"`
}

type soapBody struct {
	Mandate *mandateRequest `xml:"EenmaligeMachtiging,omitempty"`
	Status  *statusRequest  `xml:"StatusRequest,omitempty"`
}

func newEnvelope(body soapBody) soapEnvelope {
	return soapEnvelope{
		XSI:  "http://www.w3.org/2001/XMLSchema-instance",
		XSD:  "http://www.w3.org/2001/XMLSchema",
		Soap: "http://schemas.xmlsoap.org/soap/envelope/",
		Body: body,
	}
}

// soapReply reads the payload of any SOAP response regardless of the
// response element name.
type soapReply struct {
	Body struct {
		Response struct {
			Message struct {
				Payload replyPayload `xml:"Payload"`
			} `xml:"XMLMessage"`
		} `xml:",any"`
	} `xml:"Body"`
}

type replyPayload struct {
	Control struct {
		MerchantID string `xml:"MerchantID"`
	} `xml:"Control"`
	Content struct {
		Transaction struct {
			TransactionKey    string    `xml:"TransactionKey"`
			ResponseStatus    string    `xml:"ResponseStatus"`
			AdditionalMessage innerText `xml:"AdditionalMessage"`
		} `xml:"Transaction"`
		Invoice struct {
			InvoiceNumber     string    `xml:"InvoiceNumber"`
			Status            string    `xml:"Status"`
			AdditionalMessage innerText `xml:"AdditionalMessage"`
		} `xml:"Invoice"`
	} `xml:"Content"`
}

// innerText collects all character data of an element and its children.
type innerText string

func (t *innerText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = innerText(strings.TrimSpace(b.String()))
				return nil
			}
			depth--
		}
	}
}
