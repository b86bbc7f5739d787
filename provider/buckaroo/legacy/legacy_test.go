package legacy

import (
	"context"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mstgnz/gobuckaroo/provider/buckaroo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	batchReplyXML = `<?xml version="1.0"?>
<PayMessage Channel="batch" VersionID="1.0">
  <Control Language="NL" Test="TRUE">
    <MerchantID>merchantid</MerchantID>
    <BatchID>1</BatchID>
    <MessageID>BatchDeliveryResponse</MessageID>
  </Control>
  <Content>
    <BatchDelivery>
      <ResponseStatus>%s</ResponseStatus>
      <ResponseStatusDescription>ok</ResponseStatusDescription>
      <AdditionalMessage>
        <Info>Batch rejected</Info>
        <ResponseURL>http://www.example.com/buckaroo/return</ResponseURL>
      </AdditionalMessage>
    </BatchDelivery>
  </Content>
</PayMessage>`

	mandateReplyXML = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <soap:Body>
    <EenmaligeMachtigingResponse xmlns="https://payment.buckaroo.nl/">
      <XMLMessage>
        <Payload VersionID="1.0" xmlns="">
          <Control Language="NL" Test="True">
            <Timestamp>2012-07-10 11:58:32</Timestamp>
            <MerchantID>merchantid</MerchantID>
          </Control>
          <Content>
            <Transaction Id="">
              <TransactionKey>transactionkey</TransactionKey>
              <Amount Currency="EUR">1000</Amount>
              <Invoice>2012-0001</Invoice>
              <ResponseStatus>%s</ResponseStatus>
              <AdditionalMessage>Eenmalige machtiging is nog niet verwerkt.</AdditionalMessage>
            </Transaction>
          </Content>
        </Payload>
      </XMLMessage>
    </EenmaligeMachtigingResponse>
  </soap:Body>
</soap:Envelope>`

	statusReplyXML = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <StatusRequestResponse xmlns="https://payment.buckaroo.nl/">
      <XMLMessage>
        <Payload xmlns="" VersionID="1.0">
          <Control Language="NL">
            <SenderSessionID/>
            <MerchantID>merchantid</MerchantID>
          </Control>
          <Content>
            <Invoice Test="FALSE">
              <InvoiceNumber>2012-0001</InvoiceNumber>
              <Amount>1190</Amount>
              <Reference/>
              <Status>%s</Status>
              <AdditionalMessage>Eenmalige machtiging is met succes verwerkt.</AdditionalMessage>
            </Invoice>
          </Content>
        </Payload>
      </XMLMessage>
    </StatusRequestResponse>
  </soap:Body>
</soap:Envelope>`
)

type recordingTransport struct {
	endpoint string
	body     string
	reply    string
	err      error
}

func (r *recordingTransport) PostForm(ctx context.Context, endpoint, body string, timeout time.Duration) (string, error) {
	return r.PostXML(ctx, endpoint, body, timeout)
}

func (r *recordingTransport) PostXML(_ context.Context, endpoint, body string, _ time.Duration) (string, error) {
	r.endpoint, r.body = endpoint, body
	return r.reply, r.err
}

func fixedClock() time.Time {
	return time.Date(2012, 7, 5, 16, 1, 17, 0, time.UTC)
}

func reply(format, status string) string {
	return strings.Replace(format, "%s", status, 1)
}

func TestCreditCardGateway_Recurring(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		success bool
		message string
	}{
		{name: "accepted", status: "700", success: true},
		{name: "rejected", status: "710", success: false, message: "Batch rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &recordingTransport{reply: reply(batchReplyXML, tt.status)}
			g, err := NewCreditCardGateway(Config{MerchantID: "merchantid", SecretKey: "secretkey", Test: true},
				WithTransport(transport), WithClock(fixedClock))
			require.NoError(t, err)

			result, err := g.Recurring(context.Background(), 1000, RecurringOptions{
				BatchID:     "1",
				CustomerID:  "company_1",
				Description: "Description",
				Invoice:     "2012-0001",
				ResponseURL: "https://www.example.com/buckaroo/return",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.success, result.Success)
			assert.Equal(t, tt.status, result.Status)
			assert.Contains(t, result.Message, tt.message)
			assert.Equal(t, BatchURL, transport.endpoint)
			assert.Equal(t, transport.body, result.XMLSent)

			var sent payMessage
			require.NoError(t, xml.Unmarshal([]byte(result.XMLSent), &sent))
			assert.Equal(t, "TRUE", sent.Control.Test)
			assert.Equal(t, "2012-07-05", sent.Control.Date)
			assert.Equal(t, "16:01:17", sent.Control.Time)
			assert.Equal(t, md5Hex("merchantid1secretkey"), sent.Control.Signature)
			assert.Equal(t, "https://www.example.com/buckaroo/return", sent.Control.ResponseURL.SSL)
			assert.Equal(t, int64(1000), sent.Content.Transaction.Amount.Cents)
			assert.Equal(t, "EUR", sent.Content.Transaction.Amount.Currency)
			assert.Equal(t, "company_1", sent.Content.Transaction.CustomerID)
			assert.Equal(t, "2012-0001", sent.Content.Transaction.Invoice)
		})
	}
}

func TestCreditCardGateway_RecurringEmptyReply(t *testing.T) {
	transport := &recordingTransport{reply: ""}
	g, err := NewCreditCardGateway(Config{MerchantID: "merchantid", SecretKey: "secretkey"}, WithTransport(transport))
	require.NoError(t, err)

	result, err := g.Recurring(context.Background(), 1000, RecurringOptions{
		BatchID:     "1",
		CustomerID:  "company_1",
		Description: "Description",
		Invoice:     "2012-0001",
		ResponseURL: "http://www.example.com/buckaroo/return",
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Empty(t, result.Status)
	assert.Empty(t, result.XMLReceived)
	assert.NotContains(t, result.XMLSent, "SSL=")
}

func TestNewGateways_RequireKeys(t *testing.T) {
	_, err := NewCreditCardGateway(Config{MerchantID: "merchantid"})
	assert.Error(t, err)
	_, err = NewCreditCardGateway(Config{SecretKey: "secretkey"})
	assert.ErrorIs(t, err, buckaroo.ErrInvalidOption)
	_, err = NewDirectDebitGateway(Config{MerchantID: "merchantid"})
	assert.Error(t, err)
	_, err = NewStatusGateway(Config{SOAPKey: "soapkey"})
	assert.ErrorIs(t, err, buckaroo.ErrInvalidOption)
}

func TestDirectDebitGateway_Purchase(t *testing.T) {
	transport := &recordingTransport{reply: reply(mandateReplyXML, "600")}
	g, err := NewDirectDebitGateway(Config{MerchantID: "merchantid", SOAPKey: "soapkey"},
		WithTransport(transport), WithClock(fixedClock))
	require.NoError(t, err)

	result, err := g.Purchase(context.Background(), 1000, DirectDebitOptions{
		AccountName:   "Berend Botje",
		AccountNumber: "123456789",
		Description:   "Description",
		Email:         "info@example.com",
		FirstName:     "Berend",
		Invoice:       "2012-0001",
		LastName:      "Botje",
		Reference:     "noref",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "600", result.Status)
	assert.Empty(t, result.Message)
	assert.Equal(t, SOAPURL, transport.endpoint)

	var sent struct {
		Body struct {
			Request struct {
				Payload struct {
					Control struct {
						Test       string `xml:"Test,attr"`
						MerchantID string `xml:"MerchantID"`
					} `xml:"Control"`
					Transaction mandateTransaction `xml:"Content>Transaction"`
				} `xml:"XMLMessage>Payload"`
				Signature signature `xml:"XMLSignature>Signature"`
			} `xml:"EenmaligeMachtiging"`
		} `xml:"Body"`
	}
	require.NoError(t, xml.Unmarshal([]byte(result.XMLSent), &sent))

	payload := sent.Body.Request.Payload
	assert.Equal(t, "merchantid", payload.Control.MerchantID)
	assert.Equal(t, "FALSE", payload.Control.Test)
	assert.Equal(t, "Berend", payload.Transaction.Customer.FirstName)
	assert.Equal(t, "9", payload.Transaction.Customer.Gender)
	assert.Equal(t, "info@example.com", payload.Transaction.Customer.Mail)
	assert.Equal(t, "123456789", payload.Transaction.AccountNumber)
	assert.Equal(t, int64(1000), payload.Transaction.Amount.Cents)
	assert.Equal(t, "2012-07-05", payload.Transaction.CollectDate)
	assert.Equal(t, "noref", payload.Transaction.Reference)

	sig := sent.Body.Request.Signature
	assert.Equal(t, "111", sig.CalculateMethod)
	assert.Equal(t, "SHA-2", sig.DigestMethod)
	assert.Equal(t, md5Hex("soapkey"), sig.Fingerprint)
	assert.Equal(t,
		sha256Hex("merchantid123456789Berend Botje2012-07-052012-0001norefEUR1000DescriptionFALSEsoapkey"),
		sig.SignatureValue)
}

func TestDirectDebitGateway_PurchaseRejected(t *testing.T) {
	transport := &recordingTransport{reply: reply(mandateReplyXML, "690")}
	g, err := NewDirectDebitGateway(Config{MerchantID: "merchantid", SOAPKey: "soapkey"}, WithTransport(transport))
	require.NoError(t, err)

	result, err := g.Purchase(context.Background(), 1000, DirectDebitOptions{
		AccountName:   "Berend Botje",
		AccountNumber: "123456789",
		Description:   "Description",
		Email:         "info@example.com",
		FirstName:     "Berend",
		Invoice:       "2012-0001",
		LastName:      "Botje",
		Reference:     "noref",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Eenmalige machtiging is nog niet verwerkt.", result.Message)
}

func TestDirectDebitGateway_Validation(t *testing.T) {
	transport := &recordingTransport{}
	g, err := NewDirectDebitGateway(Config{MerchantID: "merchantid", SOAPKey: "soapkey"}, WithTransport(transport))
	require.NoError(t, err)

	_, err = g.Purchase(context.Background(), 1000, DirectDebitOptions{
		AccountName:   "Berend Botje",
		AccountNumber: "123456789",
		Description:   "Description",
		Email:         "not-an-email",
		FirstName:     "Berend",
		Invoice:       "2012-0001",
		LastName:      "Botje",
		Reference:     "noref",
	})
	var verr *buckaroo.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	_, err = g.Purchase(context.Background(), 0, DirectDebitOptions{
		AccountName:   "Berend Botje",
		AccountNumber: "123456789",
		Description:   "Description",
		Email:         "info@example.com",
		FirstName:     "Berend",
		Invoice:       "2012-0001",
		LastName:      "Botje",
		Reference:     "noref",
	})
	assert.ErrorIs(t, err, buckaroo.ErrInvalidOption)
	assert.Empty(t, transport.body)
}

func TestStatusGateway_ForInvoiceID(t *testing.T) {
	tests := []struct {
		status  string
		success bool
	}{
		{status: "100", success: true},
		{status: "301", success: true},
		{status: "601", success: true},
		{status: "602", success: false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			transport := &recordingTransport{reply: reply(statusReplyXML, tt.status)}
			g, err := NewStatusGateway(Config{MerchantID: "merchantid", SOAPKey: "soapkey"},
				WithTransport(transport), WithClock(fixedClock))
			require.NoError(t, err)

			result, err := g.ForInvoiceID(context.Background(), "2012-0001")
			require.NoError(t, err)

			assert.Equal(t, tt.success, result.Success)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, "Eenmalige machtiging is met succes verwerkt.", result.Message)

			assert.Contains(t, result.XMLSent, "<Invoice>2012-0001</Invoice>")
			assert.Contains(t, result.XMLSent, "<MerchantID>merchantid</MerchantID>")
			assert.Contains(t, result.XMLSent, "<Timestamp>2012-07-05 16:01:17</Timestamp>")
			assert.Contains(t, result.XMLSent, "<CalculateMethod>199</CalculateMethod>")
			assert.Contains(t, result.XMLSent, "<SignatureValue>"+sha256Hex("merchantidsoapkey")+"</SignatureValue>")
			assert.Contains(t, result.XMLSent, `<StatusRequest xmlns="https://payment.buckaroo.nl/">`)
		})
	}
}

func TestStatusGateway_TransportError(t *testing.T) {
	transport := &recordingTransport{err: errors.New("connection refused")}
	g, err := NewStatusGateway(Config{MerchantID: "merchantid", SOAPKey: "soapkey"}, WithTransport(transport))
	require.NoError(t, err)

	result, err := g.ForInvoiceID(context.Background(), "2012-0001")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Error(t, result.Err)

	_, err = g.ForInvoiceID(context.Background(), " ")
	assert.ErrorIs(t, err, buckaroo.ErrInvalidOption)
}
