package provider

import (
	"context"
	"errors"
	"time"

	"github.com/mstgnz/gobuckaroo/infra/opensearch"
)

// Exchange is one gateway round trip as recorded by an ExchangeLogger
type Exchange struct {
	Timestamp     time.Time     `json:"timestamp"`
	RequestID     string        `json:"requestId"`
	TenantID      string        `json:"tenantId"`
	Provider      string        `json:"provider"`
	Operation     string        `json:"operation"`
	InvoiceNumber string        `json:"invoiceNumber,omitempty"`
	StatusCode    string        `json:"statusCode,omitempty"`
	Status        PaymentStatus `json:"status,omitempty"`
	Valid         bool          `json:"valid"`
	Success       bool          `json:"success"`
	Request       string        `json:"request,omitempty"`
	Response      string        `json:"response,omitempty"`
	ProcessingMs  int64         `json:"processingMs"`
	Error         string        `json:"error,omitempty"`
}

// ExchangeLogger records gateway exchanges
type ExchangeLogger interface {
	LogExchange(ctx context.Context, exchange Exchange) error
}

// ExchangeSearcher returns recorded exchanges, newest first
type ExchangeSearcher interface {
	SearchExchanges(ctx context.Context, tenantID, invoiceNumber string, limit int) ([]Exchange, error)
}

// OpenSearchExchangeLogger indexes exchanges in OpenSearch
type OpenSearchExchangeLogger struct {
	logger *opensearch.Logger
}

// NewOpenSearchExchangeLogger wraps an OpenSearch logger
func NewOpenSearchExchangeLogger(logger *opensearch.Logger) *OpenSearchExchangeLogger {
	return &OpenSearchExchangeLogger{logger: logger}
}

// LogExchange implements ExchangeLogger
func (l *OpenSearchExchangeLogger) LogExchange(ctx context.Context, exchange Exchange) error {
	doc := opensearch.ExchangeLog{
		Timestamp:     exchange.Timestamp,
		TenantID:      exchange.TenantID,
		Provider:      exchange.Provider,
		Operation:     exchange.Operation,
		RequestID:     exchange.RequestID,
		InvoiceNumber: exchange.InvoiceNumber,
		StatusCode:    exchange.StatusCode,
		Status:        string(exchange.Status),
		Valid:         exchange.Valid,
		Success:       exchange.Success,
		Request:       exchange.Request,
		Response:      exchange.Response,
		ProcessingMs:  exchange.ProcessingMs,
	}
	if exchange.Error != "" {
		doc.Error = &opensearch.ErrorInfo{Code: "GATEWAY_ERROR", Message: exchange.Error}
	}
	return l.logger.LogExchange(ctx, doc)
}

// SearchExchanges implements ExchangeSearcher
func (l *OpenSearchExchangeLogger) SearchExchanges(ctx context.Context, tenantID, invoiceNumber string, limit int) ([]Exchange, error) {
	docs, err := l.logger.SearchExchanges(ctx, tenantID, invoiceNumber, limit)
	if err != nil {
		return nil, err
	}

	exchanges := make([]Exchange, 0, len(docs))
	for _, doc := range docs {
		exchange := Exchange{
			Timestamp:     doc.Timestamp,
			RequestID:     doc.RequestID,
			TenantID:      doc.TenantID,
			Provider:      doc.Provider,
			Operation:     doc.Operation,
			InvoiceNumber: doc.InvoiceNumber,
			StatusCode:    doc.StatusCode,
			Status:        PaymentStatus(doc.Status),
			Valid:         doc.Valid,
			Success:       doc.Success,
			Request:       doc.Request,
			Response:      doc.Response,
			ProcessingMs:  doc.ProcessingMs,
		}
		if doc.Error != nil {
			exchange.Error = doc.Error.Message
		}
		exchanges = append(exchanges, exchange)
	}
	return exchanges, nil
}

// MultiExchangeLogger writes each exchange to every logger
type MultiExchangeLogger []ExchangeLogger

// LogExchange implements ExchangeLogger. All loggers are tried; their errors are joined.
func (m MultiExchangeLogger) LogExchange(ctx context.Context, exchange Exchange) error {
	var errs []error
	for _, l := range m {
		if err := l.LogExchange(ctx, exchange); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
