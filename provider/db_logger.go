package provider

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/gobuckaroo/infra/logger"
	"github.com/mstgnz/gobuckaroo/infra/opensearch"
)

const defaultExchangeLimit = 50

const exchangeColumns = `created_at, request_id, tenant_id, provider, operation, invoice_number,
	status_code, status, valid, success, request, response, processing_ms, error`

var exchangeSchemas = map[string]string{
	"sqlite": `
		CREATE TABLE IF NOT EXISTS gateway_exchanges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME NOT NULL,
			request_id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			operation TEXT NOT NULL,
			invoice_number TEXT,
			status_code TEXT,
			status TEXT,
			valid BOOLEAN NOT NULL DEFAULT 0,
			success BOOLEAN NOT NULL DEFAULT 0,
			request TEXT,
			response TEXT,
			processing_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_exchanges_tenant_invoice ON gateway_exchanges(tenant_id, invoice_number);`,
	"postgres": `
		CREATE TABLE IF NOT EXISTS gateway_exchanges (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			request_id VARCHAR(36) NOT NULL,
			tenant_id VARCHAR(64) NOT NULL,
			provider VARCHAR(64) NOT NULL,
			operation VARCHAR(64) NOT NULL,
			invoice_number VARCHAR(64),
			status_code VARCHAR(8),
			status VARCHAR(16),
			valid BOOLEAN NOT NULL DEFAULT FALSE,
			success BOOLEAN NOT NULL DEFAULT FALSE,
			request TEXT,
			response TEXT,
			processing_ms BIGINT NOT NULL DEFAULT 0,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_exchanges_tenant_invoice ON gateway_exchanges(tenant_id, invoice_number);`,
}

// DBExchangeLogger stores gateway exchanges in the gateway_exchanges table
type DBExchangeLogger struct {
	db     *sql.DB
	driver string
}

// NewDBExchangeLogger creates an exchange logger for a sqlite or postgres database
func NewDBExchangeLogger(db *sql.DB, driver string) (*DBExchangeLogger, error) {
	if _, ok := exchangeSchemas[driver]; !ok {
		return nil, fmt.Errorf("provider: unsupported exchange log driver %q", driver)
	}
	return &DBExchangeLogger{db: db, driver: driver}, nil
}

// EnsureSchema creates the exchange table when it does not exist
func (l *DBExchangeLogger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, exchangeSchemas[l.driver]); err != nil {
		return fmt.Errorf("failed to create gateway_exchanges: %w", err)
	}
	return nil
}

// placeholders returns n bind parameters in the driver's syntax, starting at from
func (l *DBExchangeLogger) placeholders(from, n int) []string {
	params := make([]string, n)
	for i := range params {
		if l.driver == "postgres" {
			params[i] = fmt.Sprintf("$%d", from+i)
		} else {
			params[i] = "?"
		}
	}
	return params
}

// LogExchange implements ExchangeLogger. Bodies are sanitized before they are stored.
func (l *DBExchangeLogger) LogExchange(ctx context.Context, exchange Exchange) error {
	if exchange.Timestamp.IsZero() {
		exchange.Timestamp = time.Now().UTC()
	}
	if exchange.RequestID == "" {
		exchange.RequestID = uuid.New().String()
	}

	query := fmt.Sprintf(`INSERT INTO gateway_exchanges (%s) VALUES (%s)`,
		exchangeColumns, strings.Join(l.placeholders(1, 14), ", "))

	_, err := l.db.ExecContext(ctx, query,
		exchange.Timestamp,
		exchange.RequestID,
		exchange.TenantID,
		exchange.Provider,
		exchange.Operation,
		exchange.InvoiceNumber,
		exchange.StatusCode,
		string(exchange.Status),
		exchange.Valid,
		exchange.Success,
		opensearch.SanitizeForLog(exchange.Request),
		opensearch.SanitizeForLog(exchange.Response),
		exchange.ProcessingMs,
		exchange.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to log exchange: %w", err)
	}

	logger.Debug("Exchange logged", logger.LogContext{
		TenantID:  exchange.TenantID,
		Provider:  exchange.Provider,
		RequestID: exchange.RequestID,
		Fields: map[string]any{
			"operation":      exchange.Operation,
			"invoice_number": exchange.InvoiceNumber,
		},
	})

	return nil
}

// SearchExchanges implements ExchangeSearcher. An empty invoice number returns all of the tenant's exchanges.
func (l *DBExchangeLogger) SearchExchanges(ctx context.Context, tenantID, invoiceNumber string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = defaultExchangeLimit
	}

	args := []any{tenantID}
	where := "tenant_id = " + l.placeholders(1, 1)[0]
	if invoiceNumber != "" {
		args = append(args, invoiceNumber)
		where += " AND invoice_number = " + l.placeholders(2, 1)[0]
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM gateway_exchanges WHERE %s ORDER BY created_at DESC, id DESC LIMIT %s`,
		exchangeColumns, where, l.placeholders(len(args), 1)[0])

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var (
			e                                       Exchange
			invoice, code, status, req, res, errMsg sql.NullString
		)
		if err := rows.Scan(&e.Timestamp, &e.RequestID, &e.TenantID, &e.Provider, &e.Operation, &invoice,
			&code, &status, &e.Valid, &e.Success, &req, &res, &e.ProcessingMs, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		e.InvoiceNumber = invoice.String
		e.StatusCode = code.String
		e.Status = PaymentStatus(status.String)
		e.Request = req.String
		e.Response = res.String
		e.Error = errMsg.String
		exchanges = append(exchanges, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchanges: %w", err)
	}

	return exchanges, nil
}
