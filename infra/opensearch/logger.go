package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// ExchangeLog is one signed request and the reply the gateway gave
type ExchangeLog struct {
	Timestamp     time.Time  `json:"timestamp"`
	TenantID      string     `json:"tenant_id,omitempty"`
	Provider      string     `json:"provider"`
	Operation     string     `json:"operation"`
	RequestID     string     `json:"request_id"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	StatusCode    string     `json:"status_code,omitempty"`
	Status        string     `json:"status,omitempty"`
	Valid         bool       `json:"valid"`
	Success       bool       `json:"success"`
	Request       string     `json:"request,omitempty"`
	Response      string     `json:"response,omitempty"`
	ProcessingMs  int64      `json:"processing_time_ms"`
	Error         *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogExchange indexes a gateway exchange. Bodies are sanitized first.
func (l *Logger) LogExchange(ctx context.Context, log ExchangeLog) error {
	if !l.client.IsEnabled() {
		return nil
	}

	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	if log.RequestID == "" {
		log.RequestID = uuid.New().String()
	}
	log.Request = SanitizeForLog(log.Request)
	log.Response = SanitizeForLog(log.Response)

	if err := l.client.index(ctx, ExchangeIndex, log); err != nil {
		return fmt.Errorf("opensearch: log exchange: %w", err)
	}
	return nil
}

// SearchExchanges returns the latest exchanges of a tenant, optionally for one invoice
func (l *Logger) SearchExchanges(ctx context.Context, tenantID, invoiceNumber string, size int) ([]ExchangeLog, error) {
	if !l.client.IsEnabled() {
		return nil, nil
	}
	if size <= 0 {
		size = 50
	}

	must := []map[string]any{
		{"term": map[string]any{"tenant_id": tenantID}},
	}
	if invoiceNumber != "" {
		must = append(must, map[string]any{"term": map[string]any{"invoice_number": invoiceNumber}})
	}

	query := map[string]any{
		"size":  size,
		"sort":  []map[string]any{{"timestamp": map[string]any{"order": "desc"}}},
		"query": map[string]any{"bool": map[string]any{"must": must}},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{ExchangeIndex},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source ExchangeLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	logs := make([]ExchangeLog, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		logs = append(logs, hit.Source)
	}
	return logs, nil
}

// LogSystemEvent logs a system event to OpenSearch
func (l *Logger) LogSystemEvent(ctx context.Context, log any) error {
	if !l.client.IsEnabled() {
		return nil
	}

	if err := l.client.index(ctx, SystemLogIndex, log); err != nil {
		return fmt.Errorf("opensearch: log system event: %w", err)
	}
	return nil
}

var sensitiveFields = []string{
	"brq_websitekey", "secretKey", "websiteKey", "soapKey", "password", "token", "authorization",
}

// accountFields are matched as key suffixes since gateway keys carry the
// service name, as in brq_service_simplesepadirectdebit_customeriban.
var accountFields = []string{"customeriban", "customeraccountnumber", "accountnumber", "iban"}

var sensitivePatterns = buildSensitivePatterns()

type redaction struct {
	pattern *regexp.Regexp
	replace string
}

func buildSensitivePatterns() []redaction {
	patterns := make([]redaction, 0, len(sensitiveFields)*2+len(accountFields)*3)
	for _, field := range sensitiveFields {
		quoted := regexp.QuoteMeta(field)
		patterns = append(patterns,
			redaction{
				pattern: regexp.MustCompile(`(?i)"` + quoted + `"\s*:\s*"[^"]*"`),
				replace: `"` + field + `":"***REDACTED***"`,
			},
			redaction{
				pattern: regexp.MustCompile(`(?i)(^|[&?])` + quoted + `=[^&]*`),
				replace: "${1}" + field + "=***REDACTED***",
			},
		)
	}
	for _, field := range accountFields {
		quoted := regexp.QuoteMeta(field)
		patterns = append(patterns,
			redaction{
				pattern: regexp.MustCompile(`(?i)"((?:[^"]*_)?` + quoted + `)"\s*:\s*"[^"]*"`),
				replace: `"${1}":"***REDACTED***"`,
			},
			redaction{
				pattern: regexp.MustCompile(`(?i)(^|[&?])((?:[^&=]*_)?` + quoted + `)=[^&]*`),
				replace: "${1}${2}=***REDACTED***",
			},
			redaction{
				pattern: regexp.MustCompile(`(?i)<((?:\w+:)?(?:customer)?` + quoted + `)>[^<]*</`),
				replace: "<${1}>***REDACTED***</",
			},
		)
	}
	return patterns
}

// SanitizeForLog redacts credentials and account numbers in JSON, XML and form encoded bodies
func SanitizeForLog(data string) string {
	if data == "" {
		return data
	}
	result := data
	for _, r := range sensitivePatterns {
		result = r.pattern.ReplaceAllString(result, r.replace)
	}
	return result
}
