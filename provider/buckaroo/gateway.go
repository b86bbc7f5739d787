package buckaroo

import (
	"context"
	"time"

	"github.com/mstgnz/gobuckaroo/infra/logger"
	"github.com/mstgnz/gobuckaroo/provider"
	"github.com/shopspring/decimal"
)

const (
	// API URLs
	LiveURL = "https://checkout.buckaroo.nl/nvp/"
	TestURL = "https://testcheckout.buckaroo.nl/nvp/"

	// Operations
	OperationTransactionRequest = "TransactionRequest"
	OperationIBANConverter      = "IbanConverter"
	OperationInvoiceInfo        = "InvoiceInfo"

	DefaultTimeout       = 300 * time.Second
	IBANConverterTimeout = 4 * time.Second

	providerName           = "buckaroo"
	invalidResponseMessage = "Invalid response"
	channelCallCenter      = "CALLCENTER"
	defaultCulture         = "EN"
	defaultCurrency        = "EUR"
)

// Config holds the merchant credentials and endpoint of a gateway. A gateway
// keeps its own copy, so a Config can be reused freely.
type Config struct {
	SecretKey     string `validate:"required"`
	WebsiteKey    string `validate:"required"`
	Test          bool
	BaseURL       string `validate:"omitempty,url"`
	Timeout       time.Duration
	MandatePrefix string
}

// Endpoint returns the NVP URL for an operation.
func (c Config) Endpoint(operation string) string {
	base := c.BaseURL
	if base == "" {
		base = LiveURL
		if c.Test {
			base = TestURL
		}
	}
	return base + "?op=" + operation
}

// Option customizes a gateway at construction.
type Option func(*Gateway)

// WithTransport replaces the default HTTP transport.
func WithTransport(t provider.Transport) Option {
	return func(g *Gateway) {
		g.transport = t
	}
}

// Gateway signs, submits and parses one BPE3 exchange per call. It is
// immutable after construction and safe for concurrent use.
type Gateway struct {
	config    Config
	transport provider.Transport
}

// NewGateway validates cfg and returns a gateway using the default timeout.
func NewGateway(cfg Config, opts ...Option) (*Gateway, error) {
	return newGateway(cfg, DefaultTimeout, opts)
}

func newGateway(cfg Config, defaultTimeout time.Duration, opts []Option) (*Gateway, error) {
	if err := validateOptions(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	g := &Gateway{config: cfg}
	for _, opt := range opts {
		opt(g)
	}
	if g.transport == nil {
		g.transport = provider.NewHTTPTransport(provider.CreateHTTPClientConfig(cfg.Timeout))
	}
	return g, nil
}

// Config returns a copy of the gateway configuration.
func (g *Gateway) Config() Config {
	return g.config
}

// successPolicy decides the final success flag of a verified response.
type successPolicy func(*ResponseParser) bool

var (
	requirePending   successPolicy = (*ResponseParser).Pending
	requireSuccess   successPolicy = (*ResponseParser).Success
	requireAPIResult successPolicy = (*ResponseParser).APIResultSuccess
)

func (g *Gateway) call(ctx context.Context, operation string, params Params, policy successPolicy) *Response {
	signature := CreateSignature(params, g.config.SecretKey)
	postData := CreatePostData(params, signature)

	start := time.Now()
	body, err := g.transport.PostForm(ctx, g.config.Endpoint(operation), postData, g.config.Timeout)
	if err != nil {
		logger.Warn("Buckaroo request failed", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"operation": operation,
				"error":     err.Error(),
			},
		})
	}

	parser := ParseResponse(body, g.config.SecretKey)
	resp := &Response{
		ResponseParser: parser,
		operation:      operation,
		postData:       postData,
		postParams:     params.Clone(),
		transportErr:   err,
		message:        invalidResponseMessage,
	}
	if parser.Valid() {
		resp.success = policy(parser)
		resp.message = parser.StatusMessage()
	}

	invoice, _ := params.Get("brq_invoicenumber")
	logger.Debug("Buckaroo exchange completed", logger.LogContext{
		Provider: providerName,
		Fields: map[string]any{
			"operation":     operation,
			"invoicenumber": invoice,
			"statuscode":    parser.StatusCode(),
			"valid":         parser.Valid(),
			"success":       resp.success,
			"duration_ms":   time.Since(start).Milliseconds(),
		},
	})

	return resp
}

func validateMoney(money decimal.Decimal) error {
	if !money.IsPositive() {
		return invalidOption("money", "should be more than 0")
	}
	return nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
