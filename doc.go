// Package gobuckaroo is a multi-tenant HTTP service and Go library for the
// Buckaroo BPE3 payment gateway.
//
// Applications talk to one JSON API; the service signs requests with each
// tenant's secret key, posts them to the Buckaroo NVP gateway, verifies the
// signed replies and records every exchange.
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│   Your Apps     │◄──►│   gobuckaroo    │◄──►│    Buckaroo     │
//	│  (APP1, APP2)   │    │    (Gateway)    │    │   NVP / SOAP    │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// # Operations
//
//   - Credit card purchase and recurring charge
//   - Direct debit and SEPA direct debit
//   - Invoice status, paid when debits minus credits equal the invoice amount
//   - Push notification verification
//   - Account number to IBAN conversion and BIC lookup
//
// # Library use
//
//	p := buckaroo.NewProviderWithOptions()
//	if err := p.Initialize(map[string]string{
//		"secretKey":  "your-secret-key",
//		"websiteKey": "your-website-key",
//	}); err != nil {
//		return err
//	}
//
//	resp, err := p.CreatePayment(ctx, provider.PaymentRequest{
//		Method:        provider.MethodCreditCard,
//		Amount:        decimal.RequireFromString("12.50"),
//		Description:   "Order 1001",
//		InvoiceNumber: "INV-1001",
//		CardBrand:     "visa",
//	})
//
// The test checkout is used unless "environment" is "production".
//
// # Service
//
// cmd runs the HTTP service. Tenant credentials live in SQLite or PostgreSQL
// (STORAGE_DRIVER); exchanges are recorded in the same database and, with
// ENABLE_OPENSEARCH_LOGGING, in OpenSearch. API calls carry a bearer token
// issued by
//
//	gobuckaroo token APP1
//
// Push notifications are accepted on /webhooks/buckaroo/{tenant}, optionally
// restricted with WEBHOOK_IP_WHITELIST.
//
// For more information, see the handler, provider and provider/buckaroo packages.
package gobuckaroo
