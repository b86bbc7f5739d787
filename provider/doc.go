// Package provider defines the gateway-neutral payment API that the HTTP layer
// talks to, and the plumbing shared by every gateway implementation.
//
// # Core Types
//
//   - PaymentProvider: implemented by each gateway (see provider/buckaroo)
//   - IBANResolver: optional account number and BIC lookups
//   - ProviderRegistry: maps gateway names to factories
//   - ProviderCache: LRU cache of initialized providers per tenant
//   - PaymentService: resolves the tenant's provider and records every exchange
//
// # Usage
//
//	store := config.NewGatewayConfigStore(storage)
//	service := provider.NewPaymentService(nil, store,
//	    provider.WithExchangeLogger(exchanges),
//	)
//
//	resp, err := service.CreatePayment(ctx, "APP1", "buckaroo", provider.PaymentRequest{
//	    Method:        provider.MethodCreditCard,
//	    Amount:        decimal.RequireFromString("12.50"),
//	    Description:   "Order 100",
//	    InvoiceNumber: "INV-100",
//	    CardBrand:     "visa",
//	})
//
// Gateways register themselves with DefaultRegistry from an init function, so
// importing provider/buckaroo for its side effect makes "buckaroo" available.
//
// # Exchange Logging
//
// Every gateway round trip is handed to an ExchangeLogger. DBExchangeLogger
// stores exchanges in SQLite or PostgreSQL, OpenSearchExchangeLogger indexes
// them, and MultiExchangeLogger fans out to both. Request and response bodies
// have credentials and account numbers redacted before they are stored.
package provider
