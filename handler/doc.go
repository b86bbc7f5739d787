// Package handler provides the HTTP handlers of the Buckaroo gateway service.
//
// The handlers bridge chi routes and the provider.PaymentService. Every
// tenant-scoped handler reads the tenant from the request context, where the
// JWT middleware put it, and answers 401 when it is missing. Responses use the
// envelope of the response package.
//
// # Handlers
//
//   - PaymentHandler: credit card, direct debit and SEPA payments, invoice
//     status, IBAN conversion, BIC lookup and push notifications
//   - ConfigHandler: per-tenant gateway credentials and provider fields
//   - LogsHandler: recorded gateway exchanges of a tenant or invoice
//   - AnalyticsHandler: dashboard figures aggregated over recorded exchanges
//   - TenantRateLimitHandler: remaining rate limit budget per action
//   - AuthHandler: token refresh and validation
//   - HealthHandler: storage, provider and process health
//
// # Payments
//
//	paymentHandler := handler.NewPaymentHandler(paymentService, validate)
//
//	r.Post("/v1/buckaroo/creditcard/purchase", paymentHandler.CreditCardPurchase)
//	r.Get("/v1/buckaroo/status/{invoice}", paymentHandler.GetPaymentStatus)
//	r.Post("/webhooks/buckaroo/{tenant}", paymentHandler.HandleWebhook)
//
// A payment request carries the amount as a decimal, the invoice number and a
// description:
//
//	POST /v1/buckaroo/creditcard/purchase
//	Authorization: Bearer <token>
//
//	{
//	  "amount": "12.50",
//	  "description": "Order 1001",
//	  "invoiceNumber": "INV-1001",
//	  "cardBrand": "visa",
//	  "returnUrl": "https://shop.example/return"
//	}
//
// A reply whose signature does not verify is still answered with 200 and
// "valid": false, so callers can tell an unverified reply from a failed call.
//
// # Errors
//
// Service errors map onto status codes:
//
//	buckaroo.ErrInvalidOption, buckaroo.ErrInvalidSignature  400
//	provider.ErrProviderNotConfigured                        404
//	provider.ErrOperationNotSupported                        501
//	buckaroo.ErrBICLookup                                    502
//	context.DeadlineExceeded                                 504
//
// # Push notifications
//
// Buckaroo posts form encoded pushes to /webhooks/buckaroo/{tenant}. The route
// is not behind JWT auth; the tenant comes from the path and the signature is
// checked with that tenant's secret key.
package handler
