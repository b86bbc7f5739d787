package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gobuckaroo/handler"
)

// Handlers are the handlers mounted under /v1. Logs and Analytics are
// optional; their routes are skipped when no exchange store is configured.
type Handlers struct {
	Payment   *handler.PaymentHandler
	Config    *handler.ConfigHandler
	Logs      *handler.LogsHandler
	Analytics *handler.AnalyticsHandler
	RateLimit *handler.TenantRateLimitHandler
	Auth      *handler.AuthHandler
}

// Routes registers all tenant scoped API routes. The caller authenticates the tenant.
func Routes(r chi.Router, h Handlers) {
	r.Route("/buckaroo", func(r chi.Router) {
		r.Post("/creditcard/purchase", h.Payment.CreditCardPurchase)
		r.Post("/creditcard/recurring", h.Payment.CreditCardRecurring)
		r.Post("/directdebit", h.Payment.DirectDebit)
		r.Post("/sepa", h.Payment.SEPADirectDebit)
		r.Get("/status/{invoice}", h.Payment.GetPaymentStatus)
		r.Post("/iban/convert", h.Payment.ConvertToIBAN)
		r.Get("/iban/bic", h.Payment.BICForIBAN)
	})

	r.Route("/config", func(r chi.Router) {
		r.Get("/stats", h.Config.GetStats)
		r.Get("/{provider}/fields", h.Config.GetRequiredFields)
		r.Get("/{provider}", h.Config.GetTenantConfig)
		r.Put("/{provider}", h.Config.SetTenantConfig)
		r.Delete("/{provider}", h.Config.DeleteTenantConfig)
	})

	if h.Logs != nil {
		r.Route("/logs", func(r chi.Router) {
			r.Get("/", h.Logs.ListLogs)
			r.Get("/{invoice}", h.Logs.GetInvoiceLogs)
		})
	}

	if h.Analytics != nil {
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/dashboard", h.Analytics.GetDashboardStats)
			r.Get("/activity", h.Analytics.GetRecentActivity)
		})
	}

	if h.RateLimit != nil {
		r.Get("/ratelimit", h.RateLimit.GetTenantStats)
	}

	r.Get("/auth/validate", h.Auth.ValidateToken)
}
