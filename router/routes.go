package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gobuckaroo/handler"
	"github.com/mstgnz/gobuckaroo/infra/middle"
	v1 "github.com/mstgnz/gobuckaroo/router/v1"
)

// Options carries everything the routes are built from
type Options struct {
	Handlers       v1.Handlers
	Health         *handler.HealthHandler
	TokenValidator middle.TokenValidator

	// RateLimiter is optional
	RateLimiter *middle.RateLimiter

	// WebhookIPs restricts push notifications to these client IPs; empty allows all
	WebhookIPs []string
}

// Routes mounts the public, push and authenticated API routes
func Routes(r chi.Router, opts Options) {
	r.Get("/health", opts.Health.CheckHealth)

	r.Group(func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(middle.RateLimitMiddleware(opts.RateLimiter))
		}

		r.Post("/auth/refresh", opts.Handlers.Auth.RefreshToken)

		r.With(middle.IPWhitelistMiddleware(opts.WebhookIPs)).
			Post("/webhooks/buckaroo/{tenant}", opts.Handlers.Payment.HandleWebhook)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middle.JWTAuthMiddleware(opts.TokenValidator))
		if opts.RateLimiter != nil {
			r.Use(middle.RateLimitMiddleware(opts.RateLimiter))
		}

		v1.Routes(r, opts.Handlers)
	})
}
