package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"

	"payment-relay/internal/ingress"
	"payment-relay/internal/payments"
	"payment-relay/internal/transport/middleware"
)

// RegisterProcessorRoutes wires the processing service surface. The payment
// endpoints sit at the root so providers and the ingress service can reach
// them at their published paths; operational endpoints live under /api/v1.
func RegisterProcessorRoutes(router *chi.Mux, db *sql.DB, paymentHandler *payments.Handler, webhookHandler *payments.WebhookHandler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Post("/generate_payment_link", paymentHandler.GeneratePaymentLink)
	router.Post("/generate_invoice", paymentHandler.GenerateInvoice)
	router.Post("/stripe_webhook", webhookHandler.HandleStripeWebhook)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)
	})
}

// RegisterIngressRoutes wires the customer-facing surface. The ingress runs
// without a database, so readiness collapses to liveness.
func RegisterIngressRoutes(router *chi.Mux, ingressHandler *ingress.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(nil)

	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Post("/create_payment", ingressHandler.CreatePayment)
	router.Post("/generate_invoice", ingressHandler.GenerateInvoice)
	router.Post("/payment_confirmation", ingressHandler.PaymentConfirmation)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)
	})
}
