package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/payment-engine/internal/account"
	"github.com/frahmantamala/payment-engine/internal/bank"
	"github.com/frahmantamala/payment-engine/internal/payment"
	"github.com/frahmantamala/payment-engine/internal/transport/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, paymentHandler *payment.Handler, accountHandler *account.Handler, bankHandler *bank.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Account routes
		if accountHandler != nil {
			r.Route("/accounts", func(ar chi.Router) {
				ar.Post("/", accountHandler.CreateAccount)
				ar.Get("/", accountHandler.ListAccounts)
				ar.Get("/{id}", accountHandler.GetAccount)
				ar.Patch("/{id}/status", accountHandler.SetStatus)
			})
		}

		// Payment and job routes
		if paymentHandler != nil {
			r.Route("/payments", func(pr chi.Router) {
				pr.Post("/", paymentHandler.CreatePayment)
				pr.Get("/{id}", paymentHandler.GetPayment)
				pr.Post("/{id}/process", paymentHandler.ProcessPayment)
			})

			r.Route("/jobs", func(jr chi.Router) {
				jr.Get("/{jobID}", paymentHandler.GetJobStatus)
				jr.Delete("/{jobID}", paymentHandler.CancelJob)
			})
		}

		// Bank login routes
		if bankHandler != nil {
			r.Post("/bank-logins/{id}/sync", bankHandler.TriggerSync)
		}
	})
}
