package payment_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core"
	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
	"github.com/frahmantamala/payment-engine/internal/core/events"
	paymentPkg "github.com/frahmantamala/payment-engine/internal/payment"
	"github.com/frahmantamala/payment-engine/internal/worker"
)

type mockEnqueuer struct {
	enqueued     []string
	enqueueError error
	statuses     map[string]worker.JobStatus
	cancelResult bool
}

func (m *mockEnqueuer) Enqueue(jobType worker.JobType, domainID string, opts worker.Options) (string, error) {
	if m.enqueueError != nil {
		return "", m.enqueueError
	}
	m.enqueued = append(m.enqueued, domainID)
	return "job-1", nil
}

func (m *mockEnqueuer) Status(jobID string) (worker.JobStatus, bool) {
	status, ok := m.statuses[jobID]
	return status, ok
}

func (m *mockEnqueuer) Cancel(jobID string) bool {
	return m.cancelResult
}

var _ = Describe("PaymentHandler", func() {
	var (
		handler  *paymentPkg.Handler
		enqueuer *mockEnqueuer
		repo     *mockPaymentRepository
		accRepo  *mockAccountRepository
		router   *chi.Mux
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		clock := core.NewManualClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))

		cfg := &internal.PaymentConfig{}
		cfg.ApplyDefaults()

		accRepo = newMockAccountRepository()
		accRepo.accounts["acc-1"] = &accountmodel.Account{
			ID:          "acc-1",
			UserID:      "user-1",
			AccountType: accountmodel.TypeChecking,
			Status:      accountmodel.StatusActive,
			Balance:     decimal.RequireFromString("500.00"),
		}
		repo = newMockPaymentRepository(accRepo)

		service := paymentPkg.NewService(repo, accRepo, cfg, clock, events.NopSink{}, logger)
		enqueuer = &mockEnqueuer{statuses: make(map[string]worker.JobStatus)}
		handler = paymentPkg.NewHandler(service, enqueuer, time.Minute, logger)

		router = chi.NewRouter()
		router.Post("/payments", handler.CreatePayment)
		router.Get("/payments/{id}", handler.GetPayment)
		router.Post("/payments/{id}/process", handler.ProcessPayment)
		router.Get("/jobs/{jobID}", handler.GetJobStatus)
		router.Delete("/jobs/{jobID}", handler.CancelJob)
	})

	Describe("POST /payments", func() {
		It("accepts the payment and enqueues a processing job", func() {
			body, _ := json.Marshal(map[string]interface{}{
				"account_id":  "acc-1",
				"amount":      "42.50",
				"direction":   "debit",
				"description": "coffee beans",
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body)))

			Expect(rec.Code).To(Equal(http.StatusAccepted))

			var resp struct {
				Payment paymentPkg.PaymentView `json:"payment"`
				JobID   string                 `json:"job_id"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.JobID).To(Equal("job-1"))
			Expect(resp.Payment.Status).To(Equal(paymentmodel.StatusPending))
			Expect(enqueuer.enqueued).To(HaveLen(1))
		})

		It("rejects a malformed body", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader([]byte("{not json"))))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps a business rule rejection to 422", func() {
			body, _ := json.Marshal(map[string]interface{}{
				"account_id": "acc-1",
				"amount":     "10000.01",
				"direction":  "debit",
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body)))

			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("reports 503 when the queue rejects the job", func() {
			enqueuer.enqueueError = errors.New("job queue full")
			body, _ := json.Marshal(map[string]interface{}{
				"account_id": "acc-1",
				"amount":     "10.00",
				"direction":  "debit",
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body)))

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("GET /payments/{id}", func() {
		It("returns 404 for an unknown payment", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/missing", nil))

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /payments/{id}/process", func() {
		It("completes a pending payment synchronously", func() {
			repo.payments["pay-1"] = &paymentmodel.Payment{
				ID:        "pay-1",
				AccountID: "acc-1",
				UserID:    "user-1",
				Amount:    decimal.RequireFromString("100.00"),
				Direction: paymentmodel.DirectionDebit,
				Status:    paymentmodel.StatusPending,
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/pay-1/process", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))

			var view paymentPkg.PaymentView
			Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(Succeed())
			Expect(view.Status).To(Equal(paymentmodel.StatusCompleted))
		})

		It("maps a conflict to 409", func() {
			repo.payments["pay-1"] = &paymentmodel.Payment{
				ID:        "pay-1",
				AccountID: "acc-1",
				UserID:    "user-1",
				Amount:    decimal.RequireFromString("100.00"),
				Direction: paymentmodel.DirectionDebit,
				Status:    paymentmodel.StatusCompleted,
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/pay-1/process", nil))

			Expect(rec.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("job endpoints", func() {
		It("reports job status", func() {
			enqueuer.statuses["job-1"] = worker.StatusSucceeded

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("succeeded"))
		})

		It("returns 404 for an unknown job", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/nope", nil))

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 409 when a job can no longer be cancelled", func() {
			enqueuer.cancelResult = false

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/jobs/job-1", nil))

			Expect(rec.Code).To(Equal(http.StatusConflict))
		})
	})
})
