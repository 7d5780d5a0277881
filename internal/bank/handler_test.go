package bank_test

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/payment-engine/internal/bank"
	"github.com/frahmantamala/payment-engine/internal/core"
	loginmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/banklogin"
	"github.com/frahmantamala/payment-engine/internal/worker"
)

type enqueuedSync struct {
	jobType  worker.JobType
	domainID string
	opts     worker.Options
}

type mockEnqueuer struct {
	enqueued     []enqueuedSync
	enqueueError error
}

func (m *mockEnqueuer) Enqueue(jobType worker.JobType, domainID string, opts worker.Options) (string, error) {
	if m.enqueueError != nil {
		return "", m.enqueueError
	}
	m.enqueued = append(m.enqueued, enqueuedSync{jobType: jobType, domainID: domainID, opts: opts})
	return "job-1", nil
}

var _ = Describe("BankHandler", func() {
	var (
		handler   *bank.Handler
		repo      *mockLoginRepository
		scheduler *mockEnqueuer
		router    *chi.Mux
	)

	BeforeEach(func() {
		repo = newMockLoginRepository()
		scheduler = &mockEnqueuer{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		clock := core.NewManualClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
		service := bank.NewService(repo, &mockSyncer{result: &bank.SyncResult{AccountsSeen: 1}}, clock, logger)
		handler = bank.NewHandler(service, scheduler, 300*time.Second, logger)

		router = chi.NewRouter()
		router.Post("/api/v1/bank-logins/{id}/sync", handler.TriggerSync)

		repo.logins["login-1"] = &loginmodel.BankLogin{
			ID:          "login-1",
			UserID:      "user-1",
			Institution: "First National",
			Status:      loginmodel.StatusLinked,
		}
	})

	It("enqueues a sync job with the uniqueness window", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bank-logins/login-1/sync", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(rec.Body.String()).To(ContainSubstring("job-1"))
		Expect(scheduler.enqueued).To(HaveLen(1))
		Expect(scheduler.enqueued[0].jobType).To(Equal(worker.JobTypeBankSync))
		Expect(scheduler.enqueued[0].domainID).To(Equal("login-1"))
		Expect(scheduler.enqueued[0].opts.UniqueWindow).To(Equal(300 * time.Second))
	})

	It("returns 404 for an unknown login", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bank-logins/missing/sync", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(scheduler.enqueued).To(BeEmpty())
	})

	It("returns 503 when the queue is full", func() {
		scheduler.enqueueError = errors.New("job queue is full")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bank-logins/login-1/sync", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})
})
