package bank

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/payment-engine/internal/transport"
	"github.com/frahmantamala/payment-engine/internal/worker"
)

// Enqueuer is the scheduler slice the handler needs to kick off sync jobs.
type Enqueuer interface {
	Enqueue(jobType worker.JobType, domainID string, opts worker.Options) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	service      *Service
	scheduler    Enqueuer
	uniqueWindow time.Duration
}

func NewHandler(service *Service, scheduler Enqueuer, uniqueWindow time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:  transport.NewBaseHandler(logger),
		service:      service,
		scheduler:    scheduler,
		uniqueWindow: uniqueWindow,
	}
}

// TriggerSync enqueues a bank_sync job for the login. Repeat requests inside
// the uniqueness window return the job already in flight.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	login, appErr := h.service.GetLogin(r.Context(), id)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	jobID, err := h.scheduler.Enqueue(worker.JobTypeBankSync, login.ID, worker.Options{
		UniqueWindow: h.uniqueWindow,
		MaxAttempts:  3,
	})
	if err != nil {
		h.Logger.Error("failed to enqueue sync job", "error", err, "login_id", login.ID)
		h.WriteError(w, http.StatusServiceUnavailable, "sync queue is full")
		return
	}

	h.WriteJSON(w, http.StatusAccepted, map[string]string{
		"login_id": login.ID,
		"status":   login.Status,
		"job_id":   jobID,
	})
}
