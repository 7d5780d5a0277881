package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/payment-engine/internal/transport"
	"github.com/frahmantamala/payment-engine/internal/worker"
)

// Enqueuer is the scheduler slice the handler needs to kick off async
// processing and report job status.
type Enqueuer interface {
	Enqueue(jobType worker.JobType, domainID string, opts worker.Options) (string, error)
	Status(jobID string) (worker.JobStatus, bool)
	Cancel(jobID string) bool
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

// CreatePayment inserts a PENDING payment and enqueues its processing job.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var dto CreatePaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, appErr := h.service.CreatePayment(r.Context(), dto)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	jobID, err := h.scheduler.Enqueue(worker.JobTypePaymentProcess, p.ID, worker.Options{
		UniqueWindow: h.uniqueWindow,
		MaxAttempts:  3,
	})
	if err != nil {
		h.Logger.Error("failed to enqueue payment job", "error", err, "payment_id", p.ID)
		h.WriteError(w, http.StatusServiceUnavailable, "payment accepted but processing queue is full")
		return
	}

	h.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"payment": ToView(p),
		"job_id":  jobID,
	})
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, appErr := h.service.GetPayment(r.Context(), id)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToView(p))
}

// ProcessPayment runs the comprehensive path synchronously.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, appErr := h.service.ProcessPayment(r.Context(), id)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToView(p))
}

func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	status, ok := h.scheduler.Status(jobID)
	if !ok {
		h.WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": string(status),
	})
}

func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if !h.scheduler.Cancel(jobID) {
		h.WriteError(w, http.StatusConflict, "job cannot be cancelled")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": string(worker.StatusCancelled),
	})
}
