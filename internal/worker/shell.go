package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core/events"
)

type JobType string

const (
	JobTypePaymentProcess JobType = "payment_process"
	JobTypeBankSync       JobType = "bank_sync"
)

// JobContext is scoped to one worker invocation.
type JobContext struct {
	JobID         string
	CorrelationID string
	DomainID      string
	Attempt       int
	MaxAttempts   int
}

// Performer executes one job type. The returned error must be categorized;
// the shell converts anything else.
type Performer interface {
	Type() JobType
	// Timeout is the hard wall-clock budget for one invocation.
	Timeout() time.Duration
	Perform(ctx context.Context, jc JobContext) *internal.AppError
}

// Outcome is what the shell hands back to the scheduler.
type Outcome struct {
	Err      *internal.AppError
	Decision *Decision
	Duration time.Duration
}

// Shell wraps performer invocations with correlation ids, lifecycle logging,
// telemetry, panic containment and retry routing. Collaborator panics never
// escape: they become system-category errors before the router sees them.
type Shell struct {
	performers map[JobType]Performer
	router     *Router
	telemetry  events.Sink
	logger     *slog.Logger
}

func NewShell(router *Router, telemetry events.Sink, logger *slog.Logger) *Shell {
	return &Shell{
		performers: make(map[JobType]Performer),
		router:     router,
		telemetry:  telemetry,
		logger:     logger,
	}
}

func (s *Shell) Register(p Performer) {
	s.performers[p.Type()] = p
	s.logger.Info("job performer registered", "job_type", string(p.Type()))
}

// Run executes one job attempt end to end.
func (s *Shell) Run(ctx context.Context, jobType JobType, jc JobContext) Outcome {
	if jc.CorrelationID == "" {
		jc.CorrelationID = uuid.NewString()
	}

	log := s.logger.With(
		"job_id", jc.JobID,
		"job_type", string(jobType),
		"domain_id", jc.DomainID,
		"attempt", jc.Attempt,
		"max_attempts", jc.MaxAttempts,
		"correlation_id", jc.CorrelationID)

	log.Info("job received")

	performer, ok := s.performers[jobType]
	if !ok {
		appErr := internal.NewSystemError(internal.ReasonUnknown, fmt.Sprintf("no performer for job type %s", jobType), nil).
			WithCorrelationID(jc.CorrelationID)
		decision := s.router.Route(appErr, jc)
		return Outcome{Err: appErr, Decision: &decision}
	}

	runCtx, cancel := context.WithTimeout(internal.ContextWithCorrelationID(ctx, jc.CorrelationID), performer.Timeout())
	defer cancel()

	start := time.Now()
	log.Info("job executing")
	appErr := s.perform(runCtx, performer, jc, log)
	duration := time.Since(start)

	if appErr == nil {
		log.Info("job succeeded", "duration_ms", duration.Milliseconds())
		s.telemetry.Emit(events.EventTypeJobSucceeded,
			map[string]float64{"duration_ms": float64(duration.Milliseconds()), "count": 1},
			map[string]interface{}{
				"job_id":         jc.JobID,
				"job_type":       string(jobType),
				"domain_id":      jc.DomainID,
				"correlation_id": jc.CorrelationID,
			})
		return Outcome{Duration: duration}
	}

	appErr.WithCorrelationID(jc.CorrelationID)

	log.Error("job failed",
		"duration_ms", duration.Milliseconds(),
		"reason", appErr.Reason,
		"category", appErr.Category,
		"retryable", appErr.Retryable,
		"error", appErr)

	s.telemetry.Emit(events.EventTypeJobFailed,
		map[string]float64{"duration_ms": float64(duration.Milliseconds()), "count": 1},
		map[string]interface{}{
			"job_id":         jc.JobID,
			"job_type":       string(jobType),
			"domain_id":      jc.DomainID,
			"reason":         string(appErr.Reason),
			"category":       string(appErr.Category),
			"correlation_id": jc.CorrelationID,
		})

	decision := s.router.Route(appErr, jc)
	return Outcome{Err: appErr, Decision: &decision, Duration: duration}
}

func (s *Shell) perform(ctx context.Context, performer Performer, jc JobContext, log *slog.Logger) (appErr *internal.AppError) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in job performer",
				"panic", rec,
				"stack", string(debug.Stack()))
			appErr = internal.NewSystemError(internal.ReasonPanic, fmt.Sprintf("panic: %v", rec), nil)
		}
	}()

	appErr = performer.Perform(ctx, jc)

	// A deadline hit is an externally-imposed cancellation, not a worker
	// decision; surface it as a timeout regardless of what the performer
	// returned.
	if ctx.Err() == context.DeadlineExceeded {
		return internal.NewTimeoutError(internal.ReasonJobTimeout, "job exceeded its wall-clock budget", ctx.Err())
	}
	return appErr
}
