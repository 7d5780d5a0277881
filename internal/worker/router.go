package worker

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core/events"
)

// DeadLetterAction is what the dead-letter path does with a permanently
// failed job.
type DeadLetterAction string

const (
	ActionMarkPaymentFailed    DeadLetterAction = "mark_payment_failed"
	ActionNotifyAdmin          DeadLetterAction = "notify_admin"
	ActionScheduleManualReview DeadLetterAction = "schedule_manual_review"
)

const (
	DeadLetterBusinessRule = "business_rule_violation"
	DeadLetterValidation   = "validation_error"
	DeadLetterConflict     = "conflict_error"
	DeadLetterMaxAttempts  = "max_attempts_exceeded"
	DeadLetterNonRetryable = "non_retryable_error"
)

// Decision is the router's verdict for one failed attempt.
type Decision struct {
	Retry  bool
	Delay  time.Duration
	Reason string
	Action DeadLetterAction
}

// businessRuleReasons always dead-letter with mark_payment_failed,
// regardless of attempt count: retrying cannot make them pass.
var businessRuleReasons = map[internal.ErrorReason]bool{
	internal.ReasonInsufficientFunds:    true,
	internal.ReasonDailyLimitExceeded:   true,
	internal.ReasonAmountExceedsLimit:   true,
	internal.ReasonAccountInactive:      true,
	internal.ReasonDuplicateTransaction: true,
	internal.ReasonAlreadyProcessed:     true,
}

// RouterConfig carries the backoff bases; zero values fall back to the
// documented defaults.
type RouterConfig struct {
	SystemBackoffBase   time.Duration
	ExternalBackoffBase time.Duration
	FallbackBackoffBase time.Duration
}

func (c *RouterConfig) applyDefaults() {
	if c.SystemBackoffBase <= 0 {
		c.SystemBackoffBase = 2 * time.Second
	}
	if c.ExternalBackoffBase <= 0 {
		c.ExternalBackoffBase = 3 * time.Second
	}
	if c.FallbackBackoffBase <= 0 {
		c.FallbackBackoffBase = time.Second
	}
}

// Router maps (error, attempt) to a retry or dead-letter decision.
type Router struct {
	cfg       RouterConfig
	telemetry events.Sink
	logger    *slog.Logger
	rng       *rand.Rand
}

func NewRouter(cfg RouterConfig, telemetry events.Sink, logger *slog.Logger) *Router {
	cfg.applyDefaults()
	return &Router{
		cfg:       cfg,
		telemetry: telemetry,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Route decides the fate of a failed attempt. Decision order matters:
// hard business-rule reasons first, then category, then attempt budget,
// then the taxonomy's own retryability.
func (r *Router) Route(appErr *internal.AppError, jc JobContext) Decision {
	maxAttempts := jc.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = internal.MaxAttempts(appErr.Category)
	}

	var decision Decision
	switch {
	case businessRuleReasons[appErr.Reason]:
		decision = Decision{Reason: DeadLetterBusinessRule, Action: ActionMarkPaymentFailed}
	case appErr.Category == internal.CategoryValidation:
		decision = Decision{Reason: DeadLetterValidation, Action: ActionMarkPaymentFailed}
	case appErr.Category == internal.CategoryConflict:
		decision = Decision{Reason: DeadLetterConflict, Action: ActionNotifyAdmin}
	case appErr.Category == internal.CategorySystem && jc.Attempt < maxAttempts:
		decision = Decision{Retry: true, Delay: r.backoff(r.cfg.SystemBackoffBase, jc.Attempt)}
	case appErr.Category == internal.CategoryExternalDependency && jc.Attempt < maxAttempts:
		decision = Decision{Retry: true, Delay: r.backoff(r.cfg.ExternalBackoffBase, jc.Attempt)}
	case jc.Attempt >= maxAttempts:
		decision = Decision{Reason: DeadLetterMaxAttempts, Action: ActionScheduleManualReview}
	case appErr.Retryable:
		decision = Decision{Retry: true, Delay: r.backoff(r.cfg.FallbackBackoffBase, jc.Attempt)}
	default:
		decision = Decision{Reason: DeadLetterNonRetryable, Action: ActionNotifyAdmin}
	}

	if decision.Retry {
		r.logger.Info("routing job for retry",
			"job_id", jc.JobID,
			"attempt", jc.Attempt,
			"delay_ms", decision.Delay.Milliseconds(),
			"reason", appErr.Reason,
			"correlation_id", jc.CorrelationID)
		r.telemetry.Emit(events.EventTypeJobRetried,
			map[string]float64{"delay_ms": float64(decision.Delay.Milliseconds())},
			map[string]interface{}{
				"job_id":   jc.JobID,
				"attempt":  jc.Attempt,
				"reason":   string(appErr.Reason),
				"category": string(appErr.Category),
			})
	} else {
		r.logger.Warn("routing job to dead letter",
			"job_id", jc.JobID,
			"attempt", jc.Attempt,
			"dead_letter_reason", decision.Reason,
			"action", string(decision.Action),
			"reason", appErr.Reason,
			"correlation_id", jc.CorrelationID)
		r.telemetry.Emit(events.EventTypeJobDeadLettered,
			map[string]float64{"count": 1},
			map[string]interface{}{
				"job_id":             jc.JobID,
				"attempt":            jc.Attempt,
				"dead_letter_reason": decision.Reason,
				"action":             string(decision.Action),
				"reason":             string(appErr.Reason),
				"category":           string(appErr.Category),
			})
	}

	return decision
}

// backoff is base * 2^(attempt-1) plus uniform jitter up to base/2.
func (r *Router) backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	jitter := time.Duration(r.rng.Int63n(int64(base)/2 + 1))
	return delay + jitter
}
