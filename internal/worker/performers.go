package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/payment-engine/internal"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
)

// PaymentProcessor is the slice of the payment service the payment performer
// and the dead-letter handler need.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, paymentID string) (*paymentmodel.Payment, *internal.AppError)
	MarkFailed(ctx context.Context, paymentID string, reason string) *internal.AppError
}

// BankSyncer is the stubbed bank connectivity surface.
type BankSyncer interface {
	Sync(ctx context.Context, loginID string) *internal.AppError
}

// PaymentPerformer executes payment_process jobs. DomainID is the payment id.
type PaymentPerformer struct {
	payments PaymentProcessor
	timeout  time.Duration
}

func NewPaymentPerformer(payments PaymentProcessor, timeout time.Duration) *PaymentPerformer {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &PaymentPerformer{payments: payments, timeout: timeout}
}

func (p *PaymentPerformer) Type() JobType { return JobTypePaymentProcess }

func (p *PaymentPerformer) Timeout() time.Duration { return p.timeout }

func (p *PaymentPerformer) Perform(ctx context.Context, jc JobContext) *internal.AppError {
	_, appErr := p.payments.ProcessPayment(ctx, jc.DomainID)
	return appErr
}

// SyncPerformer executes bank_sync jobs. DomainID is the bank login id.
type SyncPerformer struct {
	bank    BankSyncer
	timeout time.Duration
}

func NewSyncPerformer(bank BankSyncer, timeout time.Duration) *SyncPerformer {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &SyncPerformer{bank: bank, timeout: timeout}
}

func (p *SyncPerformer) Type() JobType { return JobTypeBankSync }

func (p *SyncPerformer) Timeout() time.Duration { return p.timeout }

func (p *SyncPerformer) Perform(ctx context.Context, jc JobContext) *internal.AppError {
	return p.bank.Sync(ctx, jc.DomainID)
}

// ActionHandler applies dead-letter actions. Every branch is logged so a
// dead-lettered job is always visible through the audit trail.
type ActionHandler struct {
	payments PaymentProcessor
	logger   *slog.Logger
}

func NewActionHandler(payments PaymentProcessor, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{payments: payments, logger: logger}
}

func (h *ActionHandler) Handle(ctx context.Context, jobType JobType, jc JobContext, decision Decision, cause error) {
	log := h.logger.With(
		"job_id", jc.JobID,
		"job_type", string(jobType),
		"domain_id", jc.DomainID,
		"dead_letter_reason", decision.Reason,
		"action", string(decision.Action),
		"correlation_id", jc.CorrelationID)

	switch decision.Action {
	case ActionMarkPaymentFailed:
		if jobType != JobTypePaymentProcess {
			log.Warn("mark_payment_failed action on non-payment job, skipping")
			return
		}
		if appErr := h.payments.MarkFailed(ctx, jc.DomainID, decision.Reason); appErr != nil {
			// The usual cause is a payment that already reached a terminal
			// state; nothing left to mark.
			log.Warn("could not mark payment failed", "error", appErr)
			return
		}
		log.Info("payment marked failed after dead letter")

	case ActionNotifyAdmin:
		log.Warn("dead-lettered job requires admin attention", "cause", cause)

	case ActionScheduleManualReview:
		log.Warn("dead-lettered job queued for manual review", "cause", cause)

	default:
		log.Error("unknown dead-letter action", "cause", cause)
	}
}
