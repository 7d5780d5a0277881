package payment

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
)

// DuplicateDetector guards against at-least-once delivery without requiring
// a caller-supplied idempotency key: a payment is a duplicate when another
// payment with a different id but the same user, amount, description and
// direction completed within the window.
type DuplicateDetector struct {
	repo   Repository
	clock  core.Clock
	window time.Duration
	logger *slog.Logger
}

func NewDuplicateDetector(repo Repository, clock core.Clock, window time.Duration, logger *slog.Logger) *DuplicateDetector {
	return &DuplicateDetector{
		repo:   repo,
		clock:  clock,
		window: window,
		logger: logger,
	}
}

// Check returns nil or a duplicate_transaction conflict. The lookup is a
// best-effort window check, not a lock.
func (d *DuplicateDetector) Check(p *paymentmodel.Payment) *internal.AppError {
	since := d.clock.Now().UTC().Add(-d.window)

	match, err := d.repo.FindRecentDuplicate(p, since)
	if err != nil {
		d.logger.Error("duplicate lookup failed", "error", err, "payment_id", p.ID)
		return internal.NewSystemError(internal.ReasonStorageFailure, "duplicate lookup failed", err)
	}
	if match == nil {
		return nil
	}

	d.logger.Warn("duplicate payment detected",
		"payment_id", p.ID,
		"matched_payment_id", match.ID,
		"amount", p.Amount.String(),
		"window", d.window.String())

	return internal.NewConflictError(internal.ReasonDuplicateTransaction, "a matching payment completed recently").
		WithContext("matched_payment_id", match.ID)
}
