package payment

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core"
	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
	transactionmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/transaction"
)

// LedgerMutator commits a validated payment as one atomic unit: balance
// adjustment, PENDING→COMPLETED transition and the immutable transaction
// record either all become visible or none do.
type LedgerMutator struct {
	repo   Repository
	clock  core.Clock
	logger *slog.Logger
}

func NewLedgerMutator(repo Repository, clock core.Clock, logger *slog.Logger) *LedgerMutator {
	return &LedgerMutator{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// Execute is not idempotent by itself; idempotency comes from the status
// compare-and-swap plus the duplicate detector upstream. Two concurrent
// executions of the same payment cannot both pass the CAS.
func (m *LedgerMutator) Execute(p *paymentmodel.Payment, a *accountmodel.Account) (*paymentmodel.Payment, *internal.AppError) {
	postedAt := m.clock.Now().UTC()
	updated := *p

	err := m.repo.WithTransaction(func(payments Repository, accounts AccountRepository) error {
		swapped, err := payments.UpdateStatusCAS(p.ID, paymentmodel.StatusPending, paymentmodel.StatusCompleted, &postedAt)
		if err != nil {
			return internal.NewSystemError(internal.ReasonStorageFailure, "payment status update failed", err)
		}
		if !swapped {
			return internal.NewConflictError(internal.ReasonAlreadyProcessed, "payment has already been processed")
		}

		// Re-read inside the transaction; the balance and version seen by
		// the validation chain may be stale.
		current, err := accounts.GetByID(a.ID)
		if err != nil {
			return internal.NewSystemError(internal.ReasonStorageFailure, "account fetch failed", err)
		}

		newBalance := current.Balance
		if p.IsDebit() {
			newBalance = newBalance.Sub(p.Amount)
		} else {
			newBalance = newBalance.Add(p.Amount)
		}

		if newBalance.IsNegative() && !current.IsCreditType() {
			return internal.NewBusinessRuleError(internal.ReasonInsufficientFunds, "insufficient funds")
		}

		swapped, err = accounts.UpdateBalanceCAS(current.ID, newBalance, current.Version)
		if err != nil {
			return internal.NewSystemError(internal.ReasonStorageFailure, "balance update failed", err)
		}
		if !swapped {
			// Lost the version race to a concurrent mutation; abort and let
			// the retry policy re-run the whole unit.
			return internal.NewSystemError(internal.ReasonStorageFailure, "account version conflict", nil)
		}

		record := &transactionmodel.Transaction{
			ID:          uuid.NewString(),
			PaymentID:   p.ID,
			AccountID:   p.AccountID,
			UserID:      p.UserID,
			Amount:      p.Amount,
			Direction:   p.Direction,
			Description: p.Description,
			PostedAt:    postedAt,
		}
		if err := payments.CreateTransaction(record); err != nil {
			return internal.NewSystemError(internal.ReasonStorageFailure, "transaction record insert failed", err)
		}

		updated.Status = paymentmodel.StatusCompleted
		updated.PostedAt = &postedAt
		return nil
	})

	if err != nil {
		appErr := internal.AsAppError(err)
		m.logger.Error("ledger mutation aborted",
			"payment_id", p.ID,
			"account_id", a.ID,
			"reason", appErr.Reason,
			"error", appErr)
		return nil, appErr
	}

	m.logger.Info("ledger mutation committed",
		"payment_id", updated.ID,
		"account_id", a.ID,
		"amount", updated.Amount.String(),
		"direction", updated.Direction)

	return &updated, nil
}
