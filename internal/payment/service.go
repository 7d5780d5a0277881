package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core"
	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
	usermodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/user"
	"github.com/frahmantamala/payment-engine/internal/core/events"
)

// Service orchestrates payment execution: fetch, validation chain, duplicate
// check, atomic ledger mutation. The first failure short-circuits before any
// mutation.
type Service struct {
	payments  Repository
	accounts  AccountRepository
	dedupe    *DuplicateDetector
	ledger    *LedgerMutator
	cfg       *internal.PaymentConfig
	clock     core.Clock
	telemetry events.Sink
	logger    *slog.Logger
}

func NewService(
	payments Repository,
	accounts AccountRepository,
	cfg *internal.PaymentConfig,
	clock core.Clock,
	telemetry events.Sink,
	logger *slog.Logger,
) *Service {
	return &Service{
		payments:  payments,
		accounts:  accounts,
		dedupe:    NewDuplicateDetector(payments, clock, cfg.DuplicateWindow, logger),
		ledger:    NewLedgerMutator(payments, clock, logger),
		cfg:       cfg,
		clock:     clock,
		telemetry: telemetry,
		logger:    logger,
	}
}

// ProcessPayment runs the comprehensive path for a PENDING payment and
// commits it through the ledger mutator.
func (s *Service) ProcessPayment(ctx context.Context, paymentID string) (*paymentmodel.Payment, *internal.AppError) {
	p, appErr := s.getPayment(paymentID)
	if appErr != nil {
		return nil, appErr
	}

	a, appErr := s.getAccount(p.AccountID)
	if appErr != nil {
		return nil, appErr
	}

	if appErr := s.ValidatePayment(p, a, nil); appErr != nil {
		s.logger.Warn("payment validation failed",
			"payment_id", p.ID,
			"reason", appErr.Reason,
			"category", appErr.Category)
		s.emitFailed(p, appErr)
		return nil, appErr
	}

	if appErr := s.CheckDuplicate(p); appErr != nil {
		s.emitFailed(p, appErr)
		return nil, appErr
	}

	updated, appErr := s.ledger.Execute(p, a)
	if appErr != nil {
		s.emitFailed(p, appErr)
		return nil, appErr
	}

	s.logger.Info("payment processed",
		"payment_id", updated.ID,
		"account_id", updated.AccountID,
		"amount", updated.Amount.String(),
		"direction", updated.Direction)

	s.telemetry.Emit(events.EventTypePaymentCompleted,
		map[string]float64{"count": 1},
		map[string]interface{}{
			"payment_id": updated.ID,
			"account_id": updated.AccountID,
			"amount":     updated.Amount.String(),
			"direction":  updated.Direction,
		})

	return updated, nil
}

// CreatePayment inserts a PENDING payment after a lighter pre-check; the
// full chain runs when the payment is processed.
func (s *Service) CreatePayment(ctx context.Context, dto CreatePaymentDTO) (*paymentmodel.Payment, *internal.AppError) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	a, appErr := s.getAccount(dto.AccountID)
	if appErr != nil {
		return nil, appErr
	}
	if !a.IsActive() {
		return nil, internal.NewBusinessRuleError(internal.ReasonAccountInactive, "account is not active").
			WithContext("status", a.Status)
	}
	if dto.Amount.GreaterThan(s.cfg.SingleTransactionLimitDecimal()) {
		return nil, internal.NewBusinessRuleError(internal.ReasonAmountExceedsLimit, "amount exceeds the single-transaction limit")
	}

	userID := dto.UserID
	if userID == "" {
		userID = a.UserID
	}

	p := &paymentmodel.Payment{
		ID:          uuid.NewString(),
		AccountID:   dto.AccountID,
		UserID:      userID,
		Amount:      dto.Amount,
		Direction:   dto.Direction,
		PaymentType: dto.PaymentType,
		Status:      paymentmodel.StatusPending,
		Description: dto.Description,
		ExternalRef: dto.ExternalRef,
		CreatedAt:   s.clock.Now().UTC(),
		UpdatedAt:   s.clock.Now().UTC(),
	}

	if err := s.payments.Create(p); err != nil {
		s.logger.Error("failed to create payment", "error", err, "account_id", dto.AccountID)
		return nil, internal.NewSystemError(internal.ReasonStorageFailure, "payment insert failed", err)
	}

	s.logger.Info("payment created",
		"payment_id", p.ID,
		"account_id", p.AccountID,
		"amount", p.Amount.String(),
		"direction", p.Direction)

	return p, nil
}

// ValidatePayment runs the core rule chain. The duplicate check is separate;
// callers wanting the comprehensive path run CheckDuplicate afterwards.
func (s *Service) ValidatePayment(p *paymentmodel.Payment, a *accountmodel.Account, u *usermodel.User) *internal.AppError {
	in := RuleInput{
		Payment: p,
		Account: a,
		User:    u,
		Now:     s.clock.Now(),
		Limits:  s.cfg,
	}

	if p.IsDebit() {
		total, appErr := s.dailyDebitTotal(p.AccountID)
		if appErr != nil {
			return appErr
		}
		in.DailyDebitTotal = total
	}

	return RunChain(CoreRules(), in)
}

func (s *Service) CheckDuplicate(p *paymentmodel.Payment) *internal.AppError {
	return s.dedupe.Check(p)
}

func (s *Service) GetPayment(ctx context.Context, paymentID string) (*paymentmodel.Payment, *internal.AppError) {
	return s.getPayment(paymentID)
}

// MarkFailed moves a non-terminal payment to FAILED. Terminal states stay
// immutable: marking an already completed payment is a no-op conflict.
func (s *Service) MarkFailed(ctx context.Context, paymentID string, reason string) *internal.AppError {
	swapped, err := s.payments.UpdateStatusCAS(paymentID, paymentmodel.StatusPending, paymentmodel.StatusFailed, nil)
	if err != nil {
		return internal.NewSystemError(internal.ReasonStorageFailure, "payment status update failed", err)
	}
	if !swapped {
		return internal.NewConflictError(internal.ReasonAlreadyProcessed, "payment is no longer pending")
	}

	s.logger.Info("payment marked failed", "payment_id", paymentID, "reason", reason)
	s.telemetry.Emit(events.EventTypePaymentFailed,
		map[string]float64{"count": 1},
		map[string]interface{}{"payment_id": paymentID, "reason": reason})
	return nil
}

func (s *Service) dailyDebitTotal(accountID string) (decimal.Decimal, *internal.AppError) {
	start, end := UTCDayBounds(s.clock.Now())
	total, err := s.payments.SumCompletedDebitsBetween(accountID, start, end)
	if err != nil {
		s.logger.Error("daily debit total lookup failed", "error", err, "account_id", accountID)
		return decimal.Zero, internal.NewSystemError(internal.ReasonStorageFailure, "daily total lookup failed", err)
	}
	return total, nil
}

func (s *Service) getPayment(id string) (*paymentmodel.Payment, *internal.AppError) {
	p, err := s.payments.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.NewNotFoundError(internal.ReasonPaymentNotFound, "payment not found").
				WithContext("payment_id", id)
		}
		return nil, internal.NewSystemError(internal.ReasonStorageFailure, "payment fetch failed", err)
	}
	return p, nil
}

func (s *Service) getAccount(id string) (*accountmodel.Account, *internal.AppError) {
	a, err := s.accounts.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.NewNotFoundError(internal.ReasonAccountNotFound, "account not found").
				WithContext("account_id", id)
		}
		return nil, internal.NewSystemError(internal.ReasonStorageFailure, "account fetch failed", err)
	}
	return a, nil
}

func (s *Service) emitFailed(p *paymentmodel.Payment, appErr *internal.AppError) {
	s.telemetry.Emit(events.EventTypePaymentFailed,
		map[string]float64{"count": 1},
		map[string]interface{}{
			"payment_id": p.ID,
			"reason":     string(appErr.Reason),
			"category":   string(appErr.Category),
		})
}
