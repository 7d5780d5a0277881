package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core"
	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
)

type Service struct {
	repo   Repository
	clock  core.Clock
	logger *slog.Logger
}

func NewService(repo Repository, clock core.Clock, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

func (s *Service) CreateAccount(ctx context.Context, dto CreateAccountDTO) (*accountmodel.Account, *internal.AppError) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	a := &accountmodel.Account{
		ID:          uuid.NewString(),
		UserID:      dto.UserID,
		Name:        dto.Name,
		AccountType: dto.AccountType,
		Status:      accountmodel.StatusActive,
		Balance:     dto.OpeningBalance,
		CreatedAt:   s.clock.Now().UTC(),
		UpdatedAt:   s.clock.Now().UTC(),
	}

	if err := s.repo.Create(a); err != nil {
		s.logger.Error("failed to create account", "error", err, "user_id", dto.UserID)
		return nil, internal.NewSystemError(internal.ReasonStorageFailure, "account insert failed", err)
	}

	s.logger.Info("account created",
		"account_id", a.ID,
		"user_id", a.UserID,
		"account_type", a.AccountType,
		"balance", a.Balance.String())

	return a, nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (*accountmodel.Account, *internal.AppError) {
	a, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.NewNotFoundError(internal.ReasonAccountNotFound, "account not found").
				WithContext("account_id", id)
		}
		return nil, internal.NewSystemError(internal.ReasonStorageFailure, "account fetch failed", err)
	}
	return a, nil
}

func (s *Service) ListAccounts(ctx context.Context, userID string) ([]*accountmodel.Account, *internal.AppError) {
	accounts, err := s.repo.GetByUserID(userID)
	if err != nil {
		s.logger.Error("failed to list accounts", "error", err, "user_id", userID)
		return nil, internal.NewSystemError(internal.ReasonStorageFailure, "account list failed", err)
	}
	return accounts, nil
}

// SetStatus applies an account status transition. Closed accounts are
// terminal.
func (s *Service) SetStatus(ctx context.Context, id string, status string) *internal.AppError {
	switch status {
	case accountmodel.StatusActive, accountmodel.StatusInactive,
		accountmodel.StatusFrozen, accountmodel.StatusSuspended, accountmodel.StatusClosed:
	default:
		return internal.NewValidationError(internal.ReasonUnknown, "invalid account status")
	}

	a, appErr := s.GetAccount(ctx, id)
	if appErr != nil {
		return appErr
	}
	if a.Status == accountmodel.StatusClosed {
		return internal.NewConflictError(internal.ReasonAccountInactive, "account is closed")
	}

	if err := s.repo.UpdateStatus(id, status); err != nil {
		s.logger.Error("failed to update account status", "error", err, "account_id", id)
		return internal.NewSystemError(internal.ReasonStorageFailure, "account status update failed", err)
	}

	s.logger.Info("account status updated", "account_id", id, "status", status)
	return nil
}
