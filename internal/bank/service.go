package bank

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core"
	loginmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/banklogin"
)

// LoginRepository defines the data access methods for bank logins.
type LoginRepository interface {
	GetByID(id string) (*loginmodel.BankLogin, error)
	UpdateSyncState(id string, status string, syncErr string) error
}

type Syncer interface {
	Sync(ctx context.Context, loginID string) (*SyncResult, *internal.AppError)
}

// Service drives bank_sync jobs: fetch the login, call the adapter, record
// the outcome on the login row.
type Service struct {
	repo    LoginRepository
	adapter Syncer
	clock   core.Clock
	logger  *slog.Logger
}

func NewService(repo LoginRepository, adapter Syncer, clock core.Clock, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		adapter: adapter,
		clock:   clock,
		logger:  logger,
	}
}

func (s *Service) GetLogin(ctx context.Context, id string) (*loginmodel.BankLogin, *internal.AppError) {
	login, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.NewNotFoundError(internal.ReasonLoginNotFound, "bank login not found").
				WithContext("login_id", id)
		}
		return nil, internal.NewSystemError(internal.ReasonStorageFailure, "login fetch failed", err)
	}
	return login, nil
}

func (s *Service) Sync(ctx context.Context, loginID string) *internal.AppError {
	login, appErr := s.GetLogin(ctx, loginID)
	if appErr != nil {
		return appErr
	}

	if login.Status == loginmodel.StatusUnlinked {
		return internal.NewBusinessRuleError(internal.ReasonLoginNotFound, "login is unlinked").
			WithRetryable(false)
	}

	result, appErr := s.adapter.Sync(ctx, loginID)
	if appErr != nil {
		if err := s.repo.UpdateSyncState(loginID, loginmodel.StatusErrored, appErr.Message); err != nil {
			s.logger.Error("failed to record sync error", "error", err, "login_id", loginID)
		}
		return appErr
	}

	if err := s.repo.UpdateSyncState(loginID, loginmodel.StatusLinked, ""); err != nil {
		s.logger.Error("failed to record sync success", "error", err, "login_id", loginID)
		return internal.NewSystemError(internal.ReasonStorageFailure, "sync state update failed", err)
	}

	s.logger.Info("bank login synced",
		"login_id", loginID,
		"institution", login.Institution,
		"accounts_seen", result.AccountsSeen)

	return nil
}
