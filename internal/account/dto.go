package account

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/payment-engine/internal"
	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
)

type CreateAccountDTO struct {
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	AccountType    string          `json:"account_type"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (d *CreateAccountDTO) Validate() *internal.AppError {
	if d.UserID == "" {
		return internal.NewValidationError(internal.ReasonUnknown, "user_id is required")
	}
	switch d.AccountType {
	case accountmodel.TypeChecking, accountmodel.TypeSavings,
		accountmodel.TypeCredit, accountmodel.TypeInvestment:
	default:
		return internal.NewValidationError(internal.ReasonUnknown, "invalid account_type")
	}
	if d.OpeningBalance.IsNegative() && d.AccountType != accountmodel.TypeCredit {
		return internal.NewValidationError(internal.ReasonUnknown, "opening balance must not be negative")
	}
	return nil
}

type AccountView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name,omitempty"`
	AccountType string    `json:"account_type"`
	Status      string    `json:"status"`
	Balance     string    `json:"balance"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToView(a *accountmodel.Account) *AccountView {
	return &AccountView{
		ID:          a.ID,
		UserID:      a.UserID,
		Name:        a.Name,
		AccountType: a.AccountType,
		Status:      a.Status,
		Balance:     a.Balance.StringFixed(2),
		CreatedAt:   a.CreatedAt,
	}
}
