package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/payment-engine/internal"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
)

type CreatePaymentDTO struct {
	AccountID   string          `json:"account_id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   string          `json:"direction"`
	PaymentType string          `json:"payment_type"`
	Description string          `json:"description"`
	ExternalRef string          `json:"external_ref"`
}

func (d *CreatePaymentDTO) Validate() *internal.AppError {
	if d.AccountID == "" {
		return internal.NewValidationError(internal.ReasonAccountNotFound, "account_id is required")
	}
	if d.Amount.LessThanOrEqual(decimal.Zero) {
		return internal.NewValidationError(internal.ReasonAmountTooSmall, "amount must be positive")
	}
	switch d.Direction {
	case paymentmodel.DirectionDebit, paymentmodel.DirectionCredit:
	default:
		return internal.NewValidationError(internal.ReasonUnknown, "direction must be debit or credit")
	}
	return nil
}

type PaymentView struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	UserID      string     `json:"user_id"`
	Amount      string     `json:"amount"`
	Direction   string     `json:"direction"`
	PaymentType string     `json:"payment_type,omitempty"`
	Status      string     `json:"status"`
	Description string     `json:"description,omitempty"`
	ExternalRef string     `json:"external_ref,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ToView(p *paymentmodel.Payment) *PaymentView {
	return &PaymentView{
		ID:          p.ID,
		AccountID:   p.AccountID,
		UserID:      p.UserID,
		Amount:      p.Amount.StringFixed(2),
		Direction:   p.Direction,
		PaymentType: p.PaymentType,
		Status:      p.Status,
		Description: p.Description,
		ExternalRef: p.ExternalRef,
		PostedAt:    p.PostedAt,
		CreatedAt:   p.CreatedAt,
	}
}
