package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

const (
	TypeTransfer   = "transfer"
	TypeWithdrawal = "withdrawal"
	TypeDeposit    = "deposit"
	TypeBillPay    = "bill_pay"
)

type Payment struct {
	ID          string          `gorm:"primaryKey;column:id"`
	AccountID   string          `gorm:"column:account_id;not null;index"`
	UserID      string          `gorm:"column:user_id;not null;index"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	Direction   string          `gorm:"column:direction;not null"`
	PaymentType string          `gorm:"column:payment_type"`
	Status      string          `gorm:"column:status;default:pending"`
	Description string          `gorm:"column:description"`
	ExternalRef string          `gorm:"column:external_ref"`
	PostedAt    *time.Time      `gorm:"column:posted_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) IsPending() bool {
	return p.Status == StatusPending
}

// IsTerminal reports whether the payment reached an immutable state.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (p *Payment) IsDebit() bool {
	return p.Direction == DirectionDebit
}
