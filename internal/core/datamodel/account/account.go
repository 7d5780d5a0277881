package account

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusClosed    = "closed"
	StatusFrozen    = "frozen"
	StatusSuspended = "suspended"
)

const (
	TypeChecking   = "checking"
	TypeSavings    = "savings"
	TypeCredit     = "credit"
	TypeInvestment = "investment"
)

type Account struct {
	ID          string          `gorm:"primaryKey;column:id"`
	UserID      string          `gorm:"column:user_id;not null;index"`
	Name        string          `gorm:"column:name"`
	AccountType string          `gorm:"column:account_type;not null"`
	Status      string          `gorm:"column:status;default:active"`
	Balance     decimal.Decimal `gorm:"column:balance;type:numeric(18,2);not null"`
	// Version guards concurrent balance mutations; every balance write is a
	// compare-and-swap on this column.
	Version   int64     `gorm:"column:version;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:now()"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// IsCreditType reports whether the account may carry a negative balance.
func (a *Account) IsCreditType() bool {
	return a.AccountType == TypeCredit
}
