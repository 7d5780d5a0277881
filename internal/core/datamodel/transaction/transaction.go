package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger entry, created exactly once per
// successfully executed payment. There is no update or delete path.
type Transaction struct {
	ID          string          `gorm:"primaryKey;column:id"`
	PaymentID   string          `gorm:"column:payment_id;not null;uniqueIndex"`
	AccountID   string          `gorm:"column:account_id;not null;index"`
	UserID      string          `gorm:"column:user_id;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	Direction   string          `gorm:"column:direction;not null"`
	Description string          `gorm:"column:description"`
	PostedAt    time.Time       `gorm:"column:posted_at;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;default:now()"`
}

func (Transaction) TableName() string {
	return "transactions"
}
