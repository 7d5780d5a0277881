package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	accountpostgres "github.com/frahmantamala/payment-engine/internal/account/postgres"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
	transactionmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/transaction"
	paymentpkg "github.com/frahmantamala/payment-engine/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(p *paymentmodel.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id string) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByAccountID(accountID string, limit, offset int) ([]*paymentmodel.Payment, error) {
	var payments []*paymentmodel.Payment
	err := r.db.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&payments).Error
	return payments, err
}

// UpdateStatusCAS is the atomic PENDING-exclusive transition: the row is
// updated only when it still holds the expected `from` status.
func (r *PaymentRepository) UpdateStatusCAS(id, from, to string, postedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if postedAt != nil {
		updates["posted_at"] = *postedAt
	}

	res := r.db.Model(&paymentmodel.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SumCompletedDebitsBetween sums in Go rather than SQL so the decimal
// arithmetic stays exact across the postgres/sqlite pair.
func (r *PaymentRepository) SumCompletedDebitsBetween(accountID string, start, end time.Time) (decimal.Decimal, error) {
	var payments []*paymentmodel.Payment
	err := r.db.
		Where("account_id = ? AND direction = ? AND status = ?",
			accountID, paymentmodel.DirectionDebit, paymentmodel.StatusCompleted).
		Where("posted_at >= ? AND posted_at < ?", start, end).
		Find(&payments).Error
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func (r *PaymentRepository) FindRecentDuplicate(p *paymentmodel.Payment, since time.Time) (*paymentmodel.Payment, error) {
	var match paymentmodel.Payment
	err := r.db.
		Where("id <> ? AND user_id = ? AND direction = ? AND description = ? AND status = ?",
			p.ID, p.UserID, p.Direction, p.Description, paymentmodel.StatusCompleted).
		Where("amount = ?", p.Amount).
		Where("posted_at >= ?", since).
		Order("posted_at DESC").
		First(&match).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &match, nil
}

func (r *PaymentRepository) CreateTransaction(t *transactionmodel.Transaction) error {
	return r.db.Create(t).Error
}

// WithTransaction runs fn against transaction-scoped repositories; any error
// from fn rolls the whole unit back.
func (r *PaymentRepository) WithTransaction(fn func(payments paymentpkg.Repository, accounts paymentpkg.AccountRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewPaymentRepository(tx), accountpostgres.NewAccountRepository(tx))
	})
}
