package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

func (r *AccountRepository) Create(a *accountmodel.Account) error {
	return r.db.Create(a).Error
}

func (r *AccountRepository) GetByID(id string) (*accountmodel.Account, error) {
	var a accountmodel.Account
	err := r.db.Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) GetByUserID(userID string) ([]*accountmodel.Account, error) {
	var accounts []*accountmodel.Account
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&accounts).Error
	return accounts, err
}

// UpdateBalanceCAS writes the balance only when the row still carries the
// expected version. RowsAffected == 0 means a concurrent writer won.
func (r *AccountRepository) UpdateBalanceCAS(id string, balance decimal.Decimal, version int64) (bool, error) {
	res := r.db.Model(&accountmodel.Account{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"balance":    balance,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AccountRepository) UpdateStatus(id string, status string) error {
	return r.db.Model(&accountmodel.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}
