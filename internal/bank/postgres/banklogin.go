package postgres

import (
	"time"

	"gorm.io/gorm"

	loginmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/banklogin"
)

type BankLoginRepository struct {
	db *gorm.DB
}

func NewBankLoginRepository(db *gorm.DB) *BankLoginRepository {
	return &BankLoginRepository{
		db: db,
	}
}

func (r *BankLoginRepository) Create(l *loginmodel.BankLogin) error {
	return r.db.Create(l).Error
}

func (r *BankLoginRepository) GetByID(id string) (*loginmodel.BankLogin, error) {
	var l loginmodel.BankLogin
	err := r.db.Where("id = ?", id).First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *BankLoginRepository) UpdateSyncState(id string, status string, syncErr string) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":          status,
		"last_sync_error": syncErr,
		"updated_at":      now,
	}
	if status == loginmodel.StatusLinked {
		updates["last_synced_at"] = now
	}
	return r.db.Model(&loginmodel.BankLogin{}).Where("id = ?", id).Updates(updates).Error
}
