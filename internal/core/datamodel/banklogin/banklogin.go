package banklogin

import "time"

const (
	StatusLinked   = "linked"
	StatusSyncing  = "syncing"
	StatusErrored  = "errored"
	StatusUnlinked = "unlinked"
)

// BankLogin links a user to an external institution; the sync worker keeps
// its accounts fresh through the bank adapter.
type BankLogin struct {
	ID            string     `gorm:"primaryKey;column:id"`
	UserID        string     `gorm:"column:user_id;not null;index"`
	Institution   string     `gorm:"column:institution;not null"`
	Status        string     `gorm:"column:status;default:linked"`
	LastSyncedAt  *time.Time `gorm:"column:last_synced_at"`
	LastSyncError string     `gorm:"column:last_sync_error"`
	CreatedAt     time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;default:now()"`
}

func (BankLogin) TableName() string {
	return "bank_logins"
}
