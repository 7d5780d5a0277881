package account

import (
	"github.com/shopspring/decimal"

	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
)

// Repository defines the data access methods for accounts.
type Repository interface {
	Create(a *accountmodel.Account) error
	GetByID(id string) (*accountmodel.Account, error)
	GetByUserID(userID string) ([]*accountmodel.Account, error)
	UpdateBalanceCAS(id string, balance decimal.Decimal, version int64) (bool, error)
	UpdateStatus(id string, status string) error
}
