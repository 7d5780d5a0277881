package payment

import (
	"time"

	"github.com/shopspring/decimal"

	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
	transactionmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/transaction"
)

// Repository defines the payment-side data access methods. Implementations
// obtained through WithTransaction are scoped to that transaction.
type Repository interface {
	Create(p *paymentmodel.Payment) error
	GetByID(id string) (*paymentmodel.Payment, error)
	// UpdateStatusCAS transitions status from exactly `from` to `to` and
	// reports whether a row was updated. postedAt is stamped when non-nil.
	UpdateStatusCAS(id, from, to string, postedAt *time.Time) (bool, error)
	// SumCompletedDebitsBetween returns the completed-DEBIT total for the
	// account posted in [start, end).
	SumCompletedDebitsBetween(accountID string, start, end time.Time) (decimal.Decimal, error)
	// FindRecentDuplicate looks for another COMPLETED payment with the same
	// user, amount, description and direction posted at or after `since`.
	FindRecentDuplicate(p *paymentmodel.Payment, since time.Time) (*paymentmodel.Payment, error)
	CreateTransaction(t *transactionmodel.Transaction) error
	// WithTransaction runs fn inside one atomic unit of work; any error
	// rolls back every mutation made through the passed repositories.
	WithTransaction(fn func(payments Repository, accounts AccountRepository) error) error
}

// AccountRepository defines the account-side data access methods.
type AccountRepository interface {
	GetByID(id string) (*accountmodel.Account, error)
	// UpdateBalanceCAS writes the balance only if the row still carries
	// `version`, bumping the version on success.
	UpdateBalanceCAS(id string, balance decimal.Decimal, version int64) (bool, error)
}
