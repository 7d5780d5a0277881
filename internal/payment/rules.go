package payment

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/payment-engine/internal"
	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
	usermodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/user"
)

// RuleInput is the fixed input every validation rule sees. Rules are pure:
// anything stateful (today's debit total, the clock reading) is resolved by
// the orchestrator before the chain runs.
type RuleInput struct {
	Payment *paymentmodel.Payment
	Account *accountmodel.Account
	User    *usermodel.User
	Now     time.Time
	// DailyDebitTotal is the account's completed-DEBIT sum for the current
	// UTC calendar day, excluding this payment.
	DailyDebitTotal decimal.Decimal
	Limits          *internal.PaymentConfig
}

// Rule is a named pure check returning nil on success or the categorized
// failure.
type Rule struct {
	Name  string
	Check func(in RuleInput) *internal.AppError
}

// RunChain evaluates rules in order and stops at the first failure.
func RunChain(rules []Rule, in RuleInput) *internal.AppError {
	for _, rule := range rules {
		if err := rule.Check(in); err != nil {
			return err.WithContext("rule", rule.Name)
		}
	}
	return nil
}

// CoreRules is the ordered validation chain for executing a payment. The
// daily limit is judged before balance sufficiency, so a payment that breaks
// both reports daily_limit_exceeded. The duplicate check is not a pure rule
// (it reads storage) and is appended by the comprehensive path in the
// orchestrator.
func CoreRules() []Rule {
	return []Rule{
		{Name: "payment_pending", Check: checkPaymentPending},
		{Name: "account_state", Check: checkAccountState},
		{Name: "account_ownership", Check: checkAccountOwnership},
		{Name: "amount_bounds", Check: checkAmountBounds},
		{Name: "description", Check: checkDescription},
		{Name: "daily_limit", Check: checkDailyLimit},
		{Name: "sufficient_funds", Check: checkSufficientFunds},
	}
}

func checkPaymentPending(in RuleInput) *internal.AppError {
	if !in.Payment.IsPending() {
		return internal.NewConflictError(internal.ReasonAlreadyProcessed, "payment has already been processed").
			WithContext("status", in.Payment.Status)
	}
	return nil
}

func checkAccountState(in RuleInput) *internal.AppError {
	switch in.Account.Status {
	case accountmodel.StatusActive:
		return nil
	case accountmodel.StatusFrozen:
		return internal.NewBusinessRuleError(internal.ReasonAccountFrozen, "account is frozen")
	case accountmodel.StatusSuspended:
		return internal.NewBusinessRuleError(internal.ReasonAccountSuspended, "account is suspended")
	default:
		return internal.NewBusinessRuleError(internal.ReasonAccountInactive, "account is not active").
			WithContext("status", in.Account.Status)
	}
}

func checkAccountOwnership(in RuleInput) *internal.AppError {
	callerID := in.Payment.UserID
	if in.User != nil {
		callerID = in.User.ID
	}
	if callerID != in.Account.UserID {
		return internal.NewForbiddenError(internal.ReasonUnauthorizedAccess, "caller does not own the account")
	}
	return nil
}

func checkAmountBounds(in RuleInput) *internal.AppError {
	amount := in.Payment.Amount
	if amount.LessThan(in.Limits.MinAmountDecimal()) {
		return internal.NewValidationError(internal.ReasonAmountTooSmall, "amount is below the minimum").
			WithContext("amount", amount.String())
	}
	if amount.GreaterThan(in.Limits.SingleTransactionLimitDecimal()) {
		return internal.NewBusinessRuleError(internal.ReasonAmountExceedsLimit, "amount exceeds the single-transaction limit").
			WithContext("amount", amount.String()).
			WithContext("limit", in.Limits.SingleTransactionLimitDecimal().String())
	}
	return nil
}

func checkDescription(in RuleInput) *internal.AppError {
	desc := in.Payment.Description
	if desc == "" {
		return nil
	}
	if strings.TrimSpace(desc) == "" {
		return internal.NewValidationError(internal.ReasonDescriptionRequired, "description must not be blank")
	}
	if length := utf8.RuneCountInString(desc); length > in.Limits.MaxDescriptionLength {
		return internal.NewValidationError(internal.ReasonDescriptionTooLong, "description is too long").
			WithContext("length", length)
	}
	return nil
}

func checkSufficientFunds(in RuleInput) *internal.AppError {
	if !in.Payment.IsDebit() {
		return nil
	}
	if in.Account.Balance.LessThan(in.Payment.Amount) {
		return internal.NewBusinessRuleError(internal.ReasonInsufficientFunds, "insufficient funds").
			WithContext("balance", in.Account.Balance.String()).
			WithContext("amount", in.Payment.Amount.String())
	}
	return nil
}

// checkDailyLimit compares today's completed-DEBIT total plus this amount
// against the per-type limit. "Today" is the UTC calendar day, not a rolling
// 24h window.
func checkDailyLimit(in RuleInput) *internal.AppError {
	if !in.Payment.IsDebit() {
		return nil
	}
	limit := in.Limits.DailyLimitFor(in.Account.AccountType)
	if in.DailyDebitTotal.Add(in.Payment.Amount).GreaterThan(limit) {
		return internal.NewBusinessRuleError(internal.ReasonDailyLimitExceeded, "daily debit limit exceeded").
			WithContext("daily_total", in.DailyDebitTotal.String()).
			WithContext("amount", in.Payment.Amount.String()).
			WithContext("limit", limit.String())
	}
	return nil
}

// UTCDayBounds returns [start, end) of the UTC calendar day containing t.
func UTCDayBounds(t time.Time) (time.Time, time.Time) {
	utc := t.UTC()
	start := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
