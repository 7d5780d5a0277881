package payment_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/payment-engine/internal"
	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
	paymentmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/payment"
	paymentPkg "github.com/frahmantamala/payment-engine/internal/payment"
)

var _ = Describe("Validation rules", func() {
	var (
		cfg   *internal.PaymentConfig
		input paymentPkg.RuleInput
	)

	BeforeEach(func() {
		cfg = &internal.PaymentConfig{}
		cfg.ApplyDefaults()

		input = paymentPkg.RuleInput{
			Payment: &paymentmodel.Payment{
				ID:          "pay-1",
				AccountID:   "acc-1",
				UserID:      "user-1",
				Amount:      decimal.RequireFromString("50.00"),
				Direction:   paymentmodel.DirectionDebit,
				Status:      paymentmodel.StatusPending,
				Description: "utilities",
			},
			Account: &accountmodel.Account{
				ID:          "acc-1",
				UserID:      "user-1",
				AccountType: accountmodel.TypeChecking,
				Status:      accountmodel.StatusActive,
				Balance:     decimal.RequireFromString("200.00"),
			},
			Now:             time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
			DailyDebitTotal: decimal.Zero,
			Limits:          cfg,
		}
	})

	Describe("RunChain", func() {
		It("passes a clean input through every rule", func() {
			Expect(paymentPkg.RunChain(paymentPkg.CoreRules(), input)).To(BeNil())
		})

		It("stops at the first failing rule", func() {
			// both would fail; payment_pending sits earlier in the chain
			input.Payment.Status = paymentmodel.StatusCompleted
			input.Account.Status = accountmodel.StatusFrozen

			appErr := paymentPkg.RunChain(paymentPkg.CoreRules(), input)

			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Reason).To(Equal(internal.ReasonAlreadyProcessed))
		})

		It("records the failing rule name in the error context", func() {
			input.Account.Balance = decimal.RequireFromString("10.00")

			appErr := paymentPkg.RunChain(paymentPkg.CoreRules(), input)

			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Context["rule"]).To(Equal("sufficient_funds"))
		})

		It("judges the daily limit before balance sufficiency", func() {
			// checking: 600.00 already debited today, balance down to 400.00;
			// another 500.00 breaks both checks and must report the limit
			input.Account.Balance = decimal.RequireFromString("400.00")
			input.Payment.Amount = decimal.RequireFromString("500.00")
			input.DailyDebitTotal = decimal.RequireFromString("600.00")

			appErr := paymentPkg.RunChain(paymentPkg.CoreRules(), input)

			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Reason).To(Equal(internal.ReasonDailyLimitExceeded))
			Expect(appErr.Context["rule"]).To(Equal("daily_limit"))
		})
	})

	Describe("amount bounds", func() {
		It("rejects an amount below the minimum as a validation failure", func() {
			input.Payment.Amount = decimal.RequireFromString("0.005")

			appErr := paymentPkg.RunChain(paymentPkg.CoreRules(), input)

			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Reason).To(Equal(internal.ReasonAmountTooSmall))
			Expect(appErr.Category).To(Equal(internal.CategoryValidation))
		})

		It("rejects an amount above the single-transaction limit as a business rule", func() {
			input.Payment.Amount = decimal.RequireFromString("10000.01")
			input.Account.Balance = decimal.RequireFromString("20000.00")

			appErr := paymentPkg.RunChain(paymentPkg.CoreRules(), input)

			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Reason).To(Equal(internal.ReasonAmountExceedsLimit))
			Expect(appErr.Category).To(Equal(internal.CategoryBusinessRule))
		})

		It("accepts a debit landing exactly on the daily limit", func() {
			input.Account.Balance = decimal.RequireFromString("20000.00")
			input.Account.AccountType = accountmodel.TypeInvestment
			input.Payment.Amount = decimal.RequireFromString("5000.00")

			Expect(paymentPkg.RunChain(paymentPkg.CoreRules(), input)).To(BeNil())
		})
	})

	Describe("description", func() {
		It("allows an absent description", func() {
			input.Payment.Description = ""
			Expect(paymentPkg.RunChain(paymentPkg.CoreRules(), input)).To(BeNil())
		})

		It("rejects a whitespace-only description", func() {
			input.Payment.Description = "   "

			appErr := paymentPkg.RunChain(paymentPkg.CoreRules(), input)

			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Reason).To(Equal(internal.ReasonDescriptionRequired))
		})

		It("rejects a description over the length cap", func() {
			input.Payment.Description = strings.Repeat("x", cfg.MaxDescriptionLength+1)

			appErr := paymentPkg.RunChain(paymentPkg.CoreRules(), input)

			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Reason).To(Equal(internal.ReasonDescriptionTooLong))
		})

		It("counts characters, not bytes", func() {
			// three bytes per rune; well under the cap by character count
			input.Payment.Description = strings.Repeat("ありがとう", 40)

			Expect(paymentPkg.RunChain(paymentPkg.CoreRules(), input)).To(BeNil())
		})

		It("rejects a multibyte description over the character cap", func() {
			input.Payment.Description = strings.Repeat("あ", cfg.MaxDescriptionLength+1)

			appErr := paymentPkg.RunChain(paymentPkg.CoreRules(), input)

			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Reason).To(Equal(internal.ReasonDescriptionTooLong))
		})
	})

	Describe("UTCDayBounds", func() {
		It("returns midnight to midnight of the UTC day", func() {
			start, end := paymentPkg.UTCDayBounds(time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC))

			Expect(start).To(Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))
			Expect(end).To(Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
		})

		It("normalizes non-UTC times to the UTC day", func() {
			loc := time.FixedZone("UTC+7", 7*3600)
			// 02:00 on the 15th in UTC+7 is 19:00 on the 14th UTC
			start, _ := paymentPkg.UTCDayBounds(time.Date(2026, 3, 15, 2, 0, 0, 0, loc))

			Expect(start).To(Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))
		})
	})
})
