package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	bankpostgres "github.com/frahmantamala/payment-engine/internal/bank/postgres"
	accountmodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/account"
	banklogin "github.com/frahmantamala/payment-engine/internal/core/datamodel/banklogin"
	usermodel "github.com/frahmantamala/payment-engine/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm connection: %v", err)
		}

		if clearData {
			for _, table := range []string{"transactions", "payments", "bank_logins", "accounts", "users"} {
				if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		seedUser := func(email, name string) string {
			var existing usermodel.User
			if err := gdb.Where("email = ?", email).First(&existing).Error; err == nil {
				fmt.Println("user already exists:", email)
				return existing.ID
			}
			u := usermodel.User{
				ID:       uuid.NewString(),
				Email:    email,
				Name:     name,
				IsActive: true,
			}
			if err := gdb.Create(&u).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", email, err)
			}
			fmt.Println("Seeded user:", email)
			return u.ID
		}

		fadhilID := seedUser("fadhil@mail.com", "Fadhil")
		padilID := seedUser("padil@mail.com", "Padil")

		seedAccount := func(userID, name, accountType string, balance float64) {
			var count int64
			gdb.Model(&accountmodel.Account{}).
				Where("user_id = ? AND name = ?", userID, name).
				Count(&count)
			if count > 0 {
				fmt.Println("account already exists:", name)
				return
			}
			a := accountmodel.Account{
				ID:          uuid.NewString(),
				UserID:      userID,
				Name:        name,
				AccountType: accountType,
				Status:      accountmodel.StatusActive,
				Balance:     decimal.NewFromFloat(balance),
			}
			if err := gdb.Create(&a).Error; err != nil {
				log.Fatalf("failed to insert account %s: %v", name, err)
			}
			fmt.Printf("Seeded account: %s (%s, %.2f)\n", name, accountType, balance)
		}

		seedAccount(fadhilID, "Everyday Checking", accountmodel.TypeChecking, 2500.00)
		seedAccount(fadhilID, "Rainy Day Savings", accountmodel.TypeSavings, 8000.00)
		seedAccount(padilID, "Platinum Credit", accountmodel.TypeCredit, 0.00)
		seedAccount(padilID, "Index Fund", accountmodel.TypeInvestment, 15000.00)

		var loginCount int64
		gdb.Model(&banklogin.BankLogin{}).Where("user_id = ?", fadhilID).Count(&loginCount)
		if loginCount == 0 {
			l := banklogin.BankLogin{
				ID:          uuid.NewString(),
				UserID:      fadhilID,
				Institution: "First National",
				Status:      banklogin.StatusLinked,
			}
			if err := bankpostgres.NewBankLoginRepository(gdb).Create(&l); err != nil {
				log.Fatalf("failed to insert bank login: %v", err)
			}
			fmt.Println("Seeded bank login for:", "fadhil@mail.com")
		}

		fmt.Println("Seeding complete")
	},
}
