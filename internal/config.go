package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Bank          BankConfig          `mapstructure:"bank"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PaymentConfig holds the business-rule knobs. Defaults match the documented
// product limits; they are configuration surface, not per-tenant settings.
type PaymentConfig struct {
	MinAmount              float64            `mapstructure:"min_amount"`
	SingleTransactionLimit float64            `mapstructure:"single_transaction_limit"`
	DailyLimits            map[string]float64 `mapstructure:"daily_limits"`
	DefaultDailyLimit      float64            `mapstructure:"default_daily_limit"`
	DuplicateWindow        time.Duration      `mapstructure:"duplicate_window"`
	MaxDescriptionLength   int                `mapstructure:"max_description_length"`
}

type WorkerConfig struct {
	MaxWorkers        int           `mapstructure:"max_workers"`
	JobQueueSize      int           `mapstructure:"job_queue_size"`
	PaymentTimeout    time.Duration `mapstructure:"payment_timeout"`
	SyncTimeout       time.Duration `mapstructure:"sync_timeout"`
	PaymentUniqueFor  time.Duration `mapstructure:"payment_unique_for"`
	SyncUniqueFor     time.Duration `mapstructure:"sync_unique_for"`
	SystemBackoffBase time.Duration `mapstructure:"system_backoff_base"`
	ExternalBackoff   time.Duration `mapstructure:"external_backoff_base"`
}

type BankConfig struct {
	MockAPIURL  string        `mapstructure:"mock_api_url"`
	APIKey      string        `mapstructure:"api_key"`
	SyncTimeout time.Duration `mapstructure:"sync_timeout"`
	Simulate    bool          `mapstructure:"simulate"`
	FailureRate float64       `mapstructure:"failure_rate"`
}

func (c *PaymentConfig) ApplyDefaults() {
	if c.MinAmount <= 0 {
		c.MinAmount = 0.01
	}
	if c.SingleTransactionLimit <= 0 {
		c.SingleTransactionLimit = 10000.00
	}
	if len(c.DailyLimits) == 0 {
		c.DailyLimits = map[string]float64{
			"checking":   1000,
			"savings":    500,
			"credit":     2000,
			"investment": 5000,
		}
	}
	if c.DefaultDailyLimit <= 0 {
		c.DefaultDailyLimit = 1000
	}
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = 5 * time.Minute
	}
	if c.MaxDescriptionLength <= 0 {
		c.MaxDescriptionLength = 255
	}
}

func (c *WorkerConfig) ApplyDefaults() {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 10
	}
	if c.JobQueueSize <= 0 {
		c.JobQueueSize = 100
	}
	if c.PaymentTimeout <= 0 {
		c.PaymentTimeout = 5 * time.Minute
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = 10 * time.Minute
	}
	if c.PaymentUniqueFor <= 0 {
		c.PaymentUniqueFor = 60 * time.Second
	}
	if c.SyncUniqueFor <= 0 {
		c.SyncUniqueFor = 300 * time.Second
	}
	if c.SystemBackoffBase <= 0 {
		c.SystemBackoffBase = 2 * time.Second
	}
	if c.ExternalBackoff <= 0 {
		c.ExternalBackoff = 3 * time.Second
	}
}

func (c *PaymentConfig) MinAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinAmount)
}

func (c *PaymentConfig) SingleTransactionLimitDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SingleTransactionLimit)
}

// DailyLimitFor returns the per-type daily DEBIT limit, falling back to the
// default when the account type has no entry.
func (c *PaymentConfig) DailyLimitFor(accountType string) decimal.Decimal {
	if limit, ok := c.DailyLimits[strings.ToLower(accountType)]; ok {
		return decimal.NewFromFloat(limit)
	}
	return decimal.NewFromFloat(c.DefaultDailyLimit)
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	c.Worker.ApplyDefaults()

	if err := c.Bank.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("bank config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *PaymentConfig) Validate() error {
	c.ApplyDefaults()
	if c.MinAmount >= c.SingleTransactionLimit {
		return errors.New("min_amount must be below single_transaction_limit")
	}
	return nil
}

func (c *BankConfig) Validate() error {
	if !c.Simulate && c.MockAPIURL == "" {
		return errors.New("mock_api_url is required unless simulate is enabled")
	}
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return errors.New("failure_rate must be between 0 and 1")
	}
	return nil
}
