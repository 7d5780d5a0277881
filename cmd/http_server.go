package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/account"
	accountpostgres "github.com/frahmantamala/payment-engine/internal/account/postgres"
	"github.com/frahmantamala/payment-engine/internal/bank"
	bankpostgres "github.com/frahmantamala/payment-engine/internal/bank/postgres"
	"github.com/frahmantamala/payment-engine/internal/core"
	"github.com/frahmantamala/payment-engine/internal/core/cache"
	"github.com/frahmantamala/payment-engine/internal/core/events"
	"github.com/frahmantamala/payment-engine/internal/payment"
	paymentpostgres "github.com/frahmantamala/payment-engine/internal/payment/postgres"
	"github.com/frahmantamala/payment-engine/internal/transport/middleware"
	"github.com/frahmantamala/payment-engine/internal/transport/rest"
	"github.com/frahmantamala/payment-engine/internal/worker"
	"github.com/frahmantamala/payment-engine/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	DB        *sqlx.DB
	Router    *chi.Mux
	Scheduler *worker.Scheduler
	Store     *cache.MemoryStore
	Logger    *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	deps.Scheduler.Start()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.Scheduler.Shutdown()
		deps.Store.Close()
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	bus := events.NewEventBus(log)
	telemetry := events.NewBusSink(bus)
	installErrorTelemetry(telemetry)

	clock := core.NewClock()
	store := cache.NewMemoryStore()

	paymentRepo := paymentpostgres.NewPaymentRepository(gdb)
	accountRepo := accountpostgres.NewAccountRepository(gdb)
	loginRepo := bankpostgres.NewBankLoginRepository(gdb)

	paymentService := payment.NewService(paymentRepo, accountRepo, &config.Payment, clock, telemetry, log)
	accountService := account.NewService(accountRepo, clock, log)

	adapter := bank.NewAdapter(bank.AdapterConfig{
		MockAPIURL:  config.Bank.MockAPIURL,
		APIKey:      config.Bank.APIKey,
		Timeout:     config.Bank.SyncTimeout,
		Simulate:    config.Bank.Simulate,
		FailureRate: config.Bank.FailureRate,
	}, log)
	bankService := bank.NewService(loginRepo, adapter, clock, log)

	router := worker.NewRouter(worker.RouterConfig{
		SystemBackoffBase:   config.Worker.SystemBackoffBase,
		ExternalBackoffBase: config.Worker.ExternalBackoff,
	}, telemetry, log)
	shell := worker.NewShell(router, telemetry, log)
	shell.Register(worker.NewPaymentPerformer(paymentService, config.Worker.PaymentTimeout))
	shell.Register(worker.NewSyncPerformer(bankService, config.Worker.SyncTimeout))

	deadLetters := worker.NewActionHandler(paymentService, log)
	scheduler := worker.NewScheduler(shell, deadLetters, store, worker.SchedulerConfig{
		MaxWorkers:   config.Worker.MaxWorkers,
		JobQueueSize: config.Worker.JobQueueSize,
	}, log)

	paymentHandler := payment.NewHandler(paymentService, scheduler, config.Worker.PaymentUniqueFor, log)
	accountHandler := account.NewHandler(accountService, log)
	bankHandler := bank.NewHandler(bankService, scheduler, config.Worker.SyncUniqueFor, log)

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	rest.RegisterAllRoutes(mux, db.DB, paymentHandler, accountHandler, bankHandler, log)

	return &Dependencies{
		Config:    config,
		Logger:    log,
		DB:        db,
		Router:    mux,
		Scheduler: scheduler,
		Store:     store,
	}, nil
}

// installErrorTelemetry forwards every constructed domain error onto the
// telemetry sink so dashboards see failures regardless of where they surface.
func installErrorTelemetry(sink events.Sink) {
	internal.SetErrorTelemetry(func(ev internal.ErrorEvent) {
		sink.Emit(events.EventTypeErrorRaised, nil, map[string]interface{}{
			"error_type":     string(ev.Type),
			"error_reason":   string(ev.Reason),
			"error_category": string(ev.Category),
			"retryable":      ev.Retryable,
			"circuit_break":  ev.CircuitBreak,
			"correlation_id": ev.CorrelationID,
			"source":         ev.Source,
		})
	})
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
