package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	accountpostgres "github.com/frahmantamala/payment-engine/internal/account/postgres"
	"github.com/frahmantamala/payment-engine/internal/bank"
	bankpostgres "github.com/frahmantamala/payment-engine/internal/bank/postgres"
	"github.com/frahmantamala/payment-engine/internal/core"
	"github.com/frahmantamala/payment-engine/internal/core/cache"
	"github.com/frahmantamala/payment-engine/internal/core/events"
	"github.com/frahmantamala/payment-engine/internal/payment"
	paymentpostgres "github.com/frahmantamala/payment-engine/internal/payment/postgres"
	"github.com/frahmantamala/payment-engine/internal/worker"
	"github.com/frahmantamala/payment-engine/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for background jobs",
	Long:  `Start and manage worker pools for payment processing and bank sync jobs.`,
}

var paymentWorkerCmd = &cobra.Command{
	Use:   "payment",
	Short: "Start payment processing worker pool",
	Long:  `Start the worker pool that drains payment_process jobs`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker(worker.JobTypePaymentProcess)
	},
}

var syncWorkerCmd = &cobra.Command{
	Use:   "sync",
	Short: "Start bank sync worker pool",
	Long:  `Start the worker pool that drains bank_sync jobs`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker(worker.JobTypeBankSync)
	},
}

var (
	maxWorkers   int
	jobQueueSize int
)

func init() {
	workerCmd.PersistentFlags().IntVar(&maxWorkers, "max-workers", 0, "number of concurrent workers (overrides config)")
	workerCmd.PersistentFlags().IntVar(&jobQueueSize, "queue-size", 0, "job queue capacity (overrides config)")
}

func startWorker(jobType worker.JobType) {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open gorm connection: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewEventBus(log)
	telemetry := events.NewBusSink(bus)
	installErrorTelemetry(telemetry)

	clock := core.NewClock()
	store := cache.NewMemoryStore()

	paymentRepo := paymentpostgres.NewPaymentRepository(gdb)
	accountRepo := accountpostgres.NewAccountRepository(gdb)
	paymentService := payment.NewService(paymentRepo, accountRepo, &config.Payment, clock, telemetry, log)

	router := worker.NewRouter(worker.RouterConfig{
		SystemBackoffBase:   config.Worker.SystemBackoffBase,
		ExternalBackoffBase: config.Worker.ExternalBackoff,
	}, telemetry, log)
	shell := worker.NewShell(router, telemetry, log)

	switch jobType {
	case worker.JobTypePaymentProcess:
		shell.Register(worker.NewPaymentPerformer(paymentService, config.Worker.PaymentTimeout))
	case worker.JobTypeBankSync:
		adapter := bank.NewAdapter(bank.AdapterConfig{
			MockAPIURL:  config.Bank.MockAPIURL,
			APIKey:      config.Bank.APIKey,
			Timeout:     config.Bank.SyncTimeout,
			Simulate:    config.Bank.Simulate,
			FailureRate: config.Bank.FailureRate,
		}, log)
		loginRepo := bankpostgres.NewBankLoginRepository(gdb)
		bankService := bank.NewService(loginRepo, adapter, clock, log)
		shell.Register(worker.NewSyncPerformer(bankService, config.Worker.SyncTimeout))
	}

	deadLetters := worker.NewActionHandler(paymentService, log)
	scheduler := worker.NewScheduler(shell, deadLetters, store, worker.SchedulerConfig{
		MaxWorkers:   getIntFlag(maxWorkers, config.Worker.MaxWorkers),
		JobQueueSize: getIntFlag(jobQueueSize, config.Worker.JobQueueSize),
	}, log)
	scheduler.Start()

	log.Info("worker pool running",
		"job_type", string(jobType),
		"max_workers", getIntFlag(maxWorkers, config.Worker.MaxWorkers),
		"job_queue_size", getIntFlag(jobQueueSize, config.Worker.JobQueueSize))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("received signal, shutting down worker pool", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		scheduler.Shutdown()
		store.Close()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		log.Info("worker pool shutdown complete")
	case <-ctx.Done():
		log.Warn("shutdown timeout reached, forcing exit")
	}

	_ = db.Close()
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}
