package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/clientdata"
	"github.com/mmorris35/council/internal/clients/quotes"
	"github.com/mmorris35/council/internal/config"
	"github.com/mmorris35/council/internal/database"
	"github.com/mmorris35/council/internal/domain"
	"github.com/mmorris35/council/internal/modules/accounts"
	"github.com/mmorris35/council/internal/modules/agent"
	"github.com/mmorris35/council/internal/modules/alerts"
	"github.com/mmorris35/council/internal/modules/analytics"
	"github.com/mmorris35/council/internal/modules/ledger"
	"github.com/mmorris35/council/internal/modules/marketdata"
	"github.com/mmorris35/council/internal/modules/portfolio"
	"github.com/mmorris35/council/internal/modules/runs"
	"github.com/mmorris35/council/internal/modules/strategy"
	"github.com/mmorris35/council/internal/modules/trading"
	"github.com/mmorris35/council/internal/reliability"
	"github.com/mmorris35/council/internal/scheduler"
	"github.com/mmorris35/council/internal/server"
	"github.com/mmorris35/council/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Council")

	// Initialize databases
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize portfolio database")
	}
	defer portfolioDB.Close()

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger database")
	}
	defer ledgerDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache database")
	}
	defer cacheDB.Close()

	// Run migrations
	for _, db := range []*database.DB{portfolioDB, ledgerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to run migrations")
		}
	}

	// Repositories
	accountRepo := accounts.NewRepository(portfolioDB.Conn(), log)
	portfolioRepo := portfolio.NewRepository(portfolioDB.Conn(), log)
	transactionRepo := trading.NewTransactionRepository(ledgerDB.Conn(), log)
	runRepo := runs.NewRunRepository(ledgerDB.Conn(), log)
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	store := portfolio.NewStore(portfolioRepo, transactionRepo, runRepo)

	// Market data
	quoteClient := quotes.NewClient(
		cfg.QuoteBaseURL,
		time.Duration(cfg.QuoteTimeoutSec)*time.Second,
		log,
	)
	market := marketdata.NewService(
		quoteClient,
		cacheRepo,
		time.Duration(cfg.CacheTTLMinutes)*time.Minute,
		log,
	)

	// Optional AWS services (alerts, backups)
	var notifier domain.AlertNotifier
	var backupSvc *reliability.BackupService
	if cfg.SenderEmail != "" || cfg.BackupBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS configuration")
		}
		if cfg.SenderEmail != "" {
			notifier = alerts.NewSESNotifier(sesv2.NewFromConfig(awsCfg), cfg.SenderEmail, log)
			log.Info().Str("sender", cfg.SenderEmail).Msg("Email alerts enabled")
		}
		if cfg.BackupBucket != "" {
			uploader := manager.NewUploader(s3.NewFromConfig(awsCfg))
			backupSvc = reliability.NewBackupService(uploader, cfg.BackupBucket,
				[]string{portfolioDB.Path(), ledgerDB.Path(), cacheDB.Path()}, log)
			log.Info().Str("bucket", cfg.BackupBucket).Msg("Database backups enabled")
		}
	}

	// Agent
	policies := strategy.All(strategy.Config{})
	runner := agent.NewRunner(store, market, ledger.New(log), agent.RunnerConfig{
		StartingCash:        cfg.StartingCash,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}, log)
	orchestrator := agent.NewOrchestrator(runner, accountRepo, policies, notifier,
		cfg.MaxConcurrentRuns, log)

	// Scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if err := registerJobs(sched, cfg, orchestrator, cacheRepo, backupSvc, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// HTTP server
	srv := server.New(server.Config{
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		Accounts:     accountRepo,
		Portfolios:   portfolioRepo,
		Runs:         runRepo,
		Transactions: transactionRepo,
		Analytics:    analytics.NewService(runRepo, log),
		Orchestrator: orchestrator,
		Policies:     policies,
		Databases:    []*database.DB{portfolioDB, ledgerDB, cacheDB},
		Log:          log,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	orchestrator *agent.Orchestrator,
	cacheRepo *clientdata.Repository,
	backupSvc *reliability.BackupService,
	log zerolog.Logger,
) error {
	if err := sched.AddJob(cfg.DailySchedule, scheduler.NewDailyCycle(orchestrator, 30*time.Minute, log)); err != nil {
		return err
	}
	if err := sched.AddJob("0 0 * * * *", scheduler.NewCachePurge(cacheRepo, log)); err != nil {
		return err
	}
	if backupSvc != nil {
		// After US market close, well clear of the daily cycle.
		if err := sched.AddJob("0 30 22 * * *", scheduler.NewBackup(backupSvc, 10*time.Minute)); err != nil {
			return err
		}
	}
	return nil
}
