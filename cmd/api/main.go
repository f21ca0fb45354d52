package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donation-ledger/config"
	httpHandler "donation-ledger/internal/adapter/http/handler"
	"donation-ledger/internal/adapter/provider"
	pgStorage "donation-ledger/internal/adapter/storage/postgres"
	redisStorage "donation-ledger/internal/adapter/storage/redis"
	"donation-ledger/internal/core/ports"
	"donation-ledger/internal/service"
	"donation-ledger/pkg/logger"

	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Donation Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	donationRepo := pgStorage.NewDonationRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	adminRepo := pgStorage.NewAdminRepo(pool)
	eventRepo := pgStorage.NewProviderEventRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	eventDedup := redisStorage.NewEventDedup(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService(cfg.Provider.WebhookSecret)
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	providerClient := provider.NewClient(cfg.Provider, nil, log)

	commissionRate := decimal.NewFromFloat(cfg.Ledger.CommissionRate)

	// Initialize business services
	intakeSvc := service.NewIntakeService(donationRepo, providerClient, cfg.Provider.Currency, cfg.Provider.ReturnURL, log)
	settlementSvc := service.NewSettlementService(
		donationRepo,
		walletRepo,
		eventRepo,
		providerClient,
		sigSvc,
		eventDedup,
		idempotencyCache,
		transactor,
		commissionRate,
		log,
	)
	withdrawalSvc := service.NewWithdrawalService(withdrawalRepo, walletRepo, transactor, cfg.Ledger.MinWithdrawal, log)
	authSvc := service.NewAuthService(adminRepo, hashSvc, tokenSvc)
	reportingSvc := service.NewReportingService(donationRepo, commissionRate)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		IntakeSvc:      intakeSvc,
		SettlementSvc:  settlementSvc,
		WithdrawalSvc:  withdrawalSvc,
		AuthSvc:        authSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
