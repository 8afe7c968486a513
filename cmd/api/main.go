package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"company-wallet/config"
	httpHandler "company-wallet/internal/adapter/http/handler"
	"company-wallet/internal/adapter/http/middleware"
	"company-wallet/internal/adapter/sms"
	memStorage "company-wallet/internal/adapter/storage/memory"
	pgStorage "company-wallet/internal/adapter/storage/postgres"
	redisStorage "company-wallet/internal/adapter/storage/redis"
	"company-wallet/internal/core/ports"
	"company-wallet/internal/service"
	"company-wallet/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage bundles the repositories of whichever driver is configured.
type storage struct {
	balances   ports.BalanceStore
	ledger     ports.LedgerRepository
	allowances ports.AllowanceRepository
	payments   ports.PaymentRequestRepository
	payouts    ports.PayoutRepository
	categories ports.MerchantCategoryRepository
	directory  ports.DirectoryRepository
	transactor ports.DBTransactor
	idem       ports.IdempotencyCache
	limits     middleware.RateLimitStore
	health     []ports.HealthChecker
	closers    []func()
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Company Wallet Ledger")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	sender, err := newOTPSender(cfg.SMS, logger.WithComponent(log, "sms"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize OTP sender")
	}

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	ledgerSvc := service.NewWalletLedgerService(store.balances, store.ledger, store.transactor, logger.WithComponent(log, "wallet_ledger"))
	paymentSvc := service.NewPaymentRequestService(
		store.payments,
		store.allowances,
		store.balances,
		store.ledger,
		store.categories,
		store.directory,
		sender,
		store.transactor,
		service.PaymentRequestConfig{OTPTTL: cfg.OTP.TTL, MaxAttempts: cfg.OTP.MaxAttempts},
		logger.WithComponent(log, "payment_requests"),
	)
	payoutSvc := service.NewPayoutService(
		store.payouts,
		store.balances,
		store.ledger,
		store.idem,
		store.transactor,
		logger.WithComponent(log, "payouts"),
	)
	allowanceSvc := service.NewAllowanceService(store.allowances, store.transactor, logger.WithComponent(log, "allowances"))
	categorySvc := service.NewMerchantCategoryService(store.categories, store.transactor, logger.WithComponent(log, "categories"))

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Ledger:         ledgerSvc,
		Payments:       paymentSvc,
		Payouts:        payoutSvc,
		Allowances:     allowanceSvc,
		Categories:     categorySvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: store.limits,
		RateLimitRules: middleware.DefaultRateLimitRules(cfg.RateLimit.PaymentRequests, cfg.RateLimit.Window),
		HealthCheckers: store.health,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

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

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		db := memStorage.NewDB(cfg.Ledger.Currency)
		log.Warn().Msg("Using in-memory storage, state is lost on restart; rate limiting and payout idempotency keys are disabled")

		return &storage{
			balances:   memStorage.NewBalanceStore(db),
			ledger:     memStorage.NewLedgerRepo(db),
			allowances: memStorage.NewAllowanceRepo(db),
			payments:   memStorage.NewPaymentRequestRepo(db),
			payouts:    memStorage.NewPayoutRepo(db),
			categories: memStorage.NewMerchantCategoryRepo(db),
			directory:  memStorage.NewDirectoryRepo(db),
			transactor: memStorage.NewTransactor(db),
			health:     []ports.HealthChecker{db},
		}, nil

	case "postgres", "":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info().Msg("PostgreSQL connected")

		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info().Msg("Redis connected")

		return &storage{
			balances:   pgStorage.NewBalanceStore(pool, cfg.Ledger.Currency),
			ledger:     pgStorage.NewLedgerRepo(pool),
			allowances: pgStorage.NewAllowanceRepo(pool),
			payments:   pgStorage.NewPaymentRequestRepo(pool),
			payouts:    pgStorage.NewPayoutRepo(pool),
			categories: pgStorage.NewMerchantCategoryRepo(pool),
			directory:  pgStorage.NewDirectoryRepo(pool),
			transactor: pgStorage.NewTransactor(pool),
			idem:       redisStorage.NewIdempotencyCache(rdb),
			limits:     redisStorage.NewRateLimitStore(rdb),
			health:     []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb, "")},
			closers:    []func(){pool.Close, func() { _ = rdb.Close() }},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func newOTPSender(cfg config.SMSConfig, log zerolog.Logger) (ports.OTPSender, error) {
	switch cfg.Provider {
	case "payamak":
		gw, err := sms.NewGateway(cfg, nil, log)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case "log", "":
		return sms.NewLogSender(log), nil
	}
	return nil, fmt.Errorf("unknown sms provider %q", cfg.Provider)
}
