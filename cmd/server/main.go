package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"eudguide/internal/biometric"
	"eudguide/internal/config"
	"eudguide/internal/database"
	"eudguide/internal/handlers"
	"eudguide/internal/logger"
	"eudguide/internal/repository"
	"eudguide/internal/security"
	"eudguide/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "eudguide: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	log.Info("database connection established", "db_type", cfg.DatabaseType)

	applied, err := db.RunMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed", "applied", applied)

	snapshots := repository.NewSnapshotRepository(db)
	family, err := service.OpenFamilyService(ctx, snapshots, log)
	if err != nil {
		return err
	}

	notifier, err := service.NewNotificationService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.GuardianEmail, log)
	if err != nil {
		return fmt.Errorf("failed to initialize notifications: %w", err)
	}
	if notifier.IsEnabled() {
		family.SetRankObserver(notifier)
	}

	oracle, err := newOracle(ctx, cfg, log)
	if err != nil {
		return err
	}

	policy := service.DefaultGatePolicy()
	policy.Cooldown = cfg.BiometricCooldown
	policy.Timeout = cfg.GateTimeout
	verify := service.NewVerificationService(family, oracle, policy, cfg.GateSweepInterval, log)

	tokens, err := security.NewDashboardTokens(cfg.DashboardTokenSecret, cfg.DashboardTokenTTL)
	if err != nil {
		return err
	}
	if cfg.DashboardTokenSecret == "" {
		log.Warn("DASHBOARD_TOKEN_SECRET not set; dashboard tokens will not survive a restart")
	}
	limiter := security.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	limiter.TrustProxyHeaders(cfg.TrustProxyHeaders)

	router := handlers.NewRouter(handlers.Services{
		Family:  family,
		Verify:  verify,
		Reports: service.NewReportService(family, log),
		Tokens:  tokens,
		Limiter: limiter,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OracleTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error { return verify.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newOracle returns the Gemini-backed face comparison, or one that always
// reports itself unavailable when no API key is configured.
func newOracle(ctx context.Context, cfg *config.Config, log *logger.Logger) (biometric.Oracle, error) {
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY not set; biometric verification will fail closed")
		return biometric.OracleFunc(func(context.Context, biometric.Image, biometric.Image) (biometric.Result, error) {
			return biometric.Result{}, biometric.ErrOracleUnavailable
		}), nil
	}

	oracle, err := biometric.NewGenAIOracle(ctx, cfg.GeminiAPIKey, cfg.OracleModel, cfg.OracleTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize biometric oracle: %w", err)
	}
	log.Info("biometric oracle ready", "model", oracle.Name())
	return oracle, nil
}
