package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/TylerPac/SolaceStudio/internal/config"
	apphttp "github.com/TylerPac/SolaceStudio/internal/http"
	"github.com/TylerPac/SolaceStudio/internal/mailer"
	"github.com/TylerPac/SolaceStudio/internal/metrics"
	"github.com/TylerPac/SolaceStudio/internal/modules/email"
	"github.com/TylerPac/SolaceStudio/internal/modules/security"
	"github.com/TylerPac/SolaceStudio/internal/modules/shop"
	"github.com/TylerPac/SolaceStudio/internal/modules/tokens"
	"github.com/TylerPac/SolaceStudio/internal/modules/users"
	"github.com/TylerPac/SolaceStudio/internal/stripe"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	stripeClient, err := stripe.NewClient(cfg.StripeSecretKey)
	if err != nil {
		log.Fatalf("stripe: %v", err)
	}

	var mail mailer.Service = mailer.NewSMTPMailer(cfg.SMTPAddr)
	notifier := email.NewNotifier(mail, logger, cfg.SMTPFrom, cfg.SMTPFromName, cfg.BaseURL)

	userRepo := users.NewRepo(db)
	tokenSvc := tokens.NewService(tokens.NewGormStore(db))
	guard := security.NewService(security.NewGormStore(db), collector,
		cfg.RateLimitPerMinute, cfg.LockoutMaxFailures, cfg.LockoutDuration)

	minter := users.NewTokenMinter(cfg.JWTSecret, cfg.AccessTokenTTL)
	authSvc := users.NewAuthService(userRepo, guard, tokenSvc, minter, notifier, logger,
		cfg.RefreshTokenTTL, cfg.EmailVerificationTTL, cfg.PasswordResetTTL)

	orderRepo := shop.NewOrderRepo(db)
	eventRepo := shop.NewEventRepo(db)
	catalog := shop.NewCatalog(cfg.ShopCurrency)

	shopSvc := shop.NewService(orderRepo, userRepo, stripeClient, catalog, notifier, logger,
		cfg.ShopSuccessURL, cfg.ShopCancelURL)
	webhookSvc := shop.NewWebhookProcessor(orderRepo, eventRepo, userRepo, notifier,
		collector, logger, cfg.StripeWebhookSecret)
	reconciler := shop.NewReconciler(orderRepo, userRepo, stripeClient, notifier,
		collector, logger, cfg.ReconcileInterval)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:   logger,
		Minter:   minter,
		Auth:     authSvc,
		Shop:     shopSvc,
		Users:    userRepo,
		Webhook:  webhookSvc,
		Registry: registry,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reconciler.Start(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
