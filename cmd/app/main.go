// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remo-checkout/internal/config"
	"remo-checkout/internal/domain/model"
	"remo-checkout/internal/domain/ports/adapter"
	"remo-checkout/internal/domain/ports/repository"
	"remo-checkout/internal/infra/api"
	pg "remo-checkout/internal/infra/db/postgres"
	"remo-checkout/internal/infra/logging"
	"remo-checkout/internal/infra/metrics"
	"remo-checkout/internal/infra/notify"
	payinfra "remo-checkout/internal/infra/payment"
	red "remo-checkout/internal/infra/redis"
	"remo-checkout/internal/infra/sched"
	"remo-checkout/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	purchaseRepo := red.NewPurchaseRepo(redisClient)
	feedRepo := red.NewPricingFeedRepo(redisClient)

	// ---- Postgres ledger (optional) ----
	var ledger repository.LedgerRepository
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		ledgerRepo := pg.NewPostgresLedgerRepo(pool)
		if err := ledgerRepo.EnsureSchema(ctx); err != nil {
			log.Fatalf("ledger schema: %v", err)
		}
		ledger = ledgerRepo
	} else {
		logger.Info().Msg("database.url not set; purchase ledger disabled")
	}

	// ---- Gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.PayHero.BaseURL == "" {
		gateway = payinfra.NewNoopGateway()
		logger.Warn().Msg("payment gateway: noop (dev mode)")
	} else {
		gateway, err = payinfra.NewPayHeroGateway(cfg.PayHero.BaseURL, cfg.PayHero.Platform, cfg.PayHero.AccountID)
		if err != nil {
			log.Fatalf("payhero gateway: %v", err)
		}
	}

	// ---- Use cases ----
	converter, err := model.NewCurrencyConverter(cfg.Pricing.ExchangeRate)
	if err != nil {
		log.Fatalf("pricing.exchange_rate: %v", err)
	}
	pricingUC := usecase.NewPricingUseCase(feedRepo, logger)
	pricingUC.Refresh(ctx)

	recorder := notify.NewRecorder()
	notifier := notify.MultiNotifier{recorder, notify.NewLogNotifier(logger)}
	checkoutUC := usecase.NewCheckoutUseCase(pricingUC, converter, gateway, purchaseRepo, ledger, notifier, cfg.Checkout, logger)

	// ---- Reconciler ----
	if cfg.Reconciler.Enabled {
		rec := sched.NewPurchaseReconciler(purchaseRepo, gateway, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
		go rec.Start(ctx)
	}

	// ---- HTTP ----
	auth := api.NewAuthManager(cfg.Server.AdminSecret, cfg.Server.SecureCookies, cfg.Server.AdminTTL)
	srv := api.NewServer(checkoutUC, pricingUC, purchaseRepo, ledger, recorder, auth, cfg.Server.AdminPassword, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
