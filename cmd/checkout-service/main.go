package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/readcity/checkout/internal/checkout/adapters/draftstore"
	"github.com/readcity/checkout/internal/checkout/adapters/fake"
	"github.com/readcity/checkout/internal/checkout/adapters/orderapi"
	"github.com/readcity/checkout/internal/checkout/attemptlog/sqlite"
	"github.com/readcity/checkout/internal/checkout/core/flow"
	"github.com/readcity/checkout/internal/checkout/core/ports"
	"github.com/readcity/checkout/internal/checkout/infra/httpx"
	"github.com/readcity/checkout/internal/pkg/config"
	"github.com/readcity/checkout/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger("checkout-service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "checkout-service"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	attempts, err := sqlite.Open(cfg.AttemptsDBPath)
	if err != nil {
		slog.Error("failed to open attempt log", "path", cfg.AttemptsDBPath, "error", err)
		os.Exit(1)
	}
	defer attempts.Close()

	var store ports.DraftStore
	if cfg.RedisAddr != "" {
		store = draftstore.NewRedisStore(cfg.RedisAddr, cfg.DraftTTL)
		slog.Info("using redis draft store", "addr", cfg.RedisAddr, "ttl", cfg.DraftTTL)
	} else {
		store = draftstore.NewMemoryStore()
		slog.Warn("REDIS_ADDR not set, drafts will not survive a restart")
	}

	var orders ports.OrderService
	if cfg.OrderServiceURL != "" {
		orders = orderapi.New(cfg.OrderServiceURL)
	} else {
		orders = fake.NewOrderService()
		slog.Warn("ORDER_SERVICE_URL not set, using in-memory order service")
	}

	// The catalog-facing collaborators are in-memory stand-ins until the
	// storefront services expose their own APIs.
	engine := flow.New(
		fake.NewCartService(),
		fake.NewShippingRateService(),
		fake.NewGatewayDirectory(),
		orders,
		fake.NewAuthService(),
		store,
		attempts,
	)

	handler := httpx.NewHandler(engine, cfg.CartURL, cfg.LoginURL)
	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httpx.NewRouter(handler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("checkout service running", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
