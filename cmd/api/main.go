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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/gamehub/gamehub-backend/api/routes"
	"github.com/gamehub/gamehub-backend/internal/auth"
	"github.com/gamehub/gamehub-backend/internal/cart"
	"github.com/gamehub/gamehub-backend/internal/catalog"
	"github.com/gamehub/gamehub-backend/internal/games"
	"github.com/gamehub/gamehub-backend/internal/registrations"
	"github.com/gamehub/gamehub-backend/internal/users"
	"github.com/gamehub/gamehub-backend/pkg/auth/session"
	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/currency"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/instance"
	"github.com/gamehub/gamehub-backend/pkg/logger"
	"github.com/gamehub/gamehub-backend/pkg/metrics"
	"github.com/gamehub/gamehub-backend/pkg/migrate"
	"github.com/gamehub/gamehub-backend/pkg/qr"
	"github.com/gamehub/gamehub-backend/pkg/redis"
	"github.com/gamehub/gamehub-backend/pkg/security"
	"github.com/gamehub/gamehub-backend/pkg/vnpay"
)

const (
	serviceKind     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Instance:    instance.GetID(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": cfg.Service.Kind})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(logg.WithField(gctx, "addr", addr), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, registry *prometheus.Registry) (routes.Dependencies, error) {
	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("session manager: %w", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		Users:          users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		Hasher:         security.NewHasher(cfg.Password),
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("auth service: %w", err)
	}

	gameRepo := games.NewRepository(dbClient.DB())
	gameService, err := games.NewService(gameRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("game service: %w", err)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("catalog service: %w", err)
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), gameRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("cart service: %w", err)
	}

	gateway, err := vnpay.NewClient(cfg.VNPay)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("vnpay client: %w", err)
	}
	guard, err := registrations.NewRedisGuard(redisClient, cfg.Payments.IdempotencyTTL)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("payment callback guard: %w", err)
	}
	registrationService, err := registrations.NewService(registrations.ServiceParams{
		DB:         dbClient,
		Repo:       registrations.NewRepository(dbClient.DB()),
		Gateway:    gateway,
		Converter:  currency.NewConverter(cfg.Currency.USDToVNDRate),
		Guard:      guard,
		Metrics:    metrics.NewPaymentMetrics(registry),
		Logger:     logg,
		PendingTTL: cfg.Payments.PendingTTL,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("registration service: %w", err)
	}

	return routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Sessions:      sessionManager,
		Auth:          authService,
		Games:         gameService,
		Catalog:       catalogService,
		Cart:          cartService,
		Registrations: registrationService,
		QR:            qr.PNGGenerator{},
		Gatherer:      registry,
	}, nil
}

func closeQuietly(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+what, err)
	}
}
