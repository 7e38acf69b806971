package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/gamehub/gamehub-backend/internal/cron"
	"github.com/gamehub/gamehub-backend/internal/registrations"
	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/currency"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/instance"
	"github.com/gamehub/gamehub-backend/pkg/logger"
	"github.com/gamehub/gamehub-backend/pkg/metrics"
	"github.com/gamehub/gamehub-backend/pkg/migrate"
	"github.com/gamehub/gamehub-backend/pkg/redis"
	"github.com/gamehub/gamehub-backend/pkg/vnpay"
)

const serviceKind = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cron cycle and exit")
	flag.Parse()

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

	if err := run(ctx, cfg, logg, *once); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) error {
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

	service, err := buildService(cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		return err
	}

	if once {
		if err := service.RunOnce(ctx); err != nil {
			return fmt.Errorf("cron cycle: %w", err)
		}
		logg.Info(ctx, "cron cycle completed")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(gctx, "starting cron worker")
		if err := service.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.Cron.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.Cron.MetricsAddr,
			Handler:           metricsMux(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*cron.Service, error) {
	gateway, err := vnpay.NewClient(cfg.VNPay)
	if err != nil {
		return nil, fmt.Errorf("vnpay client: %w", err)
	}
	registrationService, err := registrations.NewService(registrations.ServiceParams{
		DB:         dbClient,
		Repo:       registrations.NewRepository(dbClient.DB()),
		Gateway:    gateway,
		Converter:  currency.NewConverter(cfg.Currency.USDToVNDRate),
		Metrics:    metrics.NewPaymentMetrics(reg),
		Logger:     logg,
		PendingTTL: cfg.Payments.PendingTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("registration service: %w", err)
	}

	expiryJob, err := cron.NewPaymentExpiryJob(cron.PaymentExpiryJobParams{
		Logger:  logg,
		Expirer: registrationService,
		Grace:   cfg.Payments.ExpiryGrace,
	})
	if err != nil {
		return nil, fmt.Errorf("payment expiry job: %w", err)
	}

	// the lease outlives one interval so a slow cycle is not taken over mid-run
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), cfg.Cron.Interval*2)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Cron.Interval,
	})
}

func metricsMux(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func closeQuietly(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+what, err)
	}
}
