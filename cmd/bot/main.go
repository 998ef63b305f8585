package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/app"
	"github.com/Freeeeeet/classbooking_bot/internal/calendar"
	"github.com/Freeeeeet/classbooking_bot/internal/config"
	"github.com/Freeeeeet/classbooking_bot/internal/controller"
	httpx "github.com/Freeeeeet/classbooking_bot/internal/infra/http"
	"github.com/Freeeeeet/classbooking_bot/internal/infra/metrics"
	"github.com/Freeeeeet/classbooking_bot/internal/provider"
	"github.com/Freeeeeet/classbooking_bot/internal/repository"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting class booking bot",
		zap.String("environment", cfg.Environment),
		zap.String("backend_mode", cfg.BackendMode),
		zap.String("timezone", cfg.Timezone))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}
	logger.Info("Graceful shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	week := calendar.NewWeek(calendar.SystemClock{}, loc)

	backend, closeBackend, err := newBackend(ctx, cfg, week, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	bookingService := service.NewBookingService(backend, week, service.Config{
		PageSize:           cfg.PageSize,
		CancelRefreshDelay: cfg.CancelRefreshDelay,
	}, logger)

	scheduler := app.NewScheduler(bookingService, cfg.CatalogRefreshInterval, logger)
	bookingService.SetRefresher(scheduler)

	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return err
	}
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		return err
	}
	botController := controller.NewBotController(b, bookingService, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		return err
	}

	srv := httpx.New(cfg.HTTPAddr, cfg.MetricsEnabled, registry)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server started", zap.String("addr", cfg.HTTPAddr))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		scheduler.Start(gctx)
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		return botController.Start(gctx)
	})

	return g.Wait()
}

// newBackend система записи: своя база или API провайдера
func newBackend(ctx context.Context, cfg *config.Config, week *calendar.Week, logger *zap.Logger) (service.Backend, func(), error) {
	if cfg.BackendMode == config.BackendHTTP {
		client := provider.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.BackendTimeout, week.Location(), logger)
		logger.Info("Using provider API backend", zap.String("url", cfg.BackendURL))
		return client, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("Database connected")

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	err = migrator.Run(ctx)
	_ = migrator.Close()
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repository.NewStore(pool, week, logger), pool.Close, nil
}
