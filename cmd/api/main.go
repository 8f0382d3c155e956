package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/expiry-reminder/internal/bootstrap"
	"github.com/kursadbilgin/expiry-reminder/internal/config"
	"github.com/kursadbilgin/expiry-reminder/internal/handler"
	"github.com/kursadbilgin/expiry-reminder/internal/observability"
	"github.com/kursadbilgin/expiry-reminder/internal/service"
	"github.com/kursadbilgin/expiry-reminder/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("expiry-reminder api stopped with error", zap.Error(err))
	}
	logger.Info("expiry-reminder api stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to release resources", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:               "expiry-reminder",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger.Named("http")),
	})
	app.Use(requestid.New())
	app.Use(transport.CorrelationMiddleware())
	app.Use(rt.Metrics.HTTPMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(rt.Metrics.Handler()))
	handler.RegisterHealthRoutes(app, rt.SQLDB, rt.Redis)
	if err := handler.RegisterReminderRoutes(app, rt.Dispatcher, rt.AuditLog, cfg.DefaultThresholdDays); err != nil {
		return err
	}

	var scheduler *service.ReminderScheduler
	if cfg.ReminderCronEnabled {
		scheduler, err = service.NewReminderScheduler(
			rt.Dispatcher,
			cfg.ReminderCron,
			cfg.DefaultThresholdDays,
			cfg.Location(),
			logger.Named("scheduler"),
		)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("expiry-reminder api started", zap.Int("port", cfg.APIPort), zap.Bool("demoMode", cfg.DemoMode))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if scheduler != nil {
		g.Go(func() error {
			return scheduler.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
