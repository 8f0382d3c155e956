package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kursadbilgin/expiry-reminder/internal/config"
	"github.com/kursadbilgin/expiry-reminder/internal/infra/postgresql"
	"github.com/kursadbilgin/expiry-reminder/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/expiry-reminder/internal/infra/redis"
	"github.com/kursadbilgin/expiry-reminder/internal/observability"
	"github.com/kursadbilgin/expiry-reminder/internal/provider"
	"github.com/kursadbilgin/expiry-reminder/internal/queue"
	"github.com/kursadbilgin/expiry-reminder/internal/repository"
	"github.com/kursadbilgin/expiry-reminder/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Runtime holds the wired components shared by the API server and the CLI.
type Runtime struct {
	DB         *gorm.DB
	SQLDB      *sql.DB
	Redis      *redis.Client
	Metrics    *observability.Metrics
	AuditLog   *service.AuditLogWriter
	Dispatcher *service.BatchDispatcher

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rt := &Runtime{Metrics: observability.NewMetrics()}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, postgresql.DefaultPoolOptions())
	if err != nil {
		return nil, fmt.Errorf("postgres initialization failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	rt.DB = db
	rt.SQLDB = sqlDB
	rt.closers = append(rt.closers, sqlDB.Close)

	if err := migrations.Migrate(db); err != nil {
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis initialization failed: %w", err)
	}
	rt.Redis = rdb
	rt.closers = append(rt.closers, rdb.Close)

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		return nil, fmt.Errorf("rate limiter initialization failed: %w", err)
	}

	gatewayProvider, err := provider.NewHTTPGatewayProvider(cfg.GatewayURL, cfg.GatewayToken)
	if err != nil {
		return nil, fmt.Errorf("gateway provider initialization failed: %w", err)
	}

	gateway, err := service.NewDispatchGateway(gatewayProvider, limiter, cfg.SendTimeout(), logger.Named("gateway"))
	if err != nil {
		return nil, err
	}
	gateway.SetLimiterWait(cfg.LimiterWait())
	gateway.SetMetrics(rt.Metrics)

	auditLog, err := service.NewAuditLogWriter(repository.NewGormAuditLogRepo(db), logger.Named("audit"))
	if err != nil {
		return nil, err
	}
	rt.AuditLog = auditLog

	var memberships repository.MembershipRepository
	if cfg.DemoMode {
		logger.Warn("demo mode enabled, using sample membership roster")
		memberships = repository.NewDemoMembershipRepo(cfg.Location())
	} else {
		memberships = repository.NewGormMembershipRepo(db, cfg.Location())
	}

	dispatcher, err := service.NewBatchDispatcher(
		memberships,
		gateway,
		auditLog,
		cfg.DispatchConcurrency,
		cfg.Location(),
		logger.Named("dispatcher"),
	)
	if err != nil {
		return nil, err
	}
	dispatcher.SetMetrics(rt.Metrics)

	if cfg.RabbitMQURL != "" {
		mq, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq initialization failed: %w", err)
		}
		publisher := queue.NewRabbitMQPublisher(mq)
		rt.closers = append(rt.closers, publisher.Close)
		dispatcher.SetPublisher(publisher)
		dispatcher.SetPublishTimeout(cfg.PublishTimeout())
	}
	rt.Dispatcher = dispatcher

	ok = true
	return rt, nil
}

// Close releases connections in reverse acquisition order.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}

	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil

	return errors.Join(errs...)
}
