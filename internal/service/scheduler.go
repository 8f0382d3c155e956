package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultScheduledRunTimeout = 30 * time.Minute

// BatchRunner runs one reminder batch.
type BatchRunner interface {
	RunBatch(ctx context.Context, thresholdDays int) (*domain.BatchResult, error)
}

// ReminderScheduler triggers RunBatch on a cron schedule. A run still in
// progress when the next tick fires causes that tick to be skipped.
type ReminderScheduler struct {
	cron          *cron.Cron
	runner        BatchRunner
	thresholdDays int
	timeout       time.Duration
	logger        *zap.Logger
	entryID       cron.EntryID
}

func NewReminderScheduler(
	runner BatchRunner,
	spec string,
	thresholdDays int,
	loc *time.Location,
	logger *zap.Logger,
) (*ReminderScheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("batch runner is required")
	}
	if err := domain.ValidateThreshold(thresholdDays); err != nil {
		return nil, err
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("%w: invalid cron spec %q: %v", domain.ErrValidation, spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cronLogger := cronZapLogger{logger: logger.Named("cron")}
	s := &ReminderScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:        runner,
		thresholdDays: thresholdDays,
		timeout:       defaultScheduledRunTimeout,
		logger:        logger,
	}

	id, err := s.cron.AddFunc(spec, func() { s.runOnce(context.Background()) })
	if err != nil {
		return nil, fmt.Errorf("failed to register reminder job: %w", err)
	}
	s.entryID = id

	return s, nil
}

// Start runs the schedule until ctx is canceled, then waits for an in-flight run.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.cron.Start()
	s.logger.Info("reminder scheduler started", zap.Time("nextRun", s.Next()))

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("reminder scheduler stopped")

	return nil
}

// Next reports the next scheduled run. It is zero until Start is called.
func (s *ReminderScheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *ReminderScheduler) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.runner.RunBatch(ctx, s.thresholdDays)
	if err != nil {
		s.logger.Error("scheduled reminder batch failed",
			zap.Int("thresholdDays", s.thresholdDays),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("scheduled reminder batch completed",
		zap.String("batchId", result.BatchID),
		zap.Int("sent", result.SentCount),
		zap.Int("failed", result.FailedCount),
	)
}

// cronZapLogger adapts zap to cron.Logger.
type cronZapLogger struct {
	logger *zap.Logger
}

func (l cronZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronZapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
