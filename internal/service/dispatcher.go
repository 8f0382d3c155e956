package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/expiry-reminder/internal/domain"
	"github.com/kursadbilgin/expiry-reminder/internal/observability"
	"github.com/kursadbilgin/expiry-reminder/internal/queue"
	"github.com/kursadbilgin/expiry-reminder/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDispatchConcurrency = 4
	defaultPublishTimeout      = 10 * time.Second
)

// ReminderSender delivers one rendered reminder to a resolved destination.
type ReminderSender interface {
	Send(ctx context.Context, dest domain.Destination, message string) domain.SendResult
}

// AuditRecorder persists one audit entry on a best-effort basis.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// BatchDispatcher finds expiring memberships and sends each member a reminder.
type BatchDispatcher struct {
	memberships repository.MembershipRepository
	sender      ReminderSender
	audit       AuditRecorder
	publisher   queue.Publisher
	publishWait time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	loc         *time.Location
	now         func() time.Time
	newBatchID  func() string
}

func NewBatchDispatcher(
	memberships repository.MembershipRepository,
	sender ReminderSender,
	audit AuditRecorder,
	concurrency int,
	loc *time.Location,
	logger *zap.Logger,
) (*BatchDispatcher, error) {
	if memberships == nil {
		return nil, fmt.Errorf("membership repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("reminder sender is required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	if concurrency <= 0 {
		concurrency = defaultDispatchConcurrency
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchDispatcher{
		memberships: memberships,
		sender:      sender,
		audit:       audit,
		publishWait: defaultPublishTimeout,
		logger:      logger,
		concurrency: concurrency,
		loc:         loc,
		now:         time.Now,
		newBatchID:  uuid.NewString,
	}, nil
}

func (d *BatchDispatcher) SetMetrics(metrics *observability.Metrics) {
	d.metrics = metrics
}

// SetPublisher enables outcome events. A nil publisher disables them.
func (d *BatchDispatcher) SetPublisher(publisher queue.Publisher) {
	d.publisher = publisher
}

// SetPublishTimeout bounds the time a batch spends publishing all of its
// outcome events. Events still unpublished at the deadline are dropped.
func (d *BatchDispatcher) SetPublishTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.publishWait = timeout
	}
}

// Preview lists the current candidates with fresh daysRemaining and
// reachability, without sending anything.
func (d *BatchDispatcher) Preview(ctx context.Context, thresholdDays int) (*domain.Preview, error) {
	if err := domain.ValidateThreshold(thresholdDays); err != nil {
		return nil, err
	}

	candidates, err := d.memberships.FindExpiring(ctx, thresholdDays)
	if err != nil {
		return nil, fmt.Errorf("find expiring memberships: %w", err)
	}

	entries := make([]domain.PreviewEntry, 0, len(candidates))
	for _, c := range candidates {
		c.DaysRemaining = d.daysRemaining(c)
		_, ok := ResolveChannel(c)
		entries = append(entries, domain.PreviewEntry{Candidate: c, HasChannel: ok})
	}

	return &domain.Preview{
		ThresholdDays: thresholdDays,
		GeneratedAt:   d.now().UTC(),
		Entries:       entries,
	}, nil
}

// RunBatch dispatches reminders to every candidate in the window. Only a
// validation or query failure is returned as an error; per-candidate failures
// are reported in the result.
func (d *BatchDispatcher) RunBatch(ctx context.Context, thresholdDays int) (*domain.BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := domain.ValidateThreshold(thresholdDays); err != nil {
		d.metrics.IncBatchRun("error")
		return nil, err
	}

	batchID := d.newBatchID()
	ctx = observability.WithBatchID(ctx, batchID)
	logger := observability.WithContextLogger(d.logger, ctx)

	candidates, err := d.memberships.FindExpiring(ctx, thresholdDays)
	if err != nil {
		d.metrics.IncBatchRun("error")
		logger.Error("failed to query expiring memberships",
			zap.Int("thresholdDays", thresholdDays),
			zap.Error(err),
		)
		return nil, fmt.Errorf("find expiring memberships: %w", err)
	}

	logger.Info("dispatching expiry reminders",
		zap.Int("thresholdDays", thresholdDays),
		zap.Int("candidates", len(candidates)),
		zap.Int("concurrency", d.concurrency),
	)

	outcomes := make([]domain.DispatchOutcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i := range candidates {
		g.Go(func() error {
			outcomes[i] = d.dispatchOne(ctx, batchID, candidates[i])
			return nil
		})
	}
	_ = g.Wait()

	d.publishOutcomes(ctx, batchID, outcomes)

	result := domain.NewBatchResult(batchID, outcomes)

	if result.OverallSuccess {
		d.metrics.IncBatchRun("success")
	} else {
		d.metrics.IncBatchRun("partial")
	}

	logger.Info("expiry reminder batch finished",
		zap.Int("total", result.TotalCandidates),
		zap.Int("sent", result.SentCount),
		zap.Int("failed", result.FailedCount),
		zap.Bool("success", result.OverallSuccess),
	)

	return result, nil
}

func (d *BatchDispatcher) dispatchOne(ctx context.Context, batchID string, c domain.ExpiryCandidate) domain.DispatchOutcome {
	d.metrics.IncDispatchInFlight()
	defer d.metrics.DecDispatchInFlight()

	days := d.daysRemaining(c)

	outcome := domain.DispatchOutcome{
		MembershipID:      c.MembershipID,
		MemberID:          c.MemberID,
		MemberDisplayName: c.MemberDisplayName,
		DaysRemaining:     days,
	}
	entry := domain.AuditEntry{
		BatchID:      batchID,
		MembershipID: c.MembershipID,
		MemberID:     c.MemberID,
		Type:         domain.NotificationTypeMembershipExpiry,
	}

	dest, ok := ResolveChannel(c)
	if !ok {
		outcome.Status = domain.OutcomeUnreachable
		outcome.ErrorDetail = domain.UnreachableDetail
		d.metrics.IncReminderFailed(observability.ReasonUnreachable)
	} else {
		message := RenderReminder(c.MemberDisplayName, c.Category, days)
		entry.Channel = channelLabel(dest.Channel)
		entry.Destination = dest.Address
		entry.Message = message

		result := d.sender.Send(ctx, dest, message)
		if result.Success {
			outcome.Status = domain.OutcomeSent
			sentAt := d.now().UTC()
			entry.SentAt = &sentAt
		} else {
			outcome.Status = domain.OutcomeFailed
			outcome.ErrorDetail = result.Error
			if outcome.ErrorDetail == "" {
				outcome.ErrorDetail = "send failed"
			}
		}
	}

	entry.Status = outcome.Status.AuditStatus()
	if outcome.ErrorDetail != "" {
		detail := outcome.ErrorDetail
		entry.Error = &detail
	}
	entry.CreatedAt = d.now().UTC()

	// The log outlives a canceled caller.
	d.audit.Record(context.WithoutCancel(ctx), entry)

	return outcome
}

// publishOutcomes emits one event per outcome, in candidate order, once every
// send has finished. All events share a single deadline so a stalled broker
// delays the batch result by at most publishWait.
func (d *BatchDispatcher) publishOutcomes(ctx context.Context, batchID string, outcomes []domain.DispatchOutcome) {
	if d.publisher == nil || len(outcomes) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.publishWait)
	defer cancel()
	logger := observability.WithContextLogger(d.logger, ctx)

	for i, outcome := range outcomes {
		if ctx.Err() != nil {
			logger.Warn("outcome publish deadline reached, dropping remaining events",
				zap.Int("dropped", len(outcomes)-i),
				zap.Duration("timeout", d.publishWait),
			)
			return
		}

		msg := queue.NewOutcomeMessage(batchID, outcome, d.now())
		if err := d.publisher.PublishOutcome(ctx, msg); err != nil {
			logger.Warn("failed to publish outcome event",
				zap.String("membershipId", outcome.MembershipID),
				zap.Error(err),
			)
		}
	}
}

// daysRemaining recomputes the candidate's days left from the dispatcher clock.
func (d *BatchDispatcher) daysRemaining(c domain.ExpiryCandidate) int {
	today := domain.DateOf(d.now(), d.loc)
	days := domain.DaysBetween(today, c.ExpiryDate)
	if days < 0 {
		return 0
	}
	return days
}
