package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/expiry-reminder/internal/domain"
	"github.com/kursadbilgin/expiry-reminder/internal/observability"
	"github.com/kursadbilgin/expiry-reminder/internal/repository"
	"go.uber.org/zap"
)

const defaultAuditListLimit = 50

// AuditLogWriter appends dispatch attempts to the notifications log. Write
// failures are logged and dropped so they never affect a batch result.
type AuditLogWriter struct {
	repo   repository.AuditLogRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewAuditLogWriter(repo repository.AuditLogRepository, logger *zap.Logger) (*AuditLogWriter, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit log repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuditLogWriter{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (w *AuditLogWriter) Record(ctx context.Context, entry domain.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Type == "" {
		entry.Type = domain.NotificationTypeMembershipExpiry
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = w.now().UTC()
	}

	if err := w.repo.Create(ctx, &entry); err != nil {
		observability.WithContextLogger(w.logger, ctx).Error("failed to write audit entry",
			zap.String("membershipId", entry.MembershipID),
			zap.String("memberId", entry.MemberID),
			zap.String("status", entry.Status.String()),
			zap.Error(err),
		)
	}
}

// ListByMember returns a member's audit entries, newest first.
func (w *AuditLogWriter) ListByMember(ctx context.Context, memberID string, limit int) ([]domain.AuditEntry, error) {
	if memberID == "" {
		return nil, fmt.Errorf("%w: memberId is required", domain.ErrValidation)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0", domain.ErrValidation)
	}
	if limit == 0 {
		limit = defaultAuditListLimit
	}

	return w.repo.ListByMember(ctx, memberID, limit)
}
