package repository

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
	"gorm.io/gorm"
)

const maxAuditListLimit = 200

type AuditLogRepository interface {
	Create(ctx context.Context, e *domain.AuditEntry) error
	ListByMember(ctx context.Context, memberID string, limit int) ([]domain.AuditEntry, error)
}

type GormAuditLogRepo struct {
	db *gorm.DB
}

func NewGormAuditLogRepo(db *gorm.DB) *GormAuditLogRepo {
	return &GormAuditLogRepo{db: db}
}

func (r *GormAuditLogRepo) Create(ctx context.Context, e *domain.AuditEntry) error {
	model := auditModelFromDomain(e)
	if model == nil {
		return fmt.Errorf("%w: audit entry is required", domain.ErrValidation)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("%w: insert audit entry: %v", domain.ErrDataAccess, err)
	}
	*e = *auditModelToDomain(model)
	return nil
}

// ListByMember returns the member's audit entries, newest first.
func (r *GormAuditLogRepo) ListByMember(ctx context.Context, memberID string, limit int) ([]domain.AuditEntry, error) {
	if memberID == "" {
		return nil, fmt.Errorf("%w: member id is required", domain.ErrValidation)
	}
	if limit <= 0 || limit > maxAuditListLimit {
		limit = maxAuditListLimit
	}

	var models []NotificationLogModel
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list audit entries: %v", domain.ErrDataAccess, err)
	}

	entries := make([]domain.AuditEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *auditModelToDomain(&models[i]))
	}

	return entries, nil
}
