package repository

import (
	"time"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

// NotificationLogModel is the persistence model for the notifications_log table.
type NotificationLogModel struct {
	ID               string             `gorm:"type:uuid;primaryKey"`
	BatchID          string             `gorm:"type:uuid;not null"`
	MembershipID     string             `gorm:"type:varchar(64);not null"`
	MemberID         string             `gorm:"type:varchar(64);not null"`
	NotificationType string             `gorm:"column:type;type:varchar(50);not null"`
	Channel          *string            `gorm:"type:varchar(20)"`
	Destination      *string            `gorm:"type:varchar(255)"`
	MessageContent   string             `gorm:"type:text;not null"`
	Status           domain.AuditStatus `gorm:"type:varchar(20);not null"`
	Error            *string            `gorm:"type:text"`
	SentAt           *time.Time         `gorm:"type:timestamptz"`
	CreatedAt        time.Time
}

func (NotificationLogModel) TableName() string {
	return "notifications_log"
}

func auditModelFromDomain(e *domain.AuditEntry) *NotificationLogModel {
	if e == nil {
		return nil
	}

	return &NotificationLogModel{
		ID:               e.ID,
		BatchID:          e.BatchID,
		MembershipID:     e.MembershipID,
		MemberID:         e.MemberID,
		NotificationType: e.Type,
		Channel:          optionalString(e.Channel),
		Destination:      optionalString(e.Destination),
		MessageContent:   e.Message,
		Status:           e.Status,
		Error:            e.Error,
		SentAt:           e.SentAt,
		CreatedAt:        e.CreatedAt,
	}
}

func auditModelToDomain(m *NotificationLogModel) *domain.AuditEntry {
	if m == nil {
		return nil
	}

	return &domain.AuditEntry{
		ID:           m.ID,
		BatchID:      m.BatchID,
		MembershipID: m.MembershipID,
		MemberID:     m.MemberID,
		Type:         m.NotificationType,
		Channel:      derefString(m.Channel),
		Destination:  derefString(m.Destination),
		Message:      m.MessageContent,
		Status:       m.Status,
		Error:        m.Error,
		SentAt:       m.SentAt,
		CreatedAt:    m.CreatedAt,
	}
}

// membershipRow is one joined gym_memberships/members row as scanned from the store.
type membershipRow struct {
	MembershipID           string     `gorm:"column:membership_id"`
	MembershipType         string     `gorm:"column:membership_type"`
	EndDate                *time.Time `gorm:"column:end_date"`
	MemberID               string     `gorm:"column:member_id"`
	NameEn                 *string    `gorm:"column:name_en"`
	NameAr                 *string    `gorm:"column:name_ar"`
	WhatsAppNumber         *string    `gorm:"column:whatsapp_number"`
	Phone                  *string    `gorm:"column:phone"`
	Email                  *string    `gorm:"column:email"`
	NotificationPreference *string    `gorm:"column:notification_preference"`
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
