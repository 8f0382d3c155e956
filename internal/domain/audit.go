package domain

import "time"

// AuditStatus is the stored status of a dispatch attempt.
type AuditStatus string

const (
	AuditStatusSent   AuditStatus = "sent"
	AuditStatusFailed AuditStatus = "failed"
)

func (s AuditStatus) String() string { return string(s) }

const NotificationTypeMembershipExpiry = "membership_expiry"

// AuditEntry is one append-only record of a dispatch attempt. Channel and
// Destination stay empty when no channel could be resolved.
type AuditEntry struct {
	ID           string
	BatchID      string
	MembershipID string
	MemberID     string
	Type         string
	Channel      string
	Destination  string
	Message      string
	Status       AuditStatus
	Error        *string
	SentAt       *time.Time
	CreatedAt    time.Time
}
