package repository

import (
	"reflect"
	"testing"
	"time"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

func TestAuditModelConversionKeepsUnreachableChannelEmpty(t *testing.T) {
	t.Parallel()

	detail := domain.UnreachableDetail
	entry := &domain.AuditEntry{
		ID:           "11111111-1111-1111-1111-111111111111",
		BatchID:      "22222222-2222-2222-2222-222222222222",
		MembershipID: "ms-1",
		MemberID:     "m-1",
		Type:         domain.NotificationTypeMembershipExpiry,
		Message:      "hello",
		Status:       domain.AuditStatusFailed,
		Error:        &detail,
		CreatedAt:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}

	model := auditModelFromDomain(entry)
	if model.Channel != nil || model.Destination != nil || model.SentAt != nil {
		t.Fatalf("unreachable entry stored channel=%v destination=%v sentAt=%v, want all nil",
			model.Channel, model.Destination, model.SentAt)
	}
	if model.NotificationType != "membership_expiry" {
		t.Fatalf("NotificationType = %q, want membership_expiry", model.NotificationType)
	}

	if back := auditModelToDomain(model); !reflect.DeepEqual(back, entry) {
		t.Fatalf("round trip = %#v, want %#v", back, entry)
	}
}

func TestAuditModelConversionSent(t *testing.T) {
	t.Parallel()

	sentAt := time.Date(2025, 1, 1, 9, 0, 1, 0, time.UTC)
	entry := &domain.AuditEntry{
		ID:          "id",
		Channel:     "whatsapp",
		Destination: "+971500000001",
		Status:      domain.AuditStatusSent,
		SentAt:      &sentAt,
	}

	model := auditModelFromDomain(entry)
	if model.Channel == nil || *model.Channel != "whatsapp" {
		t.Fatalf("Channel = %v, want whatsapp", model.Channel)
	}
	if model.Destination == nil || *model.Destination != "+971500000001" {
		t.Fatalf("Destination = %v, want +971500000001", model.Destination)
	}
	if auditModelFromDomain(nil) != nil {
		t.Fatal("auditModelFromDomain(nil) should be nil")
	}
	if auditModelToDomain(nil) != nil {
		t.Fatal("auditModelToDomain(nil) should be nil")
	}
}
