package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestCandidateFromRow(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)

	row := &membershipRow{
		MembershipID:           " 42 ",
		MembershipType:         "Quarterly",
		EndDate:                &end,
		MemberID:               "7",
		NameEn:                 strPtr("Ahmed"),
		NameAr:                 strPtr("أحمد"),
		WhatsAppNumber:         strPtr(""),
		Phone:                  strPtr("+971500000001"),
		Email:                  strPtr("ahmed@example.com"),
		NotificationPreference: strPtr("whatsapp"),
	}

	c, err := candidateFromRow(row, today)
	if err != nil {
		t.Fatalf("candidateFromRow() error = %v", err)
	}

	if c.MembershipID != "42" || c.MemberID != "7" {
		t.Fatalf("ids = %q/%q, want 42/7", c.MembershipID, c.MemberID)
	}
	if c.MemberDisplayName != "Ahmed" {
		t.Fatalf("MemberDisplayName = %q, want Ahmed", c.MemberDisplayName)
	}
	if c.Category != domain.CategoryQuarterly {
		t.Fatalf("Category = %q, want quarterly", c.Category)
	}
	if !c.ExpiryDate.Equal(end) || c.DaysRemaining != 3 {
		t.Fatalf("expiry = %v days=%d, want %v days=3", c.ExpiryDate, c.DaysRemaining, end)
	}
	if c.PreferredChannelHint != "whatsapp" {
		t.Fatalf("PreferredChannelHint = %q, want whatsapp", c.PreferredChannelHint)
	}

	want := []domain.ContactAddress{
		{Kind: domain.ContactPhone, Value: "+971500000001"},
		{Kind: domain.ContactEmail, Value: "ahmed@example.com"},
	}
	if !reflect.DeepEqual(c.ContactAddresses, want) {
		t.Fatalf("ContactAddresses = %#v, want %#v", c.ContactAddresses, want)
	}
}

func TestCandidateFromRowContactOrder(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	row := &membershipRow{
		MembershipID:   "1",
		MemberID:       "1",
		EndDate:        &today,
		Email:          strPtr("a@example.com"),
		Phone:          strPtr("+1"),
		WhatsAppNumber: strPtr("+2"),
	}

	c, err := candidateFromRow(row, today)
	if err != nil {
		t.Fatalf("candidateFromRow() error = %v", err)
	}

	wantKinds := []domain.ContactKind{domain.ContactWhatsApp, domain.ContactPhone, domain.ContactEmail}
	if len(c.ContactAddresses) != len(wantKinds) {
		t.Fatalf("contact count = %d, want %d", len(c.ContactAddresses), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if c.ContactAddresses[i].Kind != kind {
			t.Fatalf("contact[%d].Kind = %q, want %q", i, c.ContactAddresses[i].Kind, kind)
		}
	}
	if c.DaysRemaining != 0 {
		t.Fatalf("DaysRemaining = %d, want 0", c.DaysRemaining)
	}
	if c.Category != domain.CategoryOther {
		t.Fatalf("Category = %q, want other", c.Category)
	}
}

func TestCandidateFromRowDisplayNameFallback(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	row := &membershipRow{
		MembershipID: "1",
		MemberID:     "1",
		EndDate:      &today,
		NameEn:       strPtr("  "),
		NameAr:       strPtr("سارة"),
	}

	c, err := candidateFromRow(row, today)
	if err != nil {
		t.Fatalf("candidateFromRow() error = %v", err)
	}
	if c.MemberDisplayName != "سارة" {
		t.Fatalf("MemberDisplayName = %q, want سارة", c.MemberDisplayName)
	}
	if len(c.ContactAddresses) != 0 {
		t.Fatalf("ContactAddresses = %#v, want empty", c.ContactAddresses)
	}
}

func TestCandidateFromRowMalformed(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	past := today.AddDate(0, 0, -1)

	tests := []struct {
		name string
		row  *membershipRow
	}{
		{name: "nil row", row: nil},
		{name: "missing end date", row: &membershipRow{MembershipID: "1", MemberID: "1"}},
		{name: "missing membership id", row: &membershipRow{MemberID: "1", EndDate: &today}},
		{name: "missing member id", row: &membershipRow{MembershipID: "1", EndDate: &today}},
		{name: "end date before today", row: &membershipRow{MembershipID: "1", MemberID: "1", EndDate: &past}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := candidateFromRow(tt.row, today)
			if !errors.Is(err, domain.ErrDataAccess) {
				t.Fatalf("candidateFromRow() error = %v, want ErrDataAccess", err)
			}
		})
	}
}

func TestWindowBoundsAreInclusiveDates(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		threshold int
		wantFrom  string
		wantTo    string
	}{
		{name: "today only", threshold: 0, wantFrom: "2025-01-01", wantTo: "2025-01-01"},
		{name: "default week", threshold: 7, wantFrom: "2025-01-01", wantTo: "2025-01-08"},
		{name: "crosses month", threshold: 31, wantFrom: "2025-01-01", wantTo: "2025-02-01"},
	}

	for _, tt := range tests {
		from, to := windowBounds(today, tt.threshold)
		if from != tt.wantFrom || to != tt.wantTo {
			t.Fatalf("%s: windowBounds() = [%s, %s], want [%s, %s]", tt.name, from, to, tt.wantFrom, tt.wantTo)
		}
	}
}

func TestWindowBoundsFollowConfiguredTimezone(t *testing.T) {
	t.Parallel()

	dubai := time.FixedZone("GST", 4*60*60)
	now := time.Date(2024, 12, 31, 22, 0, 0, 0, time.UTC)

	from, to := windowBounds(domain.DateOf(now, dubai), 7)
	if from != "2025-01-01" || to != "2025-01-08" {
		t.Fatalf("windowBounds() = [%s, %s], want [2025-01-01, 2025-01-08]", from, to)
	}

	from, _ = windowBounds(domain.DateOf(now, time.UTC), 7)
	if from != "2024-12-31" {
		t.Fatalf("UTC from = %s, want 2024-12-31", from)
	}
}

func TestGormMembershipRepoRejectsNegativeThreshold(t *testing.T) {
	t.Parallel()

	repo := NewGormMembershipRepo(nil, nil)
	_, err := repo.FindExpiring(context.Background(), -1)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("FindExpiring() error = %v, want ErrValidation", err)
	}
}

func TestDemoMembershipRepoThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		threshold int
		wantIDs   []string
	}{
		{name: "today only", threshold: 0, wantIDs: []string{"demo-ms-1"}},
		{name: "two days inclusive", threshold: 2, wantIDs: []string{"demo-ms-1", "demo-ms-2"}},
		{name: "default week inclusive", threshold: 7, wantIDs: []string{"demo-ms-1", "demo-ms-2", "demo-ms-3", "demo-ms-4"}},
		{name: "whole roster", threshold: 30, wantIDs: []string{"demo-ms-1", "demo-ms-2", "demo-ms-3", "demo-ms-4", "demo-ms-5", "demo-ms-6"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := NewDemoMembershipRepo(time.UTC)
			repo.now = func() time.Time { return time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC) }

			got, err := repo.FindExpiring(context.Background(), tt.threshold)
			if err != nil {
				t.Fatalf("FindExpiring() error = %v", err)
			}

			ids := make([]string, 0, len(got))
			for _, c := range got {
				ids = append(ids, c.MembershipID)
				if c.DaysRemaining < 0 || c.DaysRemaining > tt.threshold {
					t.Fatalf("%s DaysRemaining = %d, want within [0, %d]", c.MembershipID, c.DaysRemaining, tt.threshold)
				}
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestDemoMembershipRepoUsesConfiguredTimezone(t *testing.T) {
	t.Parallel()

	dubai := time.FixedZone("GST", 4*60*60)
	repo := NewDemoMembershipRepo(dubai)
	// 22:00 UTC on Dec 31 is already Jan 1 in Dubai.
	repo.now = func() time.Time { return time.Date(2024, 12, 31, 22, 0, 0, 0, time.UTC) }

	got, err := repo.FindExpiring(context.Background(), 0)
	if err != nil {
		t.Fatalf("FindExpiring() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candidate count = %d, want 1", len(got))
	}
	if want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC); !got[0].ExpiryDate.Equal(want) {
		t.Fatalf("ExpiryDate = %v, want %v", got[0].ExpiryDate, want)
	}
}

func TestDemoMembershipRepoRejectsNegativeThreshold(t *testing.T) {
	t.Parallel()

	_, err := NewDemoMembershipRepo(nil).FindExpiring(context.Background(), -3)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("FindExpiring() error = %v, want ErrValidation", err)
	}
}
