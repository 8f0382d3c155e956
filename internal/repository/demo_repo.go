package repository

import (
	"context"
	"sort"
	"time"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

type demoMember struct {
	membershipID string
	memberID     string
	name         string
	category     string
	offsetDays   int
	whatsapp     string
	phone        string
	email        string
	preference   string
}

var demoRoster = []demoMember{
	{"demo-ms-1", "demo-m-1", "Ahmed Hassan", "monthly", 0, "+971501110001", "", "ahmed@example.com", "whatsapp"},
	{"demo-ms-2", "demo-m-2", "Sara Ali", "quarterly", 2, "", "+971501110002", "", "whatsapp"},
	{"demo-ms-3", "demo-m-3", "Omar Khalid", "yearly", 5, "", "", "omar@example.com", "email"},
	{"demo-ms-4", "demo-m-4", "Layla Noor", "monthly", 7, "+971501110004", "+971501110044", "", "whatsapp"},
	{"demo-ms-5", "demo-m-5", "Yusuf Saleh", "day_pass", 12, "+971501110005", "", "", ""},
	{"demo-ms-6", "demo-m-6", "Mariam Adel", "yearly", 30, "+971501110006", "", "", "whatsapp"},
}

// DemoMembershipRepo serves a fixed sample roster with expiry dates relative to
// today. It applies the same window predicate as the store-backed repository.
type DemoMembershipRepo struct {
	loc *time.Location
	now func() time.Time
}

func NewDemoMembershipRepo(loc *time.Location) *DemoMembershipRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &DemoMembershipRepo{loc: loc, now: time.Now}
}

func (r *DemoMembershipRepo) FindExpiring(ctx context.Context, thresholdDays int) ([]domain.ExpiryCandidate, error) {
	if err := domain.ValidateThreshold(thresholdDays); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	today := domain.DateOf(r.now(), r.loc)

	candidates := make([]domain.ExpiryCandidate, 0, len(demoRoster))
	for _, m := range demoRoster {
		endDate := today.AddDate(0, 0, m.offsetDays)
		if !domain.InExpiryWindow(today, endDate, thresholdDays) {
			continue
		}

		row := &membershipRow{
			MembershipID:           m.membershipID,
			MembershipType:         m.category,
			EndDate:                &endDate,
			MemberID:               m.memberID,
			NameEn:                 &m.name,
			WhatsAppNumber:         optionalString(m.whatsapp),
			Phone:                  optionalString(m.phone),
			Email:                  optionalString(m.email),
			NotificationPreference: optionalString(m.preference),
		}
		c, err := candidateFromRow(row, today)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].ExpiryDate.Equal(candidates[j].ExpiryDate) {
			return candidates[i].ExpiryDate.Before(candidates[j].ExpiryDate)
		}
		return candidates[i].MembershipID < candidates[j].MembershipID
	})

	return candidates, nil
}
