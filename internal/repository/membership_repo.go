package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
	"gorm.io/gorm"
)

const storeDateLayout = "2006-01-02"

// MembershipRepository answers which active memberships expire within a window.
type MembershipRepository interface {
	FindExpiring(ctx context.Context, thresholdDays int) ([]domain.ExpiryCandidate, error)
}

type GormMembershipRepo struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func NewGormMembershipRepo(db *gorm.DB, loc *time.Location) *GormMembershipRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &GormMembershipRepo{db: db, loc: loc, now: time.Now}
}

func (r *GormMembershipRepo) FindExpiring(ctx context.Context, thresholdDays int) ([]domain.ExpiryCandidate, error) {
	if err := domain.ValidateThreshold(thresholdDays); err != nil {
		return nil, err
	}

	today := domain.DateOf(r.now(), r.loc)
	from, to := windowBounds(today, thresholdDays)

	var rows []membershipRow
	err := r.db.WithContext(ctx).
		Table("gym_memberships AS gm").
		Select(`CAST(gm.id AS TEXT) AS membership_id,
			gm.type AS membership_type,
			gm.end_date AS end_date,
			CAST(m.id AS TEXT) AS member_id,
			m.name_en, m.name_ar, m.whatsapp_number, m.phone, m.email, m.notification_preference`).
		Joins("JOIN members m ON m.id = gm.member_id").
		Where("gm.status = ?", "active").
		Where("gm.end_date >= ? AND gm.end_date <= ?", from, to).
		Order("gm.end_date ASC").
		Order("gm.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: query expiring memberships: %v", domain.ErrDataAccess, err)
	}

	candidates := make([]domain.ExpiryCandidate, 0, len(rows))
	for i := range rows {
		c, err := candidateFromRow(&rows[i], today)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// windowBounds renders the inclusive [today, today+threshold] window as the
// DATE literals compared against gm.end_date.
func windowBounds(today time.Time, thresholdDays int) (string, string) {
	from, to := domain.ExpiryWindow(today, thresholdDays)
	return from.Format(storeDateLayout), to.Format(storeDateLayout)
}

// candidateFromRow validates a store row and converts it into a candidate.
// Any malformed row is reported as ErrDataAccess.
func candidateFromRow(row *membershipRow, today time.Time) (domain.ExpiryCandidate, error) {
	if row == nil {
		return domain.ExpiryCandidate{}, fmt.Errorf("%w: nil membership row", domain.ErrDataAccess)
	}
	if row.EndDate == nil {
		return domain.ExpiryCandidate{}, fmt.Errorf("%w: membership %q has no end date", domain.ErrDataAccess, row.MembershipID)
	}

	expiry := domain.DateOf(*row.EndDate, time.UTC)
	days := domain.DaysBetween(today, expiry)

	c := domain.ExpiryCandidate{
		MembershipID:         strings.TrimSpace(row.MembershipID),
		MemberID:             strings.TrimSpace(row.MemberID),
		MemberDisplayName:    displayName(row),
		Category:             domain.ParseCategory(row.MembershipType),
		ExpiryDate:           expiry,
		DaysRemaining:        days,
		PreferredChannelHint: strings.TrimSpace(derefString(row.NotificationPreference)),
		ContactAddresses:     contactsFromRow(row),
	}
	if err := c.Validate(); err != nil {
		return domain.ExpiryCandidate{}, fmt.Errorf("%w: membership %q: %v", domain.ErrDataAccess, row.MembershipID, err)
	}

	return c, nil
}

func displayName(row *membershipRow) string {
	if name := strings.TrimSpace(derefString(row.NameEn)); name != "" {
		return name
	}
	return strings.TrimSpace(derefString(row.NameAr))
}

func contactsFromRow(row *membershipRow) []domain.ContactAddress {
	candidates := []struct {
		kind  domain.ContactKind
		value *string
	}{
		{domain.ContactWhatsApp, row.WhatsAppNumber},
		{domain.ContactPhone, row.Phone},
		{domain.ContactEmail, row.Email},
	}

	contacts := make([]domain.ContactAddress, 0, len(candidates))
	for _, c := range candidates {
		v := strings.TrimSpace(derefString(c.value))
		if v == "" {
			continue
		}
		contacts = append(contacts, domain.ContactAddress{Kind: c.kind, Value: v})
	}
	return contacts
}
