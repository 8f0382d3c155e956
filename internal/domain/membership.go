package domain

import (
	"fmt"
	"strings"
	"time"
)

// MembershipCategory selects the reminder template for a membership.
type MembershipCategory string

const (
	CategoryMonthly   MembershipCategory = "monthly"
	CategoryQuarterly MembershipCategory = "quarterly"
	CategoryYearly    MembershipCategory = "yearly"
	CategoryOther     MembershipCategory = "other"
)

func (c MembershipCategory) String() string { return string(c) }

func (c MembershipCategory) IsValid() bool {
	switch c {
	case CategoryMonthly, CategoryQuarterly, CategoryYearly, CategoryOther:
		return true
	}
	return false
}

// ParseCategory maps a store value onto the closed category set. Unknown values
// become CategoryOther rather than failing.
func ParseCategory(s string) MembershipCategory {
	c := MembershipCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return CategoryOther
	}
	return c
}

// ContactKind is the type of a stored member contact address.
type ContactKind string

const (
	ContactWhatsApp ContactKind = "whatsapp"
	ContactPhone    ContactKind = "phone"
	ContactEmail    ContactKind = "email"
)

func (k ContactKind) String() string { return string(k) }

type ContactAddress struct {
	Kind  ContactKind
	Value string
}

// Channel is a delivery mechanism the gateway can send through.
type Channel string

const (
	ChannelWhatsApp Channel = "WHATSAPP"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	return c == ChannelWhatsApp
}

// Destination is a resolved channel plus the address to deliver to.
type Destination struct {
	Channel Channel
	Address string
}

// ExpiryCandidate is a membership eligible for an expiry reminder.
type ExpiryCandidate struct {
	MembershipID         string
	MemberID             string
	MemberDisplayName    string
	Category             MembershipCategory
	ExpiryDate           time.Time
	DaysRemaining        int
	PreferredChannelHint string
	ContactAddresses     []ContactAddress
}

func (c *ExpiryCandidate) Validate() error {
	if strings.TrimSpace(c.MembershipID) == "" {
		return fmt.Errorf("%w: membership id is required", ErrValidation)
	}
	if strings.TrimSpace(c.MemberID) == "" {
		return fmt.Errorf("%w: member id is required", ErrValidation)
	}
	if c.ExpiryDate.IsZero() {
		return fmt.Errorf("%w: expiry date is required", ErrValidation)
	}
	if c.DaysRemaining < 0 {
		return fmt.Errorf("%w: days remaining must be >= 0 (got %d)", ErrValidation, c.DaysRemaining)
	}
	return nil
}

// DateOf returns the calendar date of t in loc as midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from today to date. Both arguments are
// expected to be calendar dates produced by DateOf.
func DaysBetween(today, date time.Time) int {
	return int(date.Sub(today).Hours() / 24)
}

// ExpiryWindow returns the inclusive date range [today, today+thresholdDays].
func ExpiryWindow(today time.Time, thresholdDays int) (time.Time, time.Time) {
	return today, today.AddDate(0, 0, thresholdDays)
}

// InExpiryWindow reports whether date falls inside the inclusive window.
func InExpiryWindow(today, date time.Time, thresholdDays int) bool {
	from, to := ExpiryWindow(today, thresholdDays)
	return !date.Before(from) && !date.After(to)
}

func ValidateThreshold(thresholdDays int) error {
	if thresholdDays < 0 {
		return fmt.Errorf("%w: threshold days must be >= 0 (got %d)", ErrValidation, thresholdDays)
	}
	return nil
}
