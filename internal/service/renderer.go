package service

import (
	"fmt"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

var categoryLabels = map[domain.MembershipCategory]string{
	domain.CategoryMonthly:   "Monthly Membership",
	domain.CategoryQuarterly: "Quarterly Membership",
	domain.CategoryYearly:    "Yearly Membership",
}

const genericCategoryLabel = "Gym Membership"

func CategoryLabel(category domain.MembershipCategory) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return genericCategoryLabel
}

// RenderReminder builds the reminder text. It is pure: equal inputs give equal output.
func RenderReminder(name string, category domain.MembershipCategory, daysRemaining int) string {
	unit := "days"
	if daysRemaining == 1 {
		unit = "day"
	}

	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}

	return fmt.Sprintf(
		"%s, your %s expires in %d %s. Please renew at the front desk or reply to this message to keep your access uninterrupted.",
		greeting, CategoryLabel(category), daysRemaining, unit,
	)
}
