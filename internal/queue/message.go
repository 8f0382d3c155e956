package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

// OutcomeMessage is the broker payload describing one candidate's dispatch outcome.
type OutcomeMessage struct {
	BatchID      string    `json:"batchId"`
	MembershipID string    `json:"membershipId"`
	MemberID     string    `json:"memberId"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	DaysLeft     int       `json:"daysLeft"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func NewOutcomeMessage(batchID string, outcome domain.DispatchOutcome, occurredAt time.Time) OutcomeMessage {
	return OutcomeMessage{
		BatchID:      batchID,
		MembershipID: outcome.MembershipID,
		MemberID:     outcome.MemberID,
		Status:       outcome.Status.Label(),
		Error:        outcome.ErrorDetail,
		DaysLeft:     outcome.DaysRemaining,
		OccurredAt:   occurredAt.UTC(),
	}
}

// MessageID is stable for a given run and membership so consumers can dedupe redeliveries.
func (m OutcomeMessage) MessageID() string {
	return m.BatchID + ":" + m.MembershipID
}

func (m OutcomeMessage) Validate() error {
	if strings.TrimSpace(m.BatchID) == "" {
		return fmt.Errorf("batchId is required")
	}
	if strings.TrimSpace(m.MembershipID) == "" {
		return fmt.Errorf("membershipId is required")
	}
	switch m.Status {
	case domain.OutcomeSent.Label(), domain.OutcomeFailed.Label(), domain.OutcomeUnreachable.Label():
	default:
		return fmt.Errorf("invalid status %q", m.Status)
	}
	return nil
}
