package domain

import "time"

// OutcomeStatus is the per-candidate result of a dispatch attempt.
type OutcomeStatus string

const (
	OutcomeSent        OutcomeStatus = "sent"
	OutcomeFailed      OutcomeStatus = "failed"
	OutcomeUnreachable OutcomeStatus = "unreachable"
)

func (s OutcomeStatus) String() string { return string(s) }

// Label is the caller-visible rendering of the status.
func (s OutcomeStatus) Label() string {
	if s == OutcomeUnreachable {
		return "no_whatsapp"
	}
	return string(s)
}

// AuditStatus folds the outcome into the two-valued audit log status.
func (s OutcomeStatus) AuditStatus() AuditStatus {
	if s == OutcomeSent {
		return AuditStatusSent
	}
	return AuditStatusFailed
}

const UnreachableDetail = "no usable contact address"

type DispatchOutcome struct {
	MembershipID      string
	MemberID          string
	MemberDisplayName string
	Status            OutcomeStatus
	ErrorDetail       string
	DaysRemaining     int
}

// BatchResult aggregates one dispatcher run.
type BatchResult struct {
	BatchID         string
	TotalCandidates int
	SentCount       int
	FailedCount     int
	Outcomes        []DispatchOutcome
	OverallSuccess  bool
}

// NewBatchResult derives the counters from outcomes so that
// SentCount+FailedCount always equals TotalCandidates.
func NewBatchResult(batchID string, outcomes []DispatchOutcome) *BatchResult {
	if outcomes == nil {
		outcomes = []DispatchOutcome{}
	}

	result := &BatchResult{
		BatchID:         batchID,
		TotalCandidates: len(outcomes),
		Outcomes:        outcomes,
	}
	for _, o := range outcomes {
		if o.Status == OutcomeSent {
			result.SentCount++
			continue
		}
		result.FailedCount++
	}
	result.OverallSuccess = result.FailedCount == 0

	return result
}

// SendResult is the normalized gateway response for one message.
type SendResult struct {
	Success bool
	Error   string
}

// PreviewEntry is a candidate annotated with its reachability.
type PreviewEntry struct {
	Candidate  ExpiryCandidate
	HasChannel bool
}

type Preview struct {
	ThresholdDays int
	GeneratedAt   time.Time
	Entries       []PreviewEntry
}
