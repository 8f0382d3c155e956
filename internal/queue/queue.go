package queue

import "context"

// Publisher publishes dispatch outcome events.
type Publisher interface {
	PublishOutcome(ctx context.Context, msg OutcomeMessage) error
	Close() error
}

const (
	// OutcomesQueue receives one event per dispatched candidate.
	OutcomesQueue = "reminders.outcomes"
	// OutcomesDLQ collects outcome events rejected by downstream consumers.
	OutcomesDLQ = "dlq.reminders.outcomes"

	dlxExchangeName   = "reminders.dlx"
	dlxRoutingKey     = "reminders.outcomes"
	outcomeMessageTTL = int32(7 * 24 * 60 * 60 * 1000)
)
