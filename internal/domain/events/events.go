// Package events defines the domain events the ledger emits for collaborators.
//
// Events are written to the transactional outbox inside the posting transaction
// and delivered by the worker; a failing notifier never rolls back the ledger.
package events

import (
	"context"

	"stockledger/internal/core/id"
)

// Event types.
const (
	TypeDeliveryPosted   = "delivery.posted"
	TypeNCRCreated       = "ncr.created"
	TypeNCRStatusChanged = "ncr.status_changed"
	TypePeriodTransition = "period.transition"
)

// Aggregate types.
const (
	AggregateNCR      = "NCR"
	AggregateDelivery = "Delivery"
	AggregatePeriod   = "Period"
)

// Event is a fact to be published after commit.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher records events. Implementations must join the caller's transaction.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder is an in-memory Publisher for tests.
type Recorder struct {
	Events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.Events = append(r.Events, event)
	return nil
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
