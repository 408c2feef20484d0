// Package notify turns outbox messages into notifications for people and systems
// outside the ledger.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stockledger/internal/domain/events"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

// Notification is a rendered event.
type Notification struct {
	EventType string          `json:"eventType"`
	Aggregate string          `json:"aggregate"`
	Subject   string          `json:"subject"`
	Body      string          `json:"body,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Notifier delivers notifications to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher renders outbox messages and fans them out to notifiers.
// It implements postgres.OutboxHandler; a returned error makes the relay retry.
type Dispatcher struct {
	notifiers []Notifier
}

var _ postgres.OutboxHandler = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher over notifiers.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Handle implements postgres.OutboxHandler.
func (d *Dispatcher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	n, err := Render(msg.EventType, msg.Payload)
	if err != nil {
		return fmt.Errorf("render %s %s: %w", msg.EventType, msg.ID, err)
	}
	n.Aggregate = msg.AggregateType + ":" + msg.AggregateID.String()

	var errs []error
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			logger.Warn(ctx, "notification delivery failed",
				"notifier", notifier.Name(),
				"event_type", msg.EventType,
				"message_id", msg.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Render builds the subject and body of an event payload.
func Render(eventType string, payload []byte) (Notification, error) {
	n := Notification{EventType: eventType, Payload: json.RawMessage(payload)}

	switch eventType {
	case events.TypeNCRCreated, events.TypeNCRStatusChanged:
		var p events.NCRNotification
		if err := json.Unmarshal(payload, &p); err != nil {
			return Notification{}, err
		}
		n.Subject = ncrSubject(eventType, p)
		n.Body = p.Reason
	case events.TypeDeliveryPosted:
		var p events.DeliveryPosted
		if err := json.Unmarshal(payload, &p); err != nil {
			return Notification{}, err
		}
		n.Subject = fmt.Sprintf("Delivery %s posted: %d lines, total %s",
			p.DeliveryNumber, p.LineCount, p.TotalValue.StringFixed(2))
		if len(p.NCRNumbers) > 0 {
			n.Body = fmt.Sprintf("Raised NCRs: %v", p.NCRNumbers)
		}
	case events.TypePeriodTransition:
		var p events.PeriodTransition
		if err := json.Unmarshal(payload, &p); err != nil {
			return Notification{}, err
		}
		n.Subject = fmt.Sprintf("Period %s moved from %s to %s", p.Name, p.From, p.To)
	default:
		n.Subject = eventType
	}
	return n, nil
}

func ncrSubject(eventType string, p events.NCRNotification) string {
	where := p.LocationName
	if where == "" {
		where = p.LocationID.String()
	}
	if eventType == events.TypeNCRCreated {
		return fmt.Sprintf("NCR %s raised (%s, %s) at %s", p.NCRNumber, p.Type, p.Value.StringFixed(2), where)
	}
	s := fmt.Sprintf("NCR %s moved from %s to %s", p.NCRNumber, p.PreviousStatus, p.Status)
	if p.FinancialImpact != "" {
		s += " with impact " + p.FinancialImpact
	}
	return s
}
