package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/events"
	"stockledger/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage is a row of sys_outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher writes domain events to the outbox inside the caller's transaction.
type OutboxPublisher struct {
	txManager *TxManager
}

var _ events.Publisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// Publish implements events.Publisher. It must run inside a transaction so the
// event commits or rolls back with the state change it describes.
func (p *OutboxPublisher) Publish(ctx context.Context, event events.Event) error {
	t := p.txManager.GetTx(ctx)
	if t == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = t.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.New(), event.AggregateType, event.AggregateID, event.Type, payload, OutboxStatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler delivers one message. An error schedules a retry.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// RelayConfig tunes the outbox relay.
type RelayConfig struct {
	BatchSize  int
	MaxRetries int
	// Backoff is multiplied by the attempt number.
	Backoff time.Duration
}

// OutboxRelay drains pending messages. Several relays may run concurrently;
// FOR UPDATE SKIP LOCKED hands each message to one of them.
type OutboxRelay struct {
	txManager *TxManager
	handler   OutboxHandler
	cfg       RelayConfig
	now       func() time.Time
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, handler OutboxHandler, cfg RelayConfig) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Minute
	}
	return &OutboxRelay{txManager: txManager, handler: handler, cfg: cfg, now: time.Now}
}

// ProcessBatch delivers up to BatchSize due messages and returns how many succeeded.
// The batch is claimed and settled in one transaction; a handler failure only
// reschedules its own message.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.txManager.GetQuerier(ctx)

		var messages []*OutboxMessage
		err := pgxscan.Select(ctx, q, &messages, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, status,
			       retry_count, last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= $2)
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		`, OutboxStatusPending, r.now().UTC(), r.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.settle(ctx, q, msg, r.handler.Handle(ctx, msg)); err != nil {
				return err
			}
			if msg.Status == OutboxStatusPublished {
				processed++
			}
		}
		return nil
	})
	return processed, err
}

func (r *OutboxRelay) settle(ctx context.Context, q Querier, msg *OutboxMessage, handleErr error) error {
	now := r.now().UTC()
	if handleErr == nil {
		msg.Status = OutboxStatusPublished
		_, err := q.Exec(ctx, `UPDATE sys_outbox SET status = $1, published_at = $2 WHERE id = $3`,
			OutboxStatusPublished, now, msg.ID)
		return err
	}

	attempt := msg.RetryCount + 1
	status := OutboxStatusPending
	if attempt >= r.cfg.MaxRetries {
		status = OutboxStatusFailed
	}
	logger.Warn(ctx, "outbox delivery failed",
		"message_id", msg.ID,
		"event_type", msg.EventType,
		"attempt", attempt,
		"error", handleErr)

	next := now.Add(time.Duration(attempt) * r.cfg.Backoff)
	_, err := q.Exec(ctx, `
		UPDATE sys_outbox
		SET retry_count = $1, last_error = $2, next_retry_at = $3, status = $4
		WHERE id = $5
	`, attempt, handleErr.Error(), next, status, msg.ID)
	if err != nil {
		return fmt.Errorf("reschedule outbox message: %w", err)
	}
	msg.Status = status
	return nil
}

// MoveToDLQ moves permanently failed messages to sys_outbox_dlq.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox
			WHERE status = $1
			RETURNING id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at
		)
		INSERT INTO sys_outbox_dlq (id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at, failed_at)
		SELECT id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at, NOW()
		FROM moved
	`, OutboxStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}
	return result.RowsAffected(), nil
}

// PurgePublished deletes published messages older than the cutoff.
func (r *OutboxRelay) PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_outbox WHERE status = $1 AND published_at < $2`,
		OutboxStatusPublished, r.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return result.RowsAffected(), nil
}
