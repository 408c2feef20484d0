package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
)

const idempotencyTable = "sys_idempotency"

// staleAfter is how long a pending key may go untouched before another request takes it over.
const staleAfter = time.Minute

// IdempotencyStatus is the state of a key.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// idempotencyRow is one sys_idempotency row.
type idempotencyRow struct {
	Key         string            `db:"idempotency_key"`
	UserID      string            `db:"user_id"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// IdempotencyReplay is a stored response served again for a repeated request.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore remembers X-Idempotency-Key values so a retried posting
// replays the first response instead of receiving the same stock twice.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	builder   squirrel.StatementBuilderType
	now       func() time.Time
}

// NewIdempotencyStore creates a store keeping keys for ttl.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:       time.Now,
	}
}

// keyRequest identifies the request presenting a key.
type keyRequest struct {
	key, userID, operation, hash string
}

// keyDecision is what AcquireKey does with an existing row.
type keyDecision int

const (
	decisionProceed keyDecision = iota
	decisionReplay
	decisionReclaim
	decisionBusy
	decisionMismatch
)

// decide classifies the row returned by the acquiring upsert.
// A row created by this very call carries createdAt == now.
func decide(row idempotencyRow, req keyRequest, now time.Time) keyDecision {
	if row.CreatedAt.Equal(now) {
		return decisionProceed
	}
	if row.UserID != req.userID || row.Operation != req.operation || row.RequestHash != req.hash {
		return decisionMismatch
	}
	switch row.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return decisionReplay
	case IdempotencyStatusPending:
		if now.Sub(row.UpdatedAt) > staleAfter {
			return decisionReclaim
		}
		return decisionBusy
	}
	return decisionProceed
}

// AcquireKey claims key for this request.
//
// It returns (nil, nil) when the caller should run the operation, a replay
// when the key already holds a finished response, and an Idempotency error
// when the key is in flight or was used for a different request.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	req := keyRequest{key: key, userID: userID, operation: operation, hash: requestHash}

	sql, args, err := s.builder.Insert(idempotencyTable).
		Columns("idempotency_key", "user_id", "operation", "status", "request_hash",
			"created_at", "updated_at", "expires_at").
		Values(key, userID, operation, IdempotencyStatusPending, requestHash, now, now, now.Add(s.ttl)).
		Suffix("ON CONFLICT (idempotency_key) DO UPDATE SET expires_at = GREATEST(" +
			idempotencyTable + ".expires_at, EXCLUDED.expires_at) " +
			"RETURNING idempotency_key, user_id, operation, status, request_hash, response, " +
			"COALESCE(response_status, 0) AS response_status, " +
			"COALESCE(response_content_type, '') AS response_content_type, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build acquire: %w", err)
	}

	var row idempotencyRow
	if err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	switch decide(row, req, now) {
	case decisionReplay:
		return replayOf(row), nil
	case decisionReclaim:
		if err := s.touch(ctx, key, now); err != nil {
			return nil, err
		}
		return nil, nil
	case decisionBusy:
		return nil, apperror.NewIdempotencyConflict(key)
	case decisionMismatch:
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", row.Operation).
			WithDetail("request_operation", operation)
	}
	return nil, nil
}

func (s *IdempotencyStore) touch(ctx context.Context, key string, now time.Time) error {
	sql, args, err := s.builder.Update(idempotencyTable).
		Set("updated_at", now).
		Where(squirrel.Eq{"idempotency_key": key, "status": IdempotencyStatusPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reclaim: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("reclaim stale key %s: %w", key, err)
	}
	return nil
}

func replayOf(row idempotencyRow) *IdempotencyReplay {
	r := &IdempotencyReplay{StatusCode: row.StatusCode, ContentType: row.ContentType, Body: row.Response}
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	if r.ContentType == "" {
		r.ContentType = "application/json"
	}
	return r
}

// CompleteKey stores a successful response.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return s.finish(ctx, key, IdempotencyStatusSuccess, statusCode, contentType, body)
}

// FailKey stores an error response. An unencodable response is replaced by its
// encoding error so the key still settles.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		body, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return s.finish(ctx, key, IdempotencyStatusFailed, statusCode, contentType, body)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status IdempotencyStatus, statusCode int, contentType string, body []byte) error {
	sql, args, err := s.builder.Update(idempotencyTable).
		SetMap(map[string]any{
			"status":                status,
			"response":              body,
			"response_status":       statusCode,
			"response_content_type": contentType,
			"updated_at":            s.now().UTC(),
		}).
		Where(squirrel.Eq{"idempotency_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build finish: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("store %s response for key %s: %w", status, key, err)
	}
	return nil
}

// CleanupExpired deletes keys past their expiry and returns how many went.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	sql, args, err := s.builder.Delete(idempotencyTable).
		Where(squirrel.Lt{"expires_at": s.now().UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
