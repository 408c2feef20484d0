package postgres

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	req := keyRequest{key: "k", userID: "u-1", operation: "POST /api/v1/deliveries", hash: "abc"}
	stored := func(status IdempotencyStatus, updated time.Time) idempotencyRow {
		return idempotencyRow{
			Key: "k", UserID: "u-1", Operation: "POST /api/v1/deliveries", RequestHash: "abc",
			Status: status, CreatedAt: now.Add(-time.Hour), UpdatedAt: updated,
		}
	}

	tests := []struct {
		name string
		row  idempotencyRow
		want keyDecision
	}{
		{"fresh insert", idempotencyRow{Status: IdempotencyStatusPending, CreatedAt: now}, decisionProceed},
		{"completed", stored(IdempotencyStatusSuccess, now), decisionReplay},
		{"failed", stored(IdempotencyStatusFailed, now), decisionReplay},
		{"in flight", stored(IdempotencyStatusPending, now.Add(-10*time.Second)), decisionBusy},
		{"abandoned", stored(IdempotencyStatusPending, now.Add(-2*time.Minute)), decisionReclaim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decide(tt.row, req, now))
		})
	}

	t.Run("different body", func(t *testing.T) {
		row := stored(IdempotencyStatusSuccess, now)
		row.RequestHash = "other"
		assert.Equal(t, decisionMismatch, decide(row, req, now))
	})

	t.Run("different user", func(t *testing.T) {
		row := stored(IdempotencyStatusSuccess, now)
		row.UserID = "u-2"
		assert.Equal(t, decisionMismatch, decide(row, req, now))
	})
}

func TestReplayOf(t *testing.T) {
	r := replayOf(idempotencyRow{Response: []byte(`{}`)})
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, "application/json", r.ContentType)

	r = replayOf(idempotencyRow{StatusCode: http.StatusCreated, ContentType: "text/plain"})
	assert.Equal(t, http.StatusCreated, r.StatusCode)
	assert.Equal(t, "text/plain", r.ContentType)
}
