package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/events"
	"stockledger/internal/infrastructure/storage/postgres"
)

type captureNotifier struct {
	name string
	got  []Notification
	err  error
}

func (c *captureNotifier) Name() string { return c.name }

func (c *captureNotifier) Notify(_ context.Context, n Notification) error {
	c.got = append(c.got, n)
	return c.err
}

func outboxMessage(t *testing.T, eventType string, payload any) *postgres.OutboxMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: events.AggregateNCR,
		AggregateID:   id.New(),
		EventType:     eventType,
		Payload:       raw,
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		eventType   string
		payload     any
		wantSubject string
		wantBody    string
	}{
		{
			name:      "ncr created",
			eventType: events.TypeNCRCreated,
			payload: events.NCRNotification{
				NCRNumber:    "NCR-2025-001",
				Type:         "PRICE_VARIANCE",
				Value:        types.MustParse("50"),
				LocationName: "Main Kitchen",
				Reason:       "Price variance on Rice (RICE)",
			},
			wantSubject: "NCR NCR-2025-001 raised (PRICE_VARIANCE, 50.00) at Main Kitchen",
			wantBody:    "Price variance on Rice (RICE)",
		},
		{
			name:      "ncr resolved",
			eventType: events.TypeNCRStatusChanged,
			payload: events.NCRNotification{
				NCRNumber:       "NCR-2025-001",
				PreviousStatus:  "SENT",
				Status:          "RESOLVED",
				FinancialImpact: "CREDIT",
			},
			wantSubject: "NCR NCR-2025-001 moved from SENT to RESOLVED with impact CREDIT",
		},
		{
			name:      "delivery posted",
			eventType: events.TypeDeliveryPosted,
			payload: events.DeliveryPosted{
				DeliveryNumber: "DLV-2025-00001",
				LineCount:      2,
				TotalValue:     types.MustParse("2600"),
				NCRNumbers:     []string{"NCR-2025-001"},
			},
			wantSubject: "Delivery DLV-2025-00001 posted: 2 lines, total 2600.00",
			wantBody:    "Raised NCRs: [NCR-2025-001]",
		},
		{
			name:      "period transition",
			eventType: events.TypePeriodTransition,
			payload: events.PeriodTransition{
				Name: "January 2025", From: "OPEN", To: "PENDING_CLOSE", At: time.Now(),
			},
			wantSubject: "Period January 2025 moved from OPEN to PENDING_CLOSE",
		},
		{
			name:        "unknown event",
			eventType:   "stock.recounted",
			payload:     map[string]string{"x": "y"},
			wantSubject: "stock.recounted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.payload)
			require.NoError(t, err)

			n, err := Render(tt.eventType, raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, n.Subject)
			assert.Equal(t, tt.wantBody, n.Body)
			assert.JSONEq(t, string(raw), string(n.Payload))
		})
	}
}

func TestRender_MalformedPayload(t *testing.T) {
	_, err := Render(events.TypeNCRCreated, []byte("{"))
	assert.Error(t, err)
}

func TestDispatcher_Handle(t *testing.T) {
	msg := outboxMessage(t, events.TypeNCRCreated, events.NCRNotification{NCRNumber: "NCR-2025-007", Type: "MANUAL"})

	t.Run("fans out to every notifier", func(t *testing.T) {
		a, b := &captureNotifier{name: "a"}, &captureNotifier{name: "b"}
		require.NoError(t, NewDispatcher(a, b).Handle(t.Context(), msg))

		require.Len(t, a.got, 1)
		require.Len(t, b.got, 1)
		assert.Equal(t, "NCR:"+msg.AggregateID.String(), a.got[0].Aggregate)
	})

	t.Run("one failure fails the message but still reaches the others", func(t *testing.T) {
		failing := &captureNotifier{name: "broken", err: errors.New("smtp down")}
		ok := &captureNotifier{name: "ok"}

		err := NewDispatcher(failing, ok).Handle(t.Context(), msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken: smtp down")
		assert.Len(t, ok.got, 1)
	})
}

type fakeRedis struct {
	channel string
	message any
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel, f.message = channel, message
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisNotifier(t *testing.T) {
	t.Run("publishes json", func(t *testing.T) {
		rdb := &fakeRedis{}
		n := NewRedisNotifier(rdb, "stockledger.notifications")

		require.NoError(t, n.Notify(t.Context(), Notification{EventType: "ncr.created", Subject: "hello"}))
		assert.Equal(t, "stockledger.notifications", rdb.channel)

		var got Notification
		require.NoError(t, json.Unmarshal(rdb.message.([]byte), &got))
		assert.Equal(t, "hello", got.Subject)
	})

	t.Run("wraps publish errors", func(t *testing.T) {
		n := NewRedisNotifier(&fakeRedis{err: errors.New("connection reset")}, "c")
		err := n.Notify(t.Context(), Notification{Subject: "x", Payload: json.RawMessage(`{}`)})
		assert.ErrorContains(t, err, "publish to c: connection reset")
	})
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(t.Context(), Notification{Subject: "s"}))
}
