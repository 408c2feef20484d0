package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

func newTestPeriod(status Status) *Period {
	return &Period{
		BaseEntity: entity.NewBaseEntity(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Name:       "January 2025",
		StartDate:  date(2025, 1, 1),
		EndDate:    date(2025, 1, 31),
		Status:     status,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusOpen, true},
		{StatusOpen, StatusPendingClose, true},
		{StatusPendingClose, StatusClosed, true},
		{StatusPendingClose, StatusOpen, true},
		{StatusDraft, StatusClosed, false},
		{StatusOpen, StatusClosed, false},
		{StatusOpen, StatusDraft, false},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheckOpen(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, CheckOpen(newTestPeriod(StatusDraft), nil, 2))
	})

	t.Run("another period open", func(t *testing.T) {
		other := newTestPeriod(StatusOpen)
		err := CheckOpen(newTestPeriod(StatusDraft), other, 2)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeConflict, appErr.Code)
		assert.Equal(t, other.ID.String(), appErr.Details["conflicting_id"])
	})

	t.Run("no locations", func(t *testing.T) {
		err := CheckOpen(newTestPeriod(StatusDraft), nil, 0)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
	})

	t.Run("not draft", func(t *testing.T) {
		err := CheckOpen(newTestPeriod(StatusClosed), nil, 1)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
	})
}

func TestCheckReject(t *testing.T) {
	p := newTestPeriod(StatusPendingClose)
	assert.NoError(t, CheckReject(p, nil))

	other := newTestPeriod(StatusOpen)
	appErr, ok := apperror.AsAppError(CheckReject(p, other))
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
	assert.Equal(t, other.ID.String(), appErr.Details["conflicting_id"])

	err := CheckReject(newTestPeriod(StatusOpen), nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestCheckRequestClose(t *testing.T) {
	p := newTestPeriod(StatusOpen)
	ready := Location{LocationID: id.New(), Status: LocationReady}
	open := Location{LocationID: id.New(), Status: LocationOpen}

	assert.NoError(t, CheckRequestClose(p, []Location{ready}))

	err := CheckRequestClose(p, []Location{ready, open})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, []string{open.LocationID.String()}, appErr.Details["not_ready"])

	assert.Error(t, CheckRequestClose(p, nil))
	assert.Error(t, CheckRequestClose(newTestPeriod(StatusDraft), []Location{ready}))
}

func TestPeriod_ContainsAndOverlaps(t *testing.T) {
	p := newTestPeriod(StatusOpen)

	assert.True(t, p.Contains(time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(date(2025, 2, 1)))

	assert.True(t, p.Overlaps(date(2025, 1, 31), date(2025, 2, 28)))
	assert.True(t, p.Overlaps(date(2024, 12, 1), date(2025, 1, 1)))
	assert.False(t, p.Overlaps(date(2025, 2, 1), date(2025, 2, 28)))
}

func TestPeriod_RequireOpenOn(t *testing.T) {
	p := newTestPeriod(StatusOpen)
	assert.NoError(t, p.RequireOpenOn(date(2025, 1, 15)))

	err := p.RequireOpenOn(date(2025, 2, 15))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "date", appErr.Field())

	p.Status = StatusPendingClose
	assert.True(t, apperror.IsCode(p.RequireOpenOn(date(2025, 1, 15)), apperror.CodeInvalidTransition))
}

func TestPeriod_Validate(t *testing.T) {
	p := newTestPeriod(StatusDraft)
	assert.NoError(t, p.Validate(t.Context()))

	p.EndDate = date(2024, 12, 31)
	appErr, ok := apperror.AsAppError(p.Validate(t.Context()))
	require.True(t, ok)
	assert.Equal(t, "endDate", appErr.Field())

	p = newTestPeriod(StatusDraft)
	p.Name = " "
	appErr, ok = apperror.AsAppError(p.Validate(t.Context()))
	require.True(t, ok)
	assert.Equal(t, "name", appErr.Field())
}
