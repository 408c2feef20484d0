package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
)

func TestNextWindow(t *testing.T) {
	tests := []struct {
		name      string
		closedEnd time.Time
		start     time.Time
		end       time.Time
	}{
		{"month end", date(2025, 1, 31), date(2025, 2, 1), date(2025, 2, 28)},
		{"leap february", date(2024, 1, 31), date(2024, 2, 1), date(2024, 2, 29)},
		{"mid month", date(2025, 3, 15), date(2025, 3, 16), date(2025, 3, 31)},
		{"year end", date(2025, 12, 31), date(2026, 1, 1), date(2026, 1, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := NextWindow(tt.closedEnd, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestNextWindow_Override(t *testing.T) {
	override := date(2025, 3, 15)
	start, end, err := NextWindow(date(2025, 1, 31), &override)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 2, 1), start)
	assert.Equal(t, override, end)

	early := date(2025, 1, 15)
	_, _, err = NextWindow(date(2025, 1, 31), &early)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "endDate", appErr.Field())
}

func TestDefaultName(t *testing.T) {
	assert.Equal(t, "February 2025", DefaultName(date(2025, 2, 1)))
}
