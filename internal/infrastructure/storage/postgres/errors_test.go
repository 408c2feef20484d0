package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "second open period",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: ConstraintSingleOpenPeriod},
			wantCode: apperror.CodeConflict,
			wantMsg:  "another period is already OPEN",
		},
		{
			name:     "overlapping dates",
			err:      fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01", ConstraintName: ConstraintPeriodNoOverlap}),
			wantCode: apperror.CodeConflict,
			wantMsg:  "period dates overlap an existing period",
		},
		{
			name:     "generic unique",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: "uq_deliveries_number"},
			wantCode: apperror.CodeConflict,
			wantMsg:  "record already exists",
		},
		{
			name:     "foreign key",
			err:      &pgconn.PgError{Code: "23503", ConstraintName: "fk_ncrs_delivery"},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "serialization failure",
			err:      &pgconn.PgError{Code: "40001"},
			wantCode: apperror.CodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr, ok := apperror.AsAppError(MapError(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, MapError(nil))

	plain := errors.New("boom")
	assert.Same(t, plain, MapError(plain))

	notFound := apperror.NewNotFound("Period", "x")
	assert.Same(t, notFound, MapError(notFound))

	assert.True(t, IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
}
