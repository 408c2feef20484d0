package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
)

// PostgreSQL error codes the ledger relies on.
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
	pgForeignKey         = "23503"
	pgCheckViolation     = "23514"
	pgSerialization      = "40001"
	pgDeadlock           = "40P01"
)

// Constraint names with a dedicated business meaning.
const (
	ConstraintSingleOpenPeriod   = "uq_periods_single_open"
	ConstraintPeriodNoOverlap    = "ex_periods_no_overlap"
	ConstraintPendingApproval    = "uq_approvals_pending"
	ConstraintReconciliationSlot = "uq_reconciliations_period_location"
)

// MapError turns constraint violations into AppErrors. Other errors pass through.
// The database constraints are the last line of defence behind the service checks,
// so a violation here means a concurrent writer won the race.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation, pgExclusionViolation:
		return conflictFor(pgErr).WithCause(err)
	case pgForeignKey:
		return apperror.NewValidation("referenced record does not exist").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgCheckViolation:
		return apperror.NewValidation("value violates a database check").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgSerialization, pgDeadlock:
		return apperror.NewConflict("concurrent update, retry the request").WithCause(err)
	}
	return err
}

func conflictFor(pgErr *pgconn.PgError) *apperror.AppError {
	switch pgErr.ConstraintName {
	case ConstraintSingleOpenPeriod:
		return apperror.NewConflict("another period is already OPEN").
			WithDetail("constraint", pgErr.ConstraintName)
	case ConstraintPeriodNoOverlap:
		return apperror.NewConflict("period dates overlap an existing period").
			WithDetail("constraint", pgErr.ConstraintName)
	case ConstraintPendingApproval:
		return apperror.NewConflict("a close request is already pending").
			WithDetail("constraint", pgErr.ConstraintName)
	}
	return apperror.NewConflict("record already exists").
		WithDetail("constraint", pgErr.ConstraintName)
}

// IsNoRows reports whether err is pgx.ErrNoRows, directly or as returned by scany.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
