package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ncr"
	"stockledger/internal/domain/period"
)

type key struct{ period, location id.ID }

type fakeRepo struct {
	rows map[key]*Reconciliation
}

func (f *fakeRepo) Upsert(_ context.Context, r *Reconciliation) error {
	c := *r
	f.rows[key{r.PeriodID, r.LocationID}] = &c
	return nil
}

func (f *fakeRepo) Get(_ context.Context, periodID, locationID id.ID) (*Reconciliation, error) {
	r, ok := f.rows[key{periodID, locationID}]
	if !ok {
		return nil, apperror.NewNotFound("Reconciliation", locationID)
	}
	c := *r
	return &c, nil
}

func (f *fakeRepo) ListByPeriod(_ context.Context, periodID id.ID) ([]Reconciliation, error) {
	var out []Reconciliation
	for k, r := range f.rows {
		if k.period == periodID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeMovements Totals

func (f fakeMovements) PeriodTotals(context.Context, id.ID, id.ID) (Totals, error) {
	return Totals(f), nil
}

type fakePeriods struct {
	p *period.Period
	l *period.Location
}

func (f fakePeriods) Get(context.Context, id.ID) (*period.Period, error) { return f.p, nil }

func (f fakePeriods) GetLocation(context.Context, id.ID, id.ID) (*period.Location, error) {
	return f.l, nil
}

type fakeStock types.Money

func (f fakeStock) LocationValue(context.Context, id.ID) (types.Money, error) {
	return types.Money(f), nil
}

type fakeNCRs ncr.Summary

func (f fakeNCRs) Summary(context.Context, id.ID, id.ID) (ncr.Summary, error) {
	return ncr.Summary(f), nil
}

func newService(status period.Status, closing decimal.NullDecimal, ncrs ncr.Summary) (*Service, *fakeRepo, *period.Period, *period.Location) {
	p := &period.Period{
		BaseEntity: entity.NewBaseEntity(time.Now()),
		Name:       "January 2025",
		Status:     status,
	}
	l := &period.Location{
		PeriodID:     p.ID,
		LocationID:   id.New(),
		OpeningValue: money("125000"),
		ClosingValue: closing,
	}
	repo := &fakeRepo{rows: map[key]*Reconciliation{}}
	svc := NewService(
		repo,
		fakeMovements{Receipts: money("45000"), TransfersIn: money("5000"), TransfersOut: money("3000"), Issues: money("33000")},
		fakePeriods{p: p, l: l},
		fakeStock(money("999999")),
		fakeNCRs(ncrs),
		&tx.MockManager{},
	)
	return svc, repo, p, l
}

func TestService_Calculate(t *testing.T) {
	summary := ncr.Summary{
		Credited: ncr.Bucket{Count: 1, Total: money("500")},
		Losses:   ncr.Bucket{Count: 1, Total: money("150")},
	}
	svc, repo, p, l := newService(period.StatusOpen, decimal.NewNullDecimal(money("137000")), summary)
	mandays := money("2100")

	out, err := svc.Calculate(t.Context(), CalculateInput{
		PeriodID:   p.ID,
		LocationID: l.LocationID,
		Manual: ManualAdjustments{
			BackCharges:   money("1000"),
			Credits:       money("500"),
			Condemnations: money("1000"),
			// user-supplied NCR figures do not exist; these come from the summary
			TotalMandays: &mandays,
		},
	})
	require.NoError(t, err)

	rec := out.Reconciliation
	assert.Equal(t, "137000", rec.ClosingStock.String(), "closing comes from the READY snapshot")
	assert.Equal(t, "500", rec.NCRCredits.String())
	assert.Equal(t, "150", rec.NCRLosses.String())
	// 34500 - 500 + 150
	assert.Equal(t, "34150", rec.Consumption.String())
	require.True(t, rec.MandayCost.Valid)
	assert.Equal(t, "16.26", rec.MandayCost.Decimal.String())
	assert.Equal(t, "1150", rec.IssuesDifference().String())

	stored, err := svc.Get(t.Context(), p.ID, l.LocationID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, stored.ID)
	assert.Len(t, repo.rows, 1)
}

func TestService_Calculate_ResolvedNoneIsInvisible(t *testing.T) {
	svc, _, p, l := newService(period.StatusOpen, decimal.NewNullDecimal(money("137000")), ncr.Aggregate([]ncr.NCR{
		resolvedNone(money("800")),
	}))

	out, err := svc.Calculate(t.Context(), CalculateInput{PeriodID: p.ID, LocationID: l.LocationID})
	require.NoError(t, err)
	assert.True(t, out.Reconciliation.NCRCredits.IsZero())
	assert.True(t, out.Reconciliation.NCRLosses.IsZero())
}

func resolvedNone(value types.Money) ncr.NCR {
	impact := ncr.ImpactNone
	resolution := "accepted"
	return ncr.NCR{Status: ncr.StatusResolved, FinancialImpact: &impact, ResolutionType: &resolution, Value: value}
}

func TestService_Calculate_FallsBackToLedgerValue(t *testing.T) {
	svc, _, p, l := newService(period.StatusOpen, decimal.NullDecimal{}, ncr.Aggregate(nil))

	out, err := svc.Calculate(t.Context(), CalculateInput{PeriodID: p.ID, LocationID: l.LocationID})
	require.NoError(t, err)
	assert.Equal(t, "999999", out.Reconciliation.ClosingStock.String())
	assert.False(t, out.Reconciliation.MandayCost.Valid)
}

func TestService_Calculate_Recalculates(t *testing.T) {
	svc, repo, p, l := newService(period.StatusPendingClose, decimal.NewNullDecimal(money("137000")), ncr.Aggregate(nil))

	first, err := svc.Calculate(t.Context(), CalculateInput{PeriodID: p.ID, LocationID: l.LocationID})
	require.NoError(t, err)
	second, err := svc.Calculate(t.Context(), CalculateInput{
		PeriodID: p.ID, LocationID: l.LocationID,
		Manual: ManualAdjustments{OtherAdjustments: money("-100")},
	})
	require.NoError(t, err)

	assert.Equal(t, first.Reconciliation.ID, second.Reconciliation.ID)
	assert.Equal(t, first.Reconciliation.Version+1, second.Reconciliation.Version)
	assert.Equal(t, "34900", second.Reconciliation.Consumption.String())
	assert.Len(t, repo.rows, 1)
}

func TestService_Calculate_Rejections(t *testing.T) {
	t.Run("closed period", func(t *testing.T) {
		svc, repo, p, l := newService(period.StatusClosed, decimal.NullDecimal{}, ncr.Aggregate(nil))
		_, err := svc.Calculate(t.Context(), CalculateInput{PeriodID: p.ID, LocationID: l.LocationID})
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
		assert.Empty(t, repo.rows)
	})

	t.Run("negative manual field", func(t *testing.T) {
		svc, _, p, l := newService(period.StatusOpen, decimal.NullDecimal{}, ncr.Aggregate(nil))
		_, err := svc.Calculate(t.Context(), CalculateInput{
			PeriodID: p.ID, LocationID: l.LocationID,
			Manual: ManualAdjustments{Condemnations: money("-1")},
		})
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "condemnations", appErr.Field())
	})

	t.Run("zero mandays", func(t *testing.T) {
		svc, _, p, l := newService(period.StatusOpen, decimal.NullDecimal{}, ncr.Aggregate(nil))
		zero := types.Zero()
		_, err := svc.Calculate(t.Context(), CalculateInput{
			PeriodID: p.ID, LocationID: l.LocationID,
			Manual: ManualAdjustments{TotalMandays: &zero},
		})
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "totalMandays", appErr.Field())
	})
}
