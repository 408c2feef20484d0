package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ncr"
	"stockledger/internal/domain/period"
	"stockledger/pkg/logger"
)

// Periods resolves the period and its location snapshot.
type Periods interface {
	Get(ctx context.Context, periodID id.ID) (*period.Period, error)
	GetLocation(ctx context.Context, periodID, locationID id.ID) (*period.Location, error)
}

// StockValuer values the stock currently held at a location.
type StockValuer interface {
	LocationValue(ctx context.Context, locationID id.ID) (types.Money, error)
}

// NCRSummarizer aggregates NCRs of a (period, location).
type NCRSummarizer interface {
	Summary(ctx context.Context, periodID, locationID id.ID) (ncr.Summary, error)
}

// Service calculates and stores reconciliations.
type Service struct {
	repo      Repository
	movements MovementSource
	periods   Periods
	stock     StockValuer
	ncrs      NCRSummarizer
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a reconciliation service.
func NewService(
	repo Repository,
	movements MovementSource,
	periods Periods,
	stock StockValuer,
	ncrs NCRSummarizer,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		movements: movements,
		periods:   periods,
		stock:     stock,
		ncrs:      ncrs,
		txManager: txManager,
		now:       time.Now,
	}
}

// CalculateInput selects the scope and carries the manual fields.
type CalculateInput struct {
	PeriodID   id.ID
	LocationID id.ID
	Manual     ManualAdjustments
}

// Outcome is a saved reconciliation with its calculation detail.
type Outcome struct {
	Reconciliation *Reconciliation `json:"reconciliation"`
	Result         Result          `json:"result"`
	NCRs           ncr.Summary     `json:"ncrs"`
}

// Calculate recomputes and stores the reconciliation of one (period, location).
func (s *Service) Calculate(ctx context.Context, in CalculateInput) (*Outcome, error) {
	if err := in.Manual.validate(); err != nil {
		return nil, err
	}

	var out *Outcome
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.periods.Get(ctx, in.PeriodID)
		if err != nil {
			return err
		}
		if err := p.RequireStatus("RECONCILE", period.StatusDraft, period.StatusOpen, period.StatusPendingClose); err != nil {
			return err
		}
		pl, err := s.periods.GetLocation(ctx, in.PeriodID, in.LocationID)
		if err != nil {
			return err
		}

		totals, err := s.movements.PeriodTotals(ctx, in.PeriodID, in.LocationID)
		if err != nil {
			return fmt.Errorf("sum period movements: %w", err)
		}
		closing, err := s.closingValue(ctx, pl)
		if err != nil {
			return err
		}
		summary, err := s.ncrs.Summary(ctx, in.PeriodID, in.LocationID)
		if err != nil {
			return fmt.Errorf("summarize ncrs: %w", err)
		}

		result, err := CalculateConsumption(
			Movements{
				OpeningStock: pl.OpeningValue,
				Receipts:     totals.Receipts,
				TransfersIn:  totals.TransfersIn,
				TransfersOut: totals.TransfersOut,
				Issues:       totals.Issues,
				ClosingStock: closing,
			},
			Adjustments{
				BackCharges:      in.Manual.BackCharges,
				Credits:          in.Manual.Credits,
				Condemnations:    in.Manual.Condemnations,
				OtherAdjustments: in.Manual.OtherAdjustments,
				NCRCredits:       summary.Credited.Total,
				NCRLosses:        summary.Losses.Total,
			},
		)
		if err != nil {
			return err
		}

		rec, err := s.existingOrNew(ctx, in.PeriodID, in.LocationID)
		if err != nil {
			return err
		}
		rec.Movements = result.Breakdown.Movements
		rec.Adjustments = result.Breakdown.Adjustments
		rec.TotalAdjustments = result.TotalAdjustments
		rec.Consumption = result.Consumption
		rec.TotalMandays = decimal.NullDecimal{}
		rec.MandayCost = decimal.NullDecimal{}
		if in.Manual.TotalMandays != nil {
			cost, err := CalculateMandayCost(result.Consumption, *in.Manual.TotalMandays)
			if err != nil {
				return err
			}
			rec.TotalMandays = decimal.NewNullDecimal(*in.Manual.TotalMandays)
			rec.MandayCost = decimal.NewNullDecimal(cost)
		}

		if err := s.repo.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("save reconciliation: %w", err)
		}
		out = &Outcome{Reconciliation: rec, Result: result, NCRs: summary}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "reconciliation saved",
		"period_id", in.PeriodID,
		"location_id", in.LocationID,
		"consumption", out.Result.Consumption.String())
	return out, nil
}

func (s *Service) closingValue(ctx context.Context, pl *period.Location) (types.Money, error) {
	if pl.ClosingValue.Valid {
		return pl.ClosingValue.Decimal, nil
	}
	v, err := s.stock.LocationValue(ctx, pl.LocationID)
	if err != nil {
		return types.Zero(), fmt.Errorf("value location stock: %w", err)
	}
	return v, nil
}

func (s *Service) existingOrNew(ctx context.Context, periodID, locationID id.ID) (*Reconciliation, error) {
	rec, err := s.repo.Get(ctx, periodID, locationID)
	if err == nil {
		rec.Touch(s.now())
		return rec, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("get reconciliation: %w", err)
	}
	rec = &Reconciliation{
		BaseEntity: entity.NewBaseEntity(s.now()),
		PeriodID:   periodID,
		LocationID: locationID,
	}
	rec.CreatedBy = appctx.GetUserID(ctx)
	return rec, nil
}

// Get returns the stored reconciliation.
func (s *Service) Get(ctx context.Context, periodID, locationID id.ID) (*Reconciliation, error) {
	return s.repo.Get(ctx, periodID, locationID)
}

// ListByPeriod returns every stored reconciliation of a period.
func (s *Service) ListByPeriod(ctx context.Context, periodID id.ID) ([]Reconciliation, error) {
	return s.repo.ListByPeriod(ctx, periodID)
}
