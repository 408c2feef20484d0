package issue

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/registers/stock"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/issue")

// Periods checks the posting period.
type Periods interface {
	ForPosting(ctx context.Context, periodID id.ID, date time.Time) (*period.Period, error)
}

// Ledger removes stock from the ledger.
type Ledger interface {
	CheckAvailability(ctx context.Context, locationID id.ID, reqs []stock.Requirement) error
	Deduct(ctx context.Context, src stock.Source, locationID, itemID id.ID, qty types.Quantity) (stock.Deduction, error)
}

// Service provides business operations for issues.
type Service struct {
	repo      Repository
	periods   Periods
	ledger    Ledger
	catalog   catalog.Repository
	numerator numerator.Generator
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new issue service.
func NewService(
	repo Repository,
	periods Periods,
	ledger Ledger,
	cat catalog.Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		periods:   periods,
		ledger:    ledger,
		catalog:   cat,
		numerator: numerator,
		txManager: txManager,
		now:       time.Now,
	}
}

// Post deducts every line from the ledger at the current WAC.
// Availability of the whole document is checked before the first deduction.
func (s *Service) Post(ctx context.Context, doc *Issue) (*Issue, error) {
	ctx, span := tracer.Start(ctx, "issue.Post")
	defer span.End()

	if err := doc.CanPost(); err != nil {
		return nil, err
	}
	doc.numberLines()
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetLocation(ctx, doc.LocationID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetItems(ctx, doc.ItemIDs()); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.periods.ForPosting(ctx, doc.PeriodID, doc.Date); err != nil {
			return err
		}
		if err := s.ledger.CheckAvailability(ctx, doc.LocationID, doc.Requirements()); err != nil {
			return err
		}

		if doc.Number == "" {
			number, err := s.numerator.GetNextNumber(ctx, NumberConfig(), doc.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			doc.Number = number
		}

		total := types.Zero()
		for i := range doc.Lines {
			line := &doc.Lines[i]
			d, err := s.ledger.Deduct(ctx,
				stock.Source{RecorderID: doc.ID, RecorderType: RecorderType, LineID: line.LineID},
				doc.LocationID, line.ItemID, line.Quantity)
			if err != nil {
				return err
			}
			line.WACAtIssue = d.WAC
			line.Value = d.Value
			total = total.Add(d.Value)
		}
		doc.TotalValue = types.RoundMoney(total)

		doc.CreatedBy = appctx.GetUserID(ctx)
		doc.MarkPosted(s.now())
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create issue: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "issue posted",
		"id", doc.ID,
		"number", doc.Number,
		"total", doc.TotalValue.String())
	return doc, nil
}

// GetByID retrieves an issue with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Issue, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}
