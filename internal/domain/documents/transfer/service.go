package transfer

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
	"stockledger/internal/domain/costing"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/registers/stock"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/transfer")

// Periods checks the posting period.
type Periods interface {
	ForPosting(ctx context.Context, periodID id.ID, date time.Time) (*period.Period, error)
}

// Ledger moves stock out of one location and into another.
type Ledger interface {
	CheckAvailability(ctx context.Context, locationID id.ID, reqs []stock.Requirement) error
	Deduct(ctx context.Context, src stock.Source, locationID, itemID id.ID, qty types.Quantity) (stock.Deduction, error)
	Receive(ctx context.Context, src stock.Source, locationID, itemID id.ID, qty types.Quantity, unitCost types.Money) (costing.Receipt, error)
}

// Service provides business operations for transfers.
type Service struct {
	repo      Repository
	periods   Periods
	ledger    Ledger
	catalog   catalog.Repository
	numerator numerator.Generator
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new transfer service.
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

// Create stores a PENDING transfer. No stock moves until Approve.
func (s *Service) Create(ctx context.Context, doc *Transfer) (*Transfer, error) {
	doc.Status = StatusPending
	doc.numberLines()
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetLocations(ctx, []id.ID{doc.LocationID, doc.ToLocationID}); err != nil {
		return nil, err
	}
	items, err := s.catalog.GetItems(ctx, doc.ItemIDs())
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := it.RequireActive(); err != nil {
			return nil, err
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.periods.ForPosting(ctx, doc.PeriodID, doc.Date); err != nil {
			return err
		}
		if doc.Number == "" {
			number, err := s.numerator.GetNextNumber(ctx, NumberConfig(), doc.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			doc.Number = number
		}
		doc.CreatedBy = appctx.GetUserID(ctx)
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer created", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// Approve moves the stock: every line is deducted at the source WAC and
// received at the destination through the WAC engine at that same cost.
func (s *Service) Approve(ctx context.Context, docID id.ID) (*Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.Approve")
	defer span.End()

	var doc *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.requirePending(StatusCompleted); err != nil {
			return err
		}
		if doc.Lines, err = s.repo.GetLines(ctx, docID); err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		if _, err := s.periods.ForPosting(ctx, doc.PeriodID, doc.Date); err != nil {
			return err
		}
		if err := s.ledger.CheckAvailability(ctx, doc.FromLocationID(), doc.Requirements()); err != nil {
			return err
		}

		total := types.Zero()
		for i := range doc.Lines {
			line := &doc.Lines[i]
			src := stock.Source{RecorderID: doc.ID, RecorderType: RecorderType, LineID: line.LineID}

			out, err := s.ledger.Deduct(ctx, src, doc.FromLocationID(), line.ItemID, line.Quantity)
			if err != nil {
				return err
			}
			if _, err := s.ledger.Receive(ctx, src, doc.ToLocationID, line.ItemID, line.Quantity, out.WAC); err != nil {
				return err
			}
			line.WACAtTransfer = out.WAC
			line.Value = out.Value
			total = total.Add(out.Value)
		}

		now := s.now().UTC()
		approver := appctx.GetUserID(ctx)
		doc.Status = StatusCompleted
		doc.ApprovedBy = &approver
		doc.ApprovedAt = &now
		doc.TotalValue = types.RoundMoney(total)
		doc.MarkPosted(now)

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update transfer: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer approved",
		"id", doc.ID,
		"number", doc.Number,
		"total", doc.TotalValue.String())
	return doc, nil
}

// Reject closes a pending transfer without moving stock.
func (s *Service) Reject(ctx context.Context, docID id.ID) (*Transfer, error) {
	var doc *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.requirePending(StatusRejected); err != nil {
			return err
		}
		now := s.now().UTC()
		approver := appctx.GetUserID(ctx)
		doc.Status = StatusRejected
		doc.ApprovedBy = &approver
		doc.ApprovedAt = &now
		doc.Touch(now)
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "transfer rejected", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// GetByID retrieves a transfer with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Transfer, error) {
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
