package stock

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/costing"
	"stockledger/pkg/logger"
)

// Service mutates the stock ledger.
// It never opens transactions; callers post documents inside one.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new stock ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Receive adds stock at unitCost and recomputes the weighted average cost.
func (s *Service) Receive(ctx context.Context, src Source, locationID, itemID id.ID, qty types.Quantity, unitCost types.Money) (costing.Receipt, error) {
	b, err := s.repo.GetBalanceForUpdate(ctx, locationID, itemID)
	if err != nil {
		return costing.Receipt{}, fmt.Errorf("lock balance %s/%s: %w", locationID, itemID, err)
	}

	r, err := costing.CalculateWAC(b.OnHand, b.WAC, qty, unitCost)
	if err != nil {
		return costing.Receipt{}, err
	}

	b.OnHand = r.NewQuantity
	b.WAC = r.NewWAC
	b.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveBalance(ctx, b); err != nil {
		return costing.Receipt{}, fmt.Errorf("save balance: %w", err)
	}

	err = s.journal(ctx, src, b, RecordTypeReceipt, qty, unitCost, r.ReceiptValue)
	return r, err
}

// Deduction is the outcome of removing stock.
type Deduction struct {
	// WAC is the cost the stock left at, snapshotted by the document line.
	WAC   types.Money
	Value types.Money
}

// Deduct removes stock at the current WAC. The WAC itself does not change.
func (s *Service) Deduct(ctx context.Context, src Source, locationID, itemID id.ID, qty types.Quantity) (Deduction, error) {
	if err := types.RequirePositive("quantity", qty); err != nil {
		return Deduction{}, err
	}
	b, err := s.repo.GetBalanceForUpdate(ctx, locationID, itemID)
	if err != nil {
		return Deduction{}, fmt.Errorf("lock balance %s/%s: %w", locationID, itemID, err)
	}
	if b.OnHand.LessThan(qty) {
		return Deduction{}, apperror.NewInsufficientStock(itemID.String(), qty.String(), b.OnHand.String()).
			WithDetail("location_id", locationID.String())
	}

	d := Deduction{WAC: b.WAC, Value: costing.LineValue(qty, b.WAC)}
	b.OnHand = b.OnHand.Sub(qty)
	b.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveBalance(ctx, b); err != nil {
		return Deduction{}, fmt.Errorf("save balance: %w", err)
	}

	err = s.journal(ctx, src, b, RecordTypeExpense, qty, d.WAC, d.Value)
	return d, err
}

func (s *Service) journal(ctx context.Context, src Source, after Balance, rt RecordType, qty types.Quantity, unitCost, value types.Money) error {
	m := Movement{
		ID:           id.New(),
		RecorderID:   src.RecorderID,
		RecorderType: src.RecorderType,
		LineID:       src.LineID,
		LocationID:   after.LocationID,
		ItemID:       after.ItemID,
		RecordType:   rt,
		Quantity:     qty,
		UnitCost:     unitCost,
		Value:        value,
		OnHandAfter:  after.OnHand,
		WACAfter:     after.WAC,
		RecordedAt:   after.UpdatedAt,
	}
	if err := s.repo.CreateMovements(ctx, []Movement{m}); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}
	return nil
}

// CheckAvailability locks the balances of every required item and verifies the
// summed quantity per item is on hand. Nothing is deducted; a shortage on any
// item fails the whole check.
func (s *Service) CheckAvailability(ctx context.Context, locationID id.ID, reqs []Requirement) error {
	needed := make(map[id.ID]types.Quantity, len(reqs))
	for i, r := range reqs {
		if err := types.RequirePositive(fmt.Sprintf("lines[%d].quantity", i), r.Quantity); err != nil {
			return err
		}
		if q, ok := needed[r.ItemID]; ok {
			needed[r.ItemID] = q.Add(r.Quantity)
		} else {
			needed[r.ItemID] = r.Quantity
		}
	}

	// fixed lock order keeps concurrent postings from deadlocking
	items := make([]id.ID, 0, len(needed))
	for itemID := range needed {
		items = append(items, itemID)
	}
	slices.SortFunc(items, func(a, b id.ID) int { return bytes.Compare(a[:], b[:]) })

	for _, itemID := range items {
		b, err := s.repo.GetBalanceForUpdate(ctx, locationID, itemID)
		if err != nil {
			return fmt.Errorf("lock balance %s/%s: %w", locationID, itemID, err)
		}
		if b.OnHand.LessThan(needed[itemID]) {
			logger.Debug(ctx, "insufficient stock",
				"location_id", locationID,
				"item_id", itemID,
				"requested", needed[itemID].String(),
				"available", b.OnHand.String())
			return apperror.NewInsufficientStock(itemID.String(), needed[itemID].String(), b.OnHand.String()).
				WithDetail("location_id", locationID.String())
		}
	}
	return nil
}

// Balance returns the current ledger row.
func (s *Service) Balance(ctx context.Context, locationID, itemID id.ID) (Balance, error) {
	return s.repo.GetBalance(ctx, locationID, itemID)
}

// LocationStock lists the non-zero balances of a location.
func (s *Service) LocationStock(ctx context.Context, locationID id.ID) ([]Balance, error) {
	return s.repo.GetBalancesByLocation(ctx, locationID, true)
}

// LocationValue is Σ on_hand × wac over the location, rounded to money.
func (s *Service) LocationValue(ctx context.Context, locationID id.ID) (types.Money, error) {
	balances, err := s.repo.GetBalancesByLocation(ctx, locationID, true)
	if err != nil {
		return types.Zero(), fmt.Errorf("get balances: %w", err)
	}
	total := types.Zero()
	for _, b := range balances {
		total = total.Add(b.OnHand.Mul(b.WAC))
	}
	return types.RoundMoney(total), nil
}

// Movements returns the journal lines a document produced.
func (s *Service) Movements(ctx context.Context, recorderID id.ID) ([]Movement, error) {
	return s.repo.GetMovementsByRecorder(ctx, recorderID)
}
