package ncr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/events"
	"stockledger/pkg/logger"
)

// Service provides NCR operations.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	publisher events.Publisher
	audit     audit.Recorder
	now       func() time.Time
}

// NewService creates a new NCR service.
func NewService(
	repo Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
	auditor audit.Recorder,
) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		numerator: numerator,
		txManager: txManager,
		publisher: publisher,
		audit:     auditor,
		now:       time.Now,
	}
}

// ManualInput describes a manually raised NCR.
type ManualInput struct {
	LocationID     id.ID
	Value          types.Money
	Reason         string
	DeliveryID     *id.ID
	DeliveryLineID *id.ID
	ItemID         *id.ID
}

// VarianceInput describes a price variance detected while posting a delivery line.
type VarianceInput struct {
	LocationID     id.ID
	LocationName   string
	DeliveryID     id.ID
	DeliveryNumber string
	DeliveryLineID id.ID
	ItemID         id.ID
	ItemName       string
	Reason         string
	// VarianceAmount is signed; the NCR stores its absolute value.
	VarianceAmount types.Money
}

// CreateManual creates an OPEN, non-auto-generated MANUAL NCR.
func (s *Service) CreateManual(ctx context.Context, in ManualInput) (*NCR, error) {
	n := &NCR{
		BaseEntity:     entity.NewBaseEntity(s.now()),
		Type:           TypeManual,
		LocationID:     in.LocationID,
		DeliveryID:     in.DeliveryID,
		DeliveryLineID: in.DeliveryLineID,
		ItemID:         in.ItemID,
		Reason:         strings.TrimSpace(in.Reason),
		Value:          types.RoundMoney(in.Value),
		Status:         StatusOpen,
	}
	if err := s.create(ctx, n, notifyDetails{}); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateForVariance creates an auto-generated PRICE_VARIANCE NCR.
// It joins the caller's transaction so a failed posting leaves neither the NCR nor its number behind.
func (s *Service) CreateForVariance(ctx context.Context, in VarianceInput) (*NCR, error) {
	n := &NCR{
		BaseEntity:     entity.NewBaseEntity(s.now()),
		Type:           TypePriceVariance,
		AutoGenerated:  true,
		LocationID:     in.LocationID,
		DeliveryID:     id.Ptr(in.DeliveryID),
		DeliveryLineID: id.Ptr(in.DeliveryLineID),
		ItemID:         id.Ptr(in.ItemID),
		Reason:         in.Reason,
		Value:          types.RoundMoney(in.VarianceAmount.Abs()),
		Status:         StatusOpen,
	}
	details := notifyDetails{
		locationName:   in.LocationName,
		itemName:       in.ItemName,
		deliveryNumber: in.DeliveryNumber,
	}
	if err := s.create(ctx, n, details); err != nil {
		return nil, err
	}
	return n, nil
}

type notifyDetails struct {
	locationName   string
	itemName       string
	deliveryNumber string
}

func (s *Service) create(ctx context.Context, n *NCR, details notifyDetails) error {
	n.CreatedBy = appctx.GetUserID(ctx)
	if err := n.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.GetNextNumber(ctx, numerator.NCRConfig(), n.CreatedAt)
		if err != nil {
			return fmt.Errorf("allocate ncr number: %w", err)
		}
		n.Number = number

		if err := s.repo.Create(ctx, n); err != nil {
			return fmt.Errorf("create ncr: %w", err)
		}

		if err := s.audit.Record(ctx, audit.Entry{
			EntityType: events.AggregateNCR,
			EntityID:   n.ID,
			Action:     audit.ActionCreate,
			Changes: map[string]any{
				"ncr_no": n.Number,
				"type":   string(n.Type),
				"value":  n.Value.StringFixed(types.MoneyPlaces),
				"status": string(n.Status),
			},
		}); err != nil {
			return fmt.Errorf("audit ncr: %w", err)
		}

		return s.publish(ctx, events.TypeNCRCreated, n, "", details)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "ncr created",
		"ncr_no", n.Number,
		"type", n.Type,
		"value", n.Value.String(),
		"location_id", n.LocationID)
	return nil
}

// UpdateStatus moves an NCR to another status.
func (s *Service) UpdateStatus(ctx context.Context, ncrID id.ID, change StatusChange) (*NCR, error) {
	var n *NCR
	var from Status

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.GetForUpdate(ctx, ncrID)
		if err != nil {
			return err
		}
		from = n.Status

		if err := n.Transition(change, s.now()); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, n); err != nil {
			return fmt.Errorf("update ncr: %w", err)
		}

		changes := map[string]any{
			"status": map[string]string{"from": string(from), "to": string(n.Status)},
		}
		if n.FinancialImpact != nil {
			changes["financial_impact"] = string(*n.FinancialImpact)
			changes["resolution_type"] = *n.ResolutionType
		}
		if err := s.audit.Record(ctx, audit.Entry{
			EntityType: events.AggregateNCR,
			EntityID:   n.ID,
			Action:     audit.ActionTransition,
			Changes:    changes,
		}); err != nil {
			return fmt.Errorf("audit ncr: %w", err)
		}

		return s.publish(ctx, events.TypeNCRStatusChanged, n, from, notifyDetails{})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "ncr status changed",
		"ncr_no", n.Number,
		"from", from,
		"to", n.Status)
	return n, nil
}

func (s *Service) publish(ctx context.Context, eventType string, n *NCR, previous Status, details notifyDetails) error {
	if s.publisher == nil {
		return nil
	}
	payload := events.NCRNotification{
		NCRNumber:       n.Number,
		Type:            string(n.Type),
		Status:          string(n.Status),
		PreviousStatus:  string(previous),
		FinancialImpact: string(n.Impact()),
		Value:           n.Value,
		LocationID:      n.LocationID,
		LocationName:    details.locationName,
		ItemID:          n.ItemID,
		ItemName:        details.itemName,
		DeliveryID:      n.DeliveryID,
		DeliveryNumber:  details.deliveryNumber,
		Reason:          n.Reason,
		OccurredAt:      n.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, events.Event{
		AggregateType: events.AggregateNCR,
		AggregateID:   n.ID,
		Type:          eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Get returns a single NCR.
func (s *Service) Get(ctx context.Context, ncrID id.ID) (*NCR, error) {
	return s.repo.GetByID(ctx, ncrID)
}

// Summary aggregates the NCRs of one (period, location).
func (s *Service) Summary(ctx context.Context, periodID, locationID id.ID) (Summary, error) {
	ncrs, err := s.ForScope(ctx, periodID, locationID)
	if err != nil {
		return Summary{}, err
	}
	return Aggregate(ncrs), nil
}

// ForScope lists the NCRs attributed to one (period, location).
func (s *Service) ForScope(ctx context.Context, periodID, locationID id.ID) ([]NCR, error) {
	if id.IsNil(periodID) {
		return nil, apperror.NewFieldValidation("periodId", "is required")
	}
	if id.IsNil(locationID) {
		return nil, apperror.NewFieldValidation("locationId", "is required")
	}
	linked, err := s.repo.ListLinked(ctx, periodID, &locationID)
	if err != nil {
		return nil, fmt.Errorf("list ncrs: %w", err)
	}
	windows, err := s.repo.Windows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list period windows: %w", err)
	}
	return InScope(linked, windows, periodID, locationID), nil
}

// OpenByLocation returns the OPEN NCRs of a period grouped by location.
func (s *Service) OpenByLocation(ctx context.Context, periodID id.ID) ([]LocationSummary, error) {
	linked, err := s.repo.ListLinked(ctx, periodID, nil)
	if err != nil {
		return nil, fmt.Errorf("list ncrs: %w", err)
	}
	windows, err := s.repo.Windows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list period windows: %w", err)
	}

	var inPeriod []NCR
	for _, l := range linked {
		if p, ok := PeriodOf(l, windows); ok && p == periodID {
			inPeriod = append(inPeriod, l.NCR)
		}
	}
	return OpenByLocation(inPeriod), nil
}
