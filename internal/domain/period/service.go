package period

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/ncr"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/period")

// StockValuer values the stock held at a location.
type StockValuer interface {
	LocationValue(ctx context.Context, locationID id.ID) (types.Money, error)
}

// OpenNCRs reports OPEN NCRs of a period per location.
type OpenNCRs interface {
	OpenByLocation(ctx context.Context, periodID id.ID) ([]ncr.LocationSummary, error)
}

// Dependencies wires a Service.
type Dependencies struct {
	Periods   Repository
	Prices    PriceRepository
	Approvals ApprovalRepository
	Catalog   catalog.Repository
	Stock     StockValuer
	NCRs      OpenNCRs
	TxManager tx.Manager
	Publisher events.Publisher
	Audit     audit.Recorder
	Locker    Locker
}

// Service drives the period lifecycle.
type Service struct {
	Dependencies
	now func() time.Time
}

// NewService creates a period service.
func NewService(deps Dependencies) *Service {
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if deps.Locker == nil {
		deps.Locker = NopLocker{}
	}
	return &Service{Dependencies: deps, now: time.Now}
}

// CreateInput describes a new DRAFT period.
type CreateInput struct {
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	LocationIDs []id.ID
}

// Create creates a DRAFT period attached to the given locations.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Period, error) {
	p := &Period{
		BaseEntity: entity.NewBaseEntity(s.now()),
		Name:       strings.TrimSpace(in.Name),
		StartDate:  Day(in.StartDate),
		EndDate:    Day(in.EndDate),
		Status:     StatusDraft,
	}
	p.CreatedBy = appctx.GetUserID(ctx)
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	locationIDs, err := s.resolveLocations(ctx, in.LocationIDs)
	if err != nil {
		return nil, err
	}

	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.rejectOverlap(ctx, p.StartDate, p.EndDate); err != nil {
			return err
		}
		if err := s.Periods.Create(ctx, p); err != nil {
			return fmt.Errorf("create period: %w", err)
		}
		if err := s.Periods.AddLocations(ctx, newLocations(p.ID, locationIDs, nil)); err != nil {
			return fmt.Errorf("add period locations: %w", err)
		}
		return s.record(ctx, p, audit.ActionCreate, map[string]any{
			"name":      p.Name,
			"startDate": p.StartDate.Format(time.DateOnly),
			"endDate":   p.EndDate.Format(time.DateOnly),
			"locations": len(locationIDs),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period created", "period_id", p.ID, "name", p.Name)
	return p, nil
}

// AddLocations attaches more locations to a DRAFT period.
func (s *Service) AddLocations(ctx context.Context, periodID id.ID, locationIDs []id.ID) ([]Location, error) {
	ids, err := s.resolveLocations(ctx, locationIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperror.NewFieldValidation("locationIds", "must not be empty")
	}

	var out []Location
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.Periods.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if err := p.RequireStatus("ADD_LOCATIONS", StatusDraft); err != nil {
			return err
		}
		if err := s.Periods.AddLocations(ctx, newLocations(periodID, ids, nil)); err != nil {
			return fmt.Errorf("add period locations: %w", err)
		}
		out, err = s.Periods.GetLocations(ctx, periodID)
		return err
	})
	return out, err
}

// PriceInput is one expected price to record.
type PriceInput struct {
	ItemID   id.ID
	Price    types.Money
	Currency string
}

// SetPrice records the expected price of an item. Only DRAFT periods accept prices.
func (s *Service) SetPrice(ctx context.Context, periodID, itemID id.ID, price types.Money, currency string) (*ItemPrice, error) {
	out, err := s.SetPrices(ctx, periodID, []PriceInput{{ItemID: itemID, Price: price, Currency: currency}})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// SetPrices records several expected prices in one transaction; either all are
// stored or none.
func (s *Service) SetPrices(ctx context.Context, periodID id.ID, prices []PriceInput) ([]ItemPrice, error) {
	if len(prices) == 0 {
		return nil, apperror.NewFieldValidation("prices", "must not be empty")
	}
	itemIDs := make([]id.ID, 0, len(prices))
	out := make([]ItemPrice, len(prices))
	for i, in := range prices {
		if err := types.RequireNonNegative("price", in.Price); err != nil {
			return nil, err
		}
		itemIDs = append(itemIDs, in.ItemID)
		out[i] = ItemPrice{
			PeriodID: periodID,
			ItemID:   in.ItemID,
			Price:    types.RoundCost(in.Price),
			Currency: strings.ToUpper(strings.TrimSpace(in.Currency)),
		}
	}
	if _, err := s.Catalog.GetItems(ctx, itemIDs); err != nil {
		return nil, err
	}

	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.Periods.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if err := p.RequireStatus("SET_PRICE", StatusDraft); err != nil {
			return err
		}
		for i := range out {
			if err := s.Prices.UpsertPrice(ctx, &out[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a period.
func (s *Service) Get(ctx context.Context, periodID id.ID) (*Period, error) {
	return s.Periods.GetByID(ctx, periodID)
}

// ListLocations returns the location states of a period.
func (s *Service) ListLocations(ctx context.Context, periodID id.ID) ([]Location, error) {
	return s.Periods.GetLocations(ctx, periodID)
}

// GetLocation returns one location state.
func (s *Service) GetLocation(ctx context.Context, periodID, locationID id.ID) (*Location, error) {
	return s.Periods.GetLocation(ctx, periodID, locationID)
}

// ListPrices returns the expected prices of a period.
func (s *Service) ListPrices(ctx context.Context, periodID id.ID) ([]ItemPrice, error) {
	return s.Prices.GetPrices(ctx, periodID)
}

// LockedPrice returns the expected price for posting, or nil when none was entered.
func (s *Service) LockedPrice(ctx context.Context, periodID, itemID id.ID) (*ItemPrice, error) {
	return s.Prices.GetPrice(ctx, periodID, itemID)
}

// ForPosting loads the period a stock document is posted into and checks it accepts the date.
func (s *Service) ForPosting(ctx context.Context, periodID id.ID, date time.Time) (*Period, error) {
	p, err := s.Periods.GetByID(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if err := p.RequireOpenOn(date); err != nil {
		return nil, err
	}
	return p, nil
}

// Open moves a DRAFT period to OPEN and locks its prices.
func (s *Service) Open(ctx context.Context, periodID id.ID) (*Period, error) {
	ctx, span := tracer.Start(ctx, "period.Open")
	defer span.End()
	span.SetAttributes(attribute.String("period.id", periodID.String()))

	var p *Period
	err := s.withLifecycleLock(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.Periods.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		current, err := s.Periods.FindOpen(ctx)
		if err != nil {
			return fmt.Errorf("find open period: %w", err)
		}
		locations, err := s.Periods.GetLocations(ctx, periodID)
		if err != nil {
			return fmt.Errorf("get period locations: %w", err)
		}
		if err := CheckOpen(p, current, len(locations)); err != nil {
			return err
		}

		from := p.Status
		if err := p.moveTo(StatusOpen, s.now()); err != nil {
			return err
		}
		if err := s.Periods.Update(ctx, p); err != nil {
			return fmt.Errorf("update period: %w", err)
		}
		locked, err := s.Prices.LockPrices(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("lock prices: %w", err)
		}
		logger.Debug(ctx, "period prices locked", "period_id", p.ID, "count", locked)
		return s.transitioned(ctx, p, from)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period opened", "period_id", p.ID, "name", p.Name)
	return p, nil
}

// MarkLocationReady flags a location as finished for the period and snapshots its closing value.
func (s *Service) MarkLocationReady(ctx context.Context, periodID, locationID id.ID) (*Location, error) {
	var l *Location
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.Periods.GetByID(ctx, periodID)
		if err != nil {
			return err
		}
		if err := p.RequireStatus("MARK_READY", StatusOpen); err != nil {
			return err
		}
		l, err = s.Periods.GetLocationForUpdate(ctx, periodID, locationID)
		if err != nil {
			return err
		}
		if l.Status == LocationReady {
			return apperror.NewInvalidTransition("PeriodLocation", string(l.Status), string(LocationReady),
				"location is already ready")
		}

		value, err := s.Stock.LocationValue(ctx, locationID)
		if err != nil {
			return fmt.Errorf("value location stock: %w", err)
		}
		now := s.now().UTC()
		actor := appctx.GetUserID(ctx)
		l.Status = LocationReady
		l.ClosingValue = decimal.NewNullDecimal(types.RoundMoney(value))
		l.ReadyAt = &now
		l.ReadyBy = &actor
		if err := s.Periods.UpdateLocation(ctx, l); err != nil {
			return fmt.Errorf("update period location: %w", err)
		}
		return s.Audit.Record(ctx, audit.Entry{
			EntityType: events.AggregatePeriod,
			EntityID:   periodID,
			Action:     audit.ActionUpdate,
			Changes: map[string]any{
				"location_id":   locationID.String(),
				"status":        string(LocationReady),
				"closing_value": l.ClosingValue.Decimal.StringFixed(types.MoneyPlaces),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period location ready",
		"period_id", periodID,
		"location_id", locationID,
		"closing_value", l.ClosingValue.Decimal.String())
	return l, nil
}

// MarkLocationOpen reverts a READY location while the period is still OPEN.
func (s *Service) MarkLocationOpen(ctx context.Context, periodID, locationID id.ID) (*Location, error) {
	var l *Location
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.Periods.GetByID(ctx, periodID)
		if err != nil {
			return err
		}
		if err := p.RequireStatus("MARK_OPEN", StatusOpen); err != nil {
			return err
		}
		l, err = s.Periods.GetLocationForUpdate(ctx, periodID, locationID)
		if err != nil {
			return err
		}
		if l.Status == LocationOpen {
			return apperror.NewInvalidTransition("PeriodLocation", string(l.Status), string(LocationOpen),
				"location is already open")
		}
		l.Status = LocationOpen
		l.ClosingValue = decimal.NullDecimal{}
		l.ReadyAt = nil
		l.ReadyBy = nil
		return s.Periods.UpdateLocation(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// RequestClose moves an OPEN period to PENDING_CLOSE and files a PERIOD_CLOSE approval.
// OPEN NCRs do not block the request; they come back as warnings.
func (s *Service) RequestClose(ctx context.Context, periodID id.ID) (*CloseRequest, error) {
	ctx, span := tracer.Start(ctx, "period.RequestClose")
	defer span.End()
	span.SetAttributes(attribute.String("period.id", periodID.String()))

	var req *CloseRequest
	err := s.withLifecycleLock(ctx, func(ctx context.Context) error {
		p, err := s.Periods.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		locations, err := s.Periods.GetLocations(ctx, periodID)
		if err != nil {
			return fmt.Errorf("get period locations: %w", err)
		}
		if err := CheckRequestClose(p, locations); err != nil {
			return err
		}

		pending, err := s.Approvals.FindPendingApproval(ctx, EntityPeriodClose, periodID)
		if err != nil {
			return fmt.Errorf("find pending approval: %w", err)
		}
		if pending != nil {
			return apperror.NewConflictWith("A close approval is already pending", "Approval", pending.ID.String())
		}

		from := p.Status
		if err := p.moveTo(StatusPendingClose, s.now()); err != nil {
			return err
		}
		if err := s.Periods.Update(ctx, p); err != nil {
			return fmt.Errorf("update period: %w", err)
		}
		approval := newCloseApproval(p.ID, appctx.GetUserID(ctx), s.now())
		if err := s.Approvals.CreateApproval(ctx, approval); err != nil {
			return fmt.Errorf("create approval: %w", err)
		}

		var warnings CloseWarnings
		if s.NCRs != nil {
			warnings.OpenNCRs, err = s.NCRs.OpenByLocation(ctx, periodID)
			if err != nil {
				return fmt.Errorf("collect open ncrs: %w", err)
			}
		}
		req = &CloseRequest{Period: p, Approval: approval, Warnings: warnings}
		return s.transitioned(ctx, p, from)
	})
	if err != nil {
		return nil, err
	}

	if req.Warnings.HasWarnings() {
		logger.Warn(ctx, "period close requested with open ncrs",
			"period_id", periodID,
			"locations", len(req.Warnings.OpenNCRs))
	}
	logger.Info(ctx, "period close requested", "period_id", periodID, "approval_id", req.Approval.ID)
	return req, nil
}

// ResolveApproval applies the approval workflow decision.
// Approval closes the period; rejection returns it to OPEN.
func (s *Service) ResolveApproval(ctx context.Context, approvalID id.ID, approved bool, comment string) (*Period, error) {
	ctx, span := tracer.Start(ctx, "period.ResolveApproval")
	defer span.End()

	var p *Period
	err := s.withLifecycleLock(ctx, func(ctx context.Context) error {
		a, err := s.Approvals.GetApprovalForUpdate(ctx, approvalID)
		if err != nil {
			return err
		}
		if a.EntityType != EntityPeriodClose {
			return apperror.NewValidation("approval is not a period close request").
				WithDetail("entity_type", a.EntityType)
		}
		if a.Status != ApprovalPending {
			return apperror.NewInvalidTransition("Approval", string(a.Status), "RESOLVED", "approval is already resolved")
		}

		p, err = s.Periods.GetForUpdate(ctx, a.EntityID)
		if err != nil {
			return err
		}
		target := StatusOpen
		a.Status = ApprovalRejected
		if approved {
			target = StatusClosed
			a.Status = ApprovalApproved
		} else {
			current, err := s.Periods.FindOpen(ctx)
			if err != nil {
				return fmt.Errorf("find open period: %w", err)
			}
			if err := CheckReject(p, current); err != nil {
				return err
			}
		}

		from := p.Status
		if err := p.moveTo(target, s.now()); err != nil {
			return err
		}
		if err := s.Periods.Update(ctx, p); err != nil {
			return fmt.Errorf("update period: %w", err)
		}

		now := s.now().UTC()
		actor := appctx.GetUserID(ctx)
		a.ResolvedAt = &now
		a.ResolvedBy = &actor
		a.Comment = strings.TrimSpace(comment)
		if err := s.Approvals.UpdateApproval(ctx, a); err != nil {
			return fmt.Errorf("update approval: %w", err)
		}
		return s.transitioned(ctx, p, from)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period approval resolved",
		"period_id", p.ID,
		"approved", approved,
		"status", p.Status)
	return p, nil
}

// RollForward creates the DRAFT period that follows a CLOSED one.
// Opening values come from the closed period's closing snapshots; reconciliations are not carried over.
func (s *Service) RollForward(ctx context.Context, closedID id.ID, opts RollForwardOptions) (*Period, error) {
	ctx, span := tracer.Start(ctx, "period.RollForward")
	defer span.End()

	var next *Period
	err := s.withLifecycleLock(ctx, func(ctx context.Context) error {
		closed, err := s.Periods.GetByID(ctx, closedID)
		if err != nil {
			return err
		}
		if err := closed.RequireStatus("ROLL_FORWARD", StatusClosed); err != nil {
			return err
		}
		start, end, err := NextWindow(closed.EndDate, opts.EndDate)
		if err != nil {
			return err
		}
		if err := s.rejectOverlap(ctx, start, end); err != nil {
			return err
		}

		name := strings.TrimSpace(opts.Name)
		if name == "" {
			name = DefaultName(start)
		}
		rolledFrom := closed.ID
		next = &Period{
			BaseEntity:   entity.NewBaseEntity(s.now()),
			Name:         name,
			StartDate:    start,
			EndDate:      end,
			Status:       StatusDraft,
			RolledFromID: &rolledFrom,
		}
		next.CreatedBy = appctx.GetUserID(ctx)
		if err := next.Validate(ctx); err != nil {
			return err
		}
		if err := s.Periods.Create(ctx, next); err != nil {
			return fmt.Errorf("create period: %w", err)
		}

		prev, err := s.Periods.GetLocations(ctx, closed.ID)
		if err != nil {
			return fmt.Errorf("get period locations: %w", err)
		}
		opening := make(map[id.ID]types.Money, len(prev))
		ids := make([]id.ID, 0, len(prev))
		for _, l := range prev {
			ids = append(ids, l.LocationID)
			if l.ClosingValue.Valid {
				opening[l.LocationID] = l.ClosingValue.Decimal
			}
		}
		if err := s.Periods.AddLocations(ctx, newLocations(next.ID, ids, opening)); err != nil {
			return fmt.Errorf("add period locations: %w", err)
		}

		var copied int64
		if opts.CopyPrices {
			copied, err = s.Prices.CopyPrices(ctx, closed.ID, next.ID)
			if err != nil {
				return fmt.Errorf("copy prices: %w", err)
			}
		}
		return s.record(ctx, next, audit.ActionCreate, map[string]any{
			"rolledFrom":   closed.ID.String(),
			"startDate":    start.Format(time.DateOnly),
			"endDate":      end.Format(time.DateOnly),
			"pricesCopied": copied,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period rolled forward",
		"from", closedID,
		"period_id", next.ID,
		"start", next.StartDate.Format(time.DateOnly),
		"end", next.EndDate.Format(time.DateOnly))
	return next, nil
}

func (s *Service) withLifecycleLock(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := s.Locker.Lock(ctx, lifecycleLockKey)
	if err != nil {
		return err
	}
	defer release()
	return s.TxManager.RunInTransaction(ctx, fn)
}

func (s *Service) rejectOverlap(ctx context.Context, start, end time.Time) error {
	existing, err := s.Periods.FindOverlapping(ctx, start, end)
	if err != nil {
		return fmt.Errorf("find overlapping period: %w", err)
	}
	if existing != nil {
		return apperror.NewConflictWith("Period dates overlap an existing period", "Period", existing.ID.String()).
			WithDetail("conflicting_name", existing.Name)
	}
	return nil
}

func (s *Service) resolveLocations(ctx context.Context, locationIDs []id.ID) ([]id.ID, error) {
	seen := make(map[id.ID]bool, len(locationIDs))
	out := make([]id.ID, 0, len(locationIDs))
	for _, l := range locationIDs {
		if id.IsNil(l) {
			return nil, apperror.NewFieldValidation("locationIds", "must not contain empty ids")
		}
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return out, nil
	}
	if _, err := s.Catalog.GetLocations(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) transitioned(ctx context.Context, p *Period, from Status) error {
	if err := s.record(ctx, p, audit.ActionTransition, map[string]any{
		"status": map[string]string{"from": string(from), "to": string(p.Status)},
	}); err != nil {
		return err
	}
	if s.Publisher == nil {
		return nil
	}
	return s.Publisher.Publish(ctx, events.Event{
		AggregateType: events.AggregatePeriod,
		AggregateID:   p.ID,
		Type:          events.TypePeriodTransition,
		Payload: events.PeriodTransition{
			PeriodID: p.ID,
			Name:     p.Name,
			From:     string(from),
			To:       string(p.Status),
			At:       p.UpdatedAt,
		},
	})
}

func (s *Service) record(ctx context.Context, p *Period, action audit.Action, changes map[string]any) error {
	if err := s.Audit.Record(ctx, audit.Entry{
		EntityType: events.AggregatePeriod,
		EntityID:   p.ID,
		Action:     action,
		Changes:    changes,
	}); err != nil {
		return fmt.Errorf("audit period: %w", err)
	}
	return nil
}

func newLocations(periodID id.ID, locationIDs []id.ID, opening map[id.ID]types.Money) []Location {
	out := make([]Location, 0, len(locationIDs))
	for _, l := range locationIDs {
		value, ok := opening[l]
		if !ok {
			value = types.Zero()
		}
		out = append(out, Location{
			PeriodID:     periodID,
			LocationID:   l,
			Status:       LocationOpen,
			OpeningValue: value,
		})
	}
	return out
}
