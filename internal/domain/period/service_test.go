package period

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/ncr"
)

type fakeStore struct {
	periods   map[id.ID]*Period
	locations map[id.ID][]Location
	prices    map[id.ID]map[id.ID]ItemPrice
	approvals map[id.ID]*Approval
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		periods:   map[id.ID]*Period{},
		locations: map[id.ID][]Location{},
		prices:    map[id.ID]map[id.ID]ItemPrice{},
		approvals: map[id.ID]*Approval{},
	}
}

func (f *fakeStore) Create(_ context.Context, p *Period) error {
	c := *p
	f.periods[p.ID] = &c
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, periodID id.ID) (*Period, error) {
	p, ok := f.periods[periodID]
	if !ok {
		return nil, apperror.NewNotFound("Period", periodID)
	}
	c := *p
	return &c, nil
}

func (f *fakeStore) GetForUpdate(ctx context.Context, periodID id.ID) (*Period, error) {
	return f.GetByID(ctx, periodID)
}

func (f *fakeStore) Update(_ context.Context, p *Period) error {
	c := *p
	f.periods[p.ID] = &c
	return nil
}

func (f *fakeStore) FindOpen(context.Context) (*Period, error) {
	for _, p := range f.periods {
		if p.Status == StatusOpen {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindOverlapping(_ context.Context, start, end time.Time) (*Period, error) {
	for _, p := range f.periods {
		if p.Overlaps(start, end) {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) AddLocations(_ context.Context, locations []Location) error {
	for _, l := range locations {
		f.locations[l.PeriodID] = append(f.locations[l.PeriodID], l)
	}
	return nil
}

func (f *fakeStore) GetLocations(_ context.Context, periodID id.ID) ([]Location, error) {
	return append([]Location(nil), f.locations[periodID]...), nil
}

func (f *fakeStore) GetLocation(_ context.Context, periodID, locationID id.ID) (*Location, error) {
	for _, l := range f.locations[periodID] {
		if l.LocationID == locationID {
			c := l
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("PeriodLocation", locationID)
}

func (f *fakeStore) GetLocationForUpdate(ctx context.Context, periodID, locationID id.ID) (*Location, error) {
	return f.GetLocation(ctx, periodID, locationID)
}

func (f *fakeStore) UpdateLocation(_ context.Context, l *Location) error {
	for i, existing := range f.locations[l.PeriodID] {
		if existing.LocationID == l.LocationID {
			f.locations[l.PeriodID][i] = *l
			return nil
		}
	}
	return apperror.NewNotFound("PeriodLocation", l.LocationID)
}

func (f *fakeStore) UpsertPrice(_ context.Context, price *ItemPrice) error {
	if f.prices[price.PeriodID] == nil {
		f.prices[price.PeriodID] = map[id.ID]ItemPrice{}
	}
	f.prices[price.PeriodID][price.ItemID] = *price
	return nil
}

func (f *fakeStore) GetPrice(_ context.Context, periodID, itemID id.ID) (*ItemPrice, error) {
	p, ok := f.prices[periodID][itemID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) GetPrices(_ context.Context, periodID id.ID) ([]ItemPrice, error) {
	var out []ItemPrice
	for _, p := range f.prices[periodID] {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) LockPrices(_ context.Context, periodID id.ID) (int64, error) {
	var n int64
	for itemID, p := range f.prices[periodID] {
		p.Locked = true
		f.prices[periodID][itemID] = p
		n++
	}
	return n, nil
}

func (f *fakeStore) CopyPrices(_ context.Context, fromPeriodID, toPeriodID id.ID) (int64, error) {
	var n int64
	for _, p := range f.prices[fromPeriodID] {
		p.PeriodID = toPeriodID
		p.Locked = false
		if f.prices[toPeriodID] == nil {
			f.prices[toPeriodID] = map[id.ID]ItemPrice{}
		}
		f.prices[toPeriodID][p.ItemID] = p
		n++
	}
	return n, nil
}

func (f *fakeStore) CreateApproval(_ context.Context, a *Approval) error {
	c := *a
	f.approvals[a.ID] = &c
	return nil
}

func (f *fakeStore) GetApprovalForUpdate(_ context.Context, approvalID id.ID) (*Approval, error) {
	a, ok := f.approvals[approvalID]
	if !ok {
		return nil, apperror.NewNotFound("Approval", approvalID)
	}
	c := *a
	return &c, nil
}

func (f *fakeStore) FindPendingApproval(_ context.Context, entityType string, entityID id.ID) (*Approval, error) {
	for _, a := range f.approvals {
		if a.EntityType == entityType && a.EntityID == entityID && a.Status == ApprovalPending {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateApproval(_ context.Context, a *Approval) error {
	c := *a
	f.approvals[a.ID] = &c
	return nil
}

type fakeStock map[id.ID]types.Money

func (f fakeStock) LocationValue(_ context.Context, locationID id.ID) (types.Money, error) {
	return f[locationID], nil
}

type fakeOpenNCRs []ncr.LocationSummary

func (f fakeOpenNCRs) OpenByLocation(context.Context, id.ID) ([]ncr.LocationSummary, error) {
	return f, nil
}

type countingLocker struct{ locks, releases int }

func (l *countingLocker) Lock(context.Context, string) (func(), error) {
	l.locks++
	return func() { l.releases++ }, nil
}

type fixture struct {
	svc       *Service
	store     *fakeStore
	catalog   *catalog.Memory
	stock     fakeStock
	published *events.Recorder
	audit     *audit.Memory
	locker    *countingLocker
	kitchen   *catalog.Location
	store2    *catalog.Location
}

func newFixture(openNCRs ...ncr.LocationSummary) *fixture {
	f := &fixture{
		store:     newFakeStore(),
		catalog:   catalog.NewMemory(),
		stock:     fakeStock{},
		published: &events.Recorder{},
		audit:     &audit.Memory{},
		locker:    &countingLocker{},
	}
	f.kitchen = f.catalog.AddLocation("K1", "Main Kitchen", catalog.LocationKitchen)
	f.store2 = f.catalog.AddLocation("S1", "Dry Store", catalog.LocationStore)
	f.svc = NewService(Dependencies{
		Periods:   f.store,
		Prices:    f.store,
		Approvals: f.store,
		Catalog:   f.catalog,
		Stock:     f.stock,
		NCRs:      fakeOpenNCRs(openNCRs),
		TxManager: &tx.MockManager{},
		Publisher: f.published,
		Audit:     f.audit,
		Locker:    f.locker,
	})
	f.svc.now = func() time.Time { return time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) createJanuary(t *testing.T) *Period {
	t.Helper()
	p, err := f.svc.Create(t.Context(), CreateInput{
		Name:        "January 2025",
		StartDate:   date(2025, 1, 1),
		EndDate:     date(2025, 1, 31),
		LocationIDs: []id.ID{f.kitchen.ID, f.store2.ID, f.kitchen.ID},
	})
	require.NoError(t, err)
	return p
}

func TestService_Create(t *testing.T) {
	f := newFixture()
	p := f.createJanuary(t)

	assert.Equal(t, StatusDraft, p.Status)
	locations, err := f.svc.ListLocations(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Len(t, locations, 2, "duplicate location ids are collapsed")
	for _, l := range locations {
		assert.Equal(t, LocationOpen, l.Status)
		assert.True(t, l.OpeningValue.IsZero())
	}
}

func TestService_Create_RejectsOverlapAndUnknownLocation(t *testing.T) {
	f := newFixture()
	first := f.createJanuary(t)

	_, err := f.svc.Create(t.Context(), CreateInput{
		Name: "Overlap", StartDate: date(2025, 1, 15), EndDate: date(2025, 2, 14),
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
	assert.Equal(t, first.ID.String(), appErr.Details["conflicting_id"])

	_, err = f.svc.Create(t.Context(), CreateInput{
		Name: "February", StartDate: date(2025, 2, 1), EndDate: date(2025, 2, 28),
		LocationIDs: []id.ID{id.New()},
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_SetPriceOnlyWhileDraft(t *testing.T) {
	f := newFixture()
	p := f.createJanuary(t)
	item := f.catalog.AddItem("RICE", "Rice", "kg")

	ip, err := f.svc.SetPrice(t.Context(), p.ID, item.ID, types.MustParse("25.5"), "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", ip.Currency)

	_, err = f.svc.SetPrice(t.Context(), p.ID, item.ID, types.MustParse("-1"), "USD")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = f.svc.Open(t.Context(), p.ID)
	require.NoError(t, err)

	_, err = f.svc.SetPrice(t.Context(), p.ID, item.ID, types.MustParse("30"), "USD")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	locked, err := f.svc.LockedPrice(t.Context(), p.ID, item.ID)
	require.NoError(t, err)
	assert.True(t, locked.Locked)
	assert.Equal(t, "25.5", locked.Price.String())
}

func TestService_SetPrices(t *testing.T) {
	f := newFixture()
	p := f.createJanuary(t)
	rice := f.catalog.AddItem("RICE", "Rice", "kg")
	oil := f.catalog.AddItem("OIL", "Oil", "l")

	_, err := f.svc.SetPrices(t.Context(), p.ID, []PriceInput{
		{ItemID: rice.ID, Price: types.MustParse("25"), Currency: "USD"},
		{ItemID: id.New(), Price: types.MustParse("3"), Currency: "USD"},
	})
	assert.True(t, apperror.IsNotFound(err))
	prices, err := f.svc.ListPrices(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, prices, "an unknown item rejects the whole batch")

	out, err := f.svc.SetPrices(t.Context(), p.ID, []PriceInput{
		{ItemID: rice.ID, Price: types.MustParse("25.123456"), Currency: "usd"},
		{ItemID: oil.ID, Price: types.MustParse("4"), Currency: " eur "},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "25.1235", out[0].Price.String())
	assert.Equal(t, "EUR", out[1].Currency)

	_, err = f.svc.SetPrices(t.Context(), p.ID, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestService_Open(t *testing.T) {
	f := newFixture()
	p := f.createJanuary(t)

	opened, err := f.svc.Open(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, opened.Status)
	require.NotNil(t, opened.OpenedAt)
	assert.Equal(t, 1, f.locker.locks)
	assert.Equal(t, 1, f.locker.releases)

	transitions := f.published.OfType(events.TypePeriodTransition)
	require.Len(t, transitions, 1)
	payload := transitions[0].Payload.(events.PeriodTransition)
	assert.Equal(t, "DRAFT", payload.From)
	assert.Equal(t, "OPEN", payload.To)
}

func TestService_Open_RejectsSecondOpenPeriod(t *testing.T) {
	f := newFixture()
	jan := f.createJanuary(t)
	_, err := f.svc.Open(t.Context(), jan.ID)
	require.NoError(t, err)

	feb, err := f.svc.Create(t.Context(), CreateInput{
		Name: "February 2025", StartDate: date(2025, 2, 1), EndDate: date(2025, 2, 28),
		LocationIDs: []id.ID{f.kitchen.ID},
	})
	require.NoError(t, err)

	_, err = f.svc.Open(t.Context(), feb.ID)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
	assert.Equal(t, jan.ID.String(), appErr.Details["conflicting_id"])

	stored, _ := f.svc.Get(t.Context(), feb.ID)
	assert.Equal(t, StatusDraft, stored.Status)
}

func TestService_Open_RequiresLocations(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(t.Context(), CreateInput{
		Name: "Empty", StartDate: date(2025, 1, 1), EndDate: date(2025, 1, 31),
	})
	require.NoError(t, err)

	_, err = f.svc.Open(t.Context(), p.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	_, err = f.svc.AddLocations(t.Context(), p.ID, []id.ID{f.kitchen.ID})
	require.NoError(t, err)
	_, err = f.svc.Open(t.Context(), p.ID)
	assert.NoError(t, err)
}

func TestService_MarkLocationReady(t *testing.T) {
	f := newFixture()
	p := f.createJanuary(t)

	_, err := f.svc.MarkLocationReady(t.Context(), p.ID, f.kitchen.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition), "draft period")

	_, err = f.svc.Open(t.Context(), p.ID)
	require.NoError(t, err)
	f.stock[f.kitchen.ID] = types.MustParse("1234.567")

	l, err := f.svc.MarkLocationReady(t.Context(), p.ID, f.kitchen.ID)
	require.NoError(t, err)
	assert.Equal(t, LocationReady, l.Status)
	require.True(t, l.ClosingValue.Valid)
	assert.Equal(t, "1234.57", l.ClosingValue.Decimal.String())

	_, err = f.svc.MarkLocationReady(t.Context(), p.ID, f.kitchen.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	l, err = f.svc.MarkLocationOpen(t.Context(), p.ID, f.kitchen.ID)
	require.NoError(t, err)
	assert.Equal(t, LocationOpen, l.Status)
	assert.False(t, l.ClosingValue.Valid)
}

func TestService_RequestClose_RequiresAllReady(t *testing.T) {
	f := newFixture()
	p := f.createJanuary(t)
	_, err := f.svc.Open(t.Context(), p.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkLocationReady(t.Context(), p.ID, f.kitchen.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestClose(t.Context(), p.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	stored, _ := f.svc.Get(t.Context(), p.ID)
	assert.Equal(t, StatusOpen, stored.Status)
	assert.Empty(t, f.store.approvals)
}

func (f *fixture) openAndReady(t *testing.T) *Period {
	t.Helper()
	p := f.createJanuary(t)
	_, err := f.svc.Open(t.Context(), p.ID)
	require.NoError(t, err)
	for _, loc := range []id.ID{f.kitchen.ID, f.store2.ID} {
		_, err = f.svc.MarkLocationReady(t.Context(), p.ID, loc)
		require.NoError(t, err)
	}
	return p
}

func TestService_RequestClose(t *testing.T) {
	warning := ncr.LocationSummary{LocationID: id.New(), Count: 2, Total: types.MustParse("75.00")}
	f := newFixture(warning)
	p := f.openAndReady(t)

	req, err := f.svc.RequestClose(t.Context(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusPendingClose, req.Period.Status)
	assert.Equal(t, EntityPeriodClose, req.Approval.EntityType)
	assert.Equal(t, p.ID, req.Approval.EntityID)
	assert.Equal(t, ApprovalPending, req.Approval.Status)
	assert.True(t, req.Warnings.HasWarnings())
	assert.Equal(t, []ncr.LocationSummary{warning}, req.Warnings.OpenNCRs)

	_, err = f.svc.RequestClose(t.Context(), p.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestService_RequestClose_DuplicateApproval(t *testing.T) {
	f := newFixture()
	p := f.openAndReady(t)
	existing := newCloseApproval(p.ID, "someone", time.Now())
	f.store.approvals[existing.ID] = existing

	_, err := f.svc.RequestClose(t.Context(), p.ID)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
	assert.Equal(t, existing.ID.String(), appErr.Details["conflicting_id"])
}

func TestService_ResolveApproval(t *testing.T) {
	t.Run("approved closes", func(t *testing.T) {
		f := newFixture()
		p := f.openAndReady(t)
		req, err := f.svc.RequestClose(t.Context(), p.ID)
		require.NoError(t, err)

		closed, err := f.svc.ResolveApproval(t.Context(), req.Approval.ID, true, "ok")
		require.NoError(t, err)
		assert.Equal(t, StatusClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)
		assert.Equal(t, ApprovalApproved, f.store.approvals[req.Approval.ID].Status)

		_, err = f.svc.ResolveApproval(t.Context(), req.Approval.ID, true, "")
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
	})

	t.Run("rejected reopens", func(t *testing.T) {
		f := newFixture()
		p := f.openAndReady(t)
		req, err := f.svc.RequestClose(t.Context(), p.ID)
		require.NoError(t, err)

		reopened, err := f.svc.ResolveApproval(t.Context(), req.Approval.ID, false, "recount store")
		require.NoError(t, err)
		assert.Equal(t, StatusOpen, reopened.Status)
		assert.Equal(t, ApprovalRejected, f.store.approvals[req.Approval.ID].Status)
		assert.Equal(t, "recount store", f.store.approvals[req.Approval.ID].Comment)
	})

	t.Run("rejected while another period is open", func(t *testing.T) {
		f := newFixture()
		jan := f.openAndReady(t)
		req, err := f.svc.RequestClose(t.Context(), jan.ID)
		require.NoError(t, err)

		feb, err := f.svc.Create(t.Context(), CreateInput{
			Name: "February 2025", StartDate: date(2025, 2, 1), EndDate: date(2025, 2, 28),
			LocationIDs: []id.ID{f.kitchen.ID},
		})
		require.NoError(t, err)
		_, err = f.svc.Open(t.Context(), feb.ID)
		require.NoError(t, err)

		_, err = f.svc.ResolveApproval(t.Context(), req.Approval.ID, false, "recount store")
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeConflict, appErr.Code)
		assert.Equal(t, feb.ID.String(), appErr.Details["conflicting_id"])

		stored, _ := f.svc.Get(t.Context(), jan.ID)
		assert.Equal(t, StatusPendingClose, stored.Status)
		assert.Equal(t, ApprovalPending, f.store.approvals[req.Approval.ID].Status)

		open := 0
		for _, p := range f.store.periods {
			if p.Status == StatusOpen {
				open++
			}
		}
		assert.Equal(t, 1, open)
	})
}

func TestService_RollForward(t *testing.T) {
	f := newFixture()
	item := f.catalog.AddItem("RICE", "Rice", "kg")
	p := f.createJanuary(t)
	_, err := f.svc.SetPrice(t.Context(), p.ID, item.ID, types.MustParse("25.50"), "USD")
	require.NoError(t, err)

	f.stock[f.kitchen.ID] = types.MustParse("137000")
	f.stock[f.store2.ID] = types.MustParse("500.5")
	_, err = f.svc.Open(t.Context(), p.ID)
	require.NoError(t, err)
	for _, loc := range []id.ID{f.kitchen.ID, f.store2.ID} {
		_, err = f.svc.MarkLocationReady(t.Context(), p.ID, loc)
		require.NoError(t, err)
	}

	_, err = f.svc.RollForward(t.Context(), p.ID, RollForwardOptions{})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition), "period not closed yet")

	req, err := f.svc.RequestClose(t.Context(), p.ID)
	require.NoError(t, err)
	_, err = f.svc.ResolveApproval(t.Context(), req.Approval.ID, true, "")
	require.NoError(t, err)

	next, err := f.svc.RollForward(t.Context(), p.ID, RollForwardOptions{CopyPrices: true})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, next.Status)
	assert.Equal(t, date(2025, 2, 1), next.StartDate)
	assert.Equal(t, date(2025, 2, 28), next.EndDate)
	assert.Equal(t, "February 2025", next.Name)
	require.NotNil(t, next.RolledFromID)
	assert.Equal(t, p.ID, *next.RolledFromID)

	kitchen, err := f.svc.GetLocation(t.Context(), next.ID, f.kitchen.ID)
	require.NoError(t, err)
	assert.Equal(t, "137000", kitchen.OpeningValue.String())
	assert.Equal(t, LocationOpen, kitchen.Status)
	assert.False(t, kitchen.ClosingValue.Valid)

	prices, err := f.svc.ListPrices(t.Context(), next.ID)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.False(t, prices[0].Locked)
	assert.Equal(t, "25.5", prices[0].Price.String())

	_, err = f.svc.RollForward(t.Context(), p.ID, RollForwardOptions{})
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict), "february already exists")
}
