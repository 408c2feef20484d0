package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/costing"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/ncr"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/domain/variance"
)

type memoryRepo struct {
	docs  map[id.ID]*Delivery
	lines map[id.ID][]Line
}

func (r *memoryRepo) Create(_ context.Context, doc *Delivery) error {
	c := *doc
	c.Lines = nil
	r.docs[doc.ID] = &c
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, docID id.ID) (*Delivery, error) {
	d, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("Delivery", docID)
	}
	c := *d
	return &c, nil
}

func (r *memoryRepo) GetByNumber(_ context.Context, number string) (*Delivery, error) {
	for _, d := range r.docs {
		if d.Number == number {
			c := *d
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("Delivery", number)
}

func (r *memoryRepo) GetLines(_ context.Context, docID id.ID) ([]Line, error) {
	return r.lines[docID], nil
}

func (r *memoryRepo) SaveLines(_ context.Context, docID id.ID, lines []Line) error {
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

type fakePeriods struct {
	p      *period.Period
	prices map[id.ID]types.Money
}

func (f *fakePeriods) ForPosting(_ context.Context, _ id.ID, date time.Time) (*period.Period, error) {
	if err := f.p.RequireOpenOn(date); err != nil {
		return nil, err
	}
	return f.p, nil
}

func (f *fakePeriods) LockedPrice(_ context.Context, periodID, itemID id.ID) (*period.ItemPrice, error) {
	price, ok := f.prices[itemID]
	if !ok {
		return nil, nil
	}
	return &period.ItemPrice{PeriodID: periodID, ItemID: itemID, Price: price, Locked: true}, nil
}

type ledgerRow struct {
	qty types.Quantity
	wac types.Money
}

type fakeLedger map[id.ID]ledgerRow

func (l fakeLedger) Receive(_ context.Context, _ stock.Source, _, itemID id.ID, qty types.Quantity, unitCost types.Money) (costing.Receipt, error) {
	row := l[itemID]
	if row.qty.IsZero() {
		row = ledgerRow{qty: types.Zero(), wac: types.Zero()}
	}
	r, err := costing.CalculateWAC(row.qty, row.wac, qty, unitCost)
	if err != nil {
		return r, err
	}
	l[itemID] = ledgerRow{qty: r.NewQuantity, wac: r.NewWAC}
	return r, nil
}

type fakeNCRs struct {
	numbers *numerator.MockGenerator
	inputs  []ncr.VarianceInput
}

func (f *fakeNCRs) CreateForVariance(ctx context.Context, in ncr.VarianceInput) (*ncr.NCR, error) {
	f.inputs = append(f.inputs, in)
	number, err := f.numbers.GetNextNumber(ctx, numerator.NCRConfig(), time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, err
	}
	return &ncr.NCR{Number: number, Value: in.VarianceAmount.Abs(), Status: ncr.StatusOpen, Type: ncr.TypePriceVariance}, nil
}

type fixture struct {
	svc       *Service
	repo      *memoryRepo
	periods   *fakePeriods
	ledger    fakeLedger
	ncrs      *fakeNCRs
	published *events.Recorder
	tx        *tx.MockManager
	catalog   *catalog.Memory
	rice      *catalog.Item
	oil       *catalog.Item
	kitchen   *catalog.Location
}

func newFixture(cfg *variance.Config) *fixture {
	f := &fixture{
		repo:      &memoryRepo{docs: map[id.ID]*Delivery{}, lines: map[id.ID][]Line{}},
		ledger:    fakeLedger{},
		ncrs:      &fakeNCRs{numbers: &numerator.MockGenerator{}},
		published: &events.Recorder{},
		tx:        &tx.MockManager{},
		catalog:   catalog.NewMemory(),
	}
	f.rice = f.catalog.AddItem("RICE", "Rice", "kg")
	f.oil = f.catalog.AddItem("OIL", "Sunflower Oil", "l")
	f.kitchen = f.catalog.AddLocation("K1", "Main Kitchen", catalog.LocationKitchen)
	f.periods = &fakePeriods{
		p: &period.Period{
			BaseEntity: entity.NewBaseEntity(time.Now()),
			Name:       "January 2025",
			StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			Status:     period.StatusOpen,
		},
		prices: map[id.ID]types.Money{f.rice.ID: types.MustParse("25.50")},
	}
	f.svc = NewService(Dependencies{
		Repo:      f.repo,
		Periods:   f.periods,
		Ledger:    f.ledger,
		NCRs:      f.ncrs,
		Catalog:   f.catalog,
		Numerator: &numerator.MockGenerator{},
		TxManager: f.tx,
		Publisher: f.published,
		Variance:  cfg,
	})
	f.svc.now = func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) newDelivery() *Delivery {
	d := NewDelivery(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), f.periods.p.ID, f.kitchen.ID)
	d.Date = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	return d
}

func TestPost_CreatesNCRForVariance(t *testing.T) {
	f := newFixture(nil)
	d := f.newDelivery()
	d.AddLine(f.rice.ID, types.MustParse("100"), types.MustParse("26.00"))

	res, err := f.svc.Post(t.Context(), d)
	require.NoError(t, err)

	assert.Equal(t, "DLV-2025-00001", res.Delivery.Number)
	assert.True(t, res.Delivery.Posted)
	assert.Equal(t, "2600", res.Delivery.TotalValue.String())

	line := f.repo.lines[d.ID][0]
	require.True(t, line.PeriodPrice.Valid)
	assert.Equal(t, "25.5", line.PeriodPrice.Decimal.String())
	assert.Equal(t, "26", line.UnitPrice.String())
	assert.Equal(t, "26", line.WACAfter.String())

	require.Len(t, res.Variances, 1)
	v := res.Variances[0].Result
	assert.Equal(t, "0.5", v.Variance.String())
	assert.Equal(t, "1.96", v.VariancePercent.String())
	assert.Equal(t, "50", v.VarianceAmount.String())
	assert.Equal(t, "NCR-2025-001", res.Variances[0].NCRNo)

	require.Len(t, f.ncrs.inputs, 1)
	in := f.ncrs.inputs[0]
	assert.Equal(t, d.ID, in.DeliveryID)
	assert.Equal(t, line.LineID, in.DeliveryLineID)
	assert.Equal(t, "Main Kitchen", in.LocationName)
	assert.Contains(t, in.Reason, "Rice (RICE)")
	assert.Contains(t, in.Reason, "100 kg")

	posted := f.published.OfType(events.TypeDeliveryPosted)
	require.Len(t, posted, 1)
	assert.Equal(t, []string{"NCR-2025-001"}, posted[0].Payload.(events.DeliveryPosted).NCRNumbers)
	assert.Equal(t, 1, f.tx.Calls)
}

func TestPost_NoVarianceAndMissingPrice(t *testing.T) {
	f := newFixture(nil)
	d := f.newDelivery()
	d.AddLine(f.rice.ID, types.MustParse("10"), types.MustParse("25.50"))
	d.AddLine(f.oil.ID, types.MustParse("4"), types.MustParse("3.10"))

	res, err := f.svc.Post(t.Context(), d)
	require.NoError(t, err)

	assert.Empty(t, res.NCRs)
	require.Len(t, res.Variances, 1, "oil has no locked price")
	assert.False(t, res.Variances[0].Result.HasVariance)
	assert.False(t, f.repo.lines[d.ID][1].PeriodPrice.Valid)
	assert.Equal(t, "267.4", res.Delivery.TotalValue.String())
}

func TestPost_ThresholdSuppressesSmallVariance(t *testing.T) {
	pct := types.MustParse("5")
	f := newFixture(&variance.Config{ThresholdPercent: &pct})
	d := f.newDelivery()
	d.AddLine(f.rice.ID, types.MustParse("100"), types.MustParse("26.00"))

	res, err := f.svc.Post(t.Context(), d)
	require.NoError(t, err)
	assert.Empty(t, res.NCRs)
	assert.True(t, res.Variances[0].Result.HasVariance)
	assert.False(t, res.Variances[0].Result.ExceedsThreshold)
}

func TestPost_UpdatesWACAcrossLines(t *testing.T) {
	f := newFixture(nil)
	f.ledger[f.oil.ID] = ledgerRow{qty: types.MustParse("100"), wac: types.MustParse("10")}
	d := f.newDelivery()
	d.AddLine(f.oil.ID, types.MustParse("50"), types.MustParse("12"))

	_, err := f.svc.Post(t.Context(), d)
	require.NoError(t, err)

	assert.Equal(t, "10.6667", f.ledger[f.oil.ID].wac.String())
	assert.Equal(t, "10.6667", f.repo.lines[d.ID][0].WACAfter.String())
}

func TestPost_Rejections(t *testing.T) {
	t.Run("period not open", func(t *testing.T) {
		f := newFixture(nil)
		f.periods.p.Status = period.StatusPendingClose
		d := f.newDelivery()
		d.AddLine(f.rice.ID, types.MustParse("1"), types.MustParse("1"))

		_, err := f.svc.Post(t.Context(), d)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
		assert.Empty(t, f.repo.docs)
		assert.Empty(t, f.ledger)
	})

	t.Run("date outside period", func(t *testing.T) {
		f := newFixture(nil)
		d := f.newDelivery()
		d.Date = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		d.AddLine(f.rice.ID, types.MustParse("1"), types.MustParse("1"))

		_, err := f.svc.Post(t.Context(), d)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "date", appErr.Field())
	})

	t.Run("inactive item", func(t *testing.T) {
		f := newFixture(nil)
		f.oil.Active = false
		d := f.newDelivery()
		d.AddLine(f.oil.ID, types.MustParse("1"), types.MustParse("1"))

		_, err := f.svc.Post(t.Context(), d)
		assert.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))
		assert.Zero(t, f.tx.Calls)
	})

	t.Run("invalid lines", func(t *testing.T) {
		f := newFixture(nil)
		d := f.newDelivery()
		_, err := f.svc.Post(t.Context(), d)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

		d.AddLine(f.rice.ID, types.MustParse("0"), types.MustParse("1"))
		_, err = f.svc.Post(t.Context(), d)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "lines.quantity", appErr.Field())
		assert.Equal(t, 1, appErr.Details["lineNo"])
	})

	t.Run("already posted", func(t *testing.T) {
		f := newFixture(nil)
		d := f.newDelivery()
		d.AddLine(f.rice.ID, types.MustParse("1"), types.MustParse("25.5"))
		_, err := f.svc.Post(t.Context(), d)
		require.NoError(t, err)

		_, err = f.svc.Post(t.Context(), d)
		assert.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))
	})
}

func TestGetByID(t *testing.T) {
	f := newFixture(nil)
	d := f.newDelivery()
	d.AddLine(f.rice.ID, types.MustParse("2"), types.MustParse("25.5"))
	_, err := f.svc.Post(t.Context(), d)
	require.NoError(t, err)

	got, err := f.svc.GetByID(t.Context(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Number, got.Number)
	assert.Len(t, got.Lines, 1)
}
