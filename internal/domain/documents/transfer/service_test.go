package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/registers/stock"
)

type memoryRepo struct {
	docs  map[id.ID]*Transfer
	lines map[id.ID][]Line
}

func (r *memoryRepo) Create(_ context.Context, doc *Transfer) error {
	c := *doc
	c.Lines = nil
	r.docs[doc.ID] = &c
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, docID id.ID) (*Transfer, error) {
	d, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("Transfer", docID)
	}
	c := *d
	return &c, nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, docID id.ID) (*Transfer, error) {
	return r.GetByID(ctx, docID)
}

func (r *memoryRepo) Update(ctx context.Context, doc *Transfer) error {
	return r.Create(ctx, doc)
}

func (r *memoryRepo) GetLines(_ context.Context, docID id.ID) ([]Line, error) {
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *memoryRepo) SaveLines(_ context.Context, docID id.ID, lines []Line) error {
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

type openPeriod struct{ p *period.Period }

func (o openPeriod) ForPosting(_ context.Context, _ id.ID, date time.Time) (*period.Period, error) {
	if err := o.p.RequireOpenOn(date); err != nil {
		return nil, err
	}
	return o.p, nil
}

type fixture struct {
	svc    *Service
	repo   *memoryRepo
	ledger *stock.Memory
	stock  *stock.Service
	period *period.Period
	store  *catalog.Location
	bar    *catalog.Location
	rice   *catalog.Item
}

func newFixture() *fixture {
	cat := catalog.NewMemory()
	f := &fixture{
		repo:   &memoryRepo{docs: map[id.ID]*Transfer{}, lines: map[id.ID][]Line{}},
		ledger: stock.NewMemory(),
		store:  cat.AddLocation("S1", "Central Store", catalog.LocationStore),
		bar:    cat.AddLocation("K2", "Bar Kitchen", catalog.LocationKitchen),
		rice:   cat.AddItem("RICE", "Rice", "kg"),
		period: &period.Period{
			BaseEntity: entity.NewBaseEntity(time.Now()),
			Name:       "January 2025",
			StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			Status:     period.StatusOpen,
		},
	}
	f.stock = stock.NewService(f.ledger)
	f.svc = NewService(f.repo, openPeriod{f.period}, f.stock, cat, &numerator.MockGenerator{}, &tx.MockManager{})
	return f
}

func (f *fixture) create(t *testing.T, qty string) *Transfer {
	t.Helper()
	doc := NewTransfer(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), f.period.ID, f.store.ID, f.bar.ID)
	doc.AddLine(f.rice.ID, types.MustParse(qty))
	created, err := f.svc.Create(t.Context(), doc)
	require.NoError(t, err)
	return created
}

func TestCreate_Pending(t *testing.T) {
	f := newFixture()
	doc := f.create(t, "10")

	assert.Equal(t, "TRF-2025-00001", doc.Number)
	assert.Equal(t, StatusPending, doc.Status)
	assert.False(t, doc.Posted)
	assert.Empty(t, f.ledger.Movements)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()

	same := NewTransfer(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), f.period.ID, f.store.ID, f.store.ID)
	same.AddLine(f.rice.ID, types.MustParse("1"))
	_, err := f.svc.Create(t.Context(), same)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "toLocationId", appErr.Field())

	f.period.Status = period.StatusDraft
	doc := NewTransfer(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), f.period.ID, f.store.ID, f.bar.ID)
	doc.AddLine(f.rice.ID, types.MustParse("1"))
	_, err = f.svc.Create(t.Context(), doc)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestApprove_MovesStockAtSourceWAC(t *testing.T) {
	f := newFixture()
	f.ledger.Seed(f.store.ID, f.rice.ID, types.MustParse("100"), types.MustParse("2.5"))
	f.ledger.Seed(f.bar.ID, f.rice.ID, types.MustParse("10"), types.MustParse("3.6"))
	doc := f.create(t, "40")

	ctx := appctx.WithActor(t.Context(), &appctx.Actor{UserID: "chef"})
	approved, err := f.svc.Approve(ctx, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, approved.Status)
	assert.True(t, approved.Posted)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "chef", *approved.ApprovedBy)
	assert.Equal(t, "2.5", approved.Lines[0].WACAtTransfer.String())
	assert.Equal(t, "100", approved.TotalValue.String())

	src, err := f.stock.Balance(t.Context(), f.store.ID, f.rice.ID)
	require.NoError(t, err)
	assert.Equal(t, "60", src.OnHand.String())
	assert.Equal(t, "2.5", src.WAC.String())

	// (10*3.6 + 40*2.5) / 50 = 2.72
	dst, err := f.stock.Balance(t.Context(), f.bar.ID, f.rice.ID)
	require.NoError(t, err)
	assert.Equal(t, "50", dst.OnHand.String())
	assert.Equal(t, "2.72", dst.WAC.String())

	moves, err := f.stock.Movements(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Len(t, moves, 2)

	_, err = f.svc.Approve(t.Context(), doc.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestApprove_InsufficientStock(t *testing.T) {
	f := newFixture()
	f.ledger.Seed(f.store.ID, f.rice.ID, types.MustParse("5"), types.MustParse("2"))
	doc := f.create(t, "6")

	_, err := f.svc.Approve(t.Context(), doc.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
	assert.Empty(t, f.ledger.Movements)

	stored, err := f.svc.GetByID(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestReject(t *testing.T) {
	f := newFixture()
	f.ledger.Seed(f.store.ID, f.rice.ID, types.MustParse("100"), types.MustParse("2.5"))
	doc := f.create(t, "40")

	rejected, err := f.svc.Reject(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Empty(t, f.ledger.Movements)

	_, err = f.svc.Approve(t.Context(), doc.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}
