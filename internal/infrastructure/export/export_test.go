package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/reconciliation"
)

func sampleReconciliation() *reconciliation.Reconciliation {
	r := &reconciliation.Reconciliation{}
	r.OpeningStock = types.MustParse("1000")
	r.Receipts = types.MustParse("2600")
	r.TransfersIn = types.MustParse("100")
	r.TransfersOut = types.MustParse("50")
	r.ClosingStock = types.MustParse("1200")
	r.NCRLosses = types.MustParse("25.5")
	r.TotalAdjustments = types.MustParse("25.5")
	r.Consumption = types.MustParse("2475.5")
	r.Issues = types.MustParse("2400")
	r.TotalMandays = decimal.NewNullDecimal(types.MustParse("100"))
	r.MandayCost = decimal.NewNullDecimal(types.MustParse("24.76"))
	return r
}

func TestWriteReconciliations_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	err := WriteReconciliations(&buf, []ReconciliationSheet{
		{PeriodName: "January 2025", LocationCode: "MK", LocationName: "Main Kitchen", Record: sampleReconciliation()},
		{PeriodName: "January 2025", LocationCode: "mk", LocationName: "Mess Kitchen", Record: &reconciliation.Reconciliation{}},
		{PeriodName: "January 2025", LocationCode: "BAR/1", Record: &reconciliation.Reconciliation{}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"MK", "mk~2", "BAR-1"}, f.GetSheetList())

	get := func(cell string) string {
		v, err := f.GetCellValue("MK", cell, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "January 2025", get("B1"))
	assert.Equal(t, "MK Main Kitchen", get("B2"))
	assert.Equal(t, "Opening stock", get("A4"))
	assert.Equal(t, "1000", get("B4"))
	assert.Equal(t, "Consumption", get("A18"))
	assert.Equal(t, "2475.5", get("B18"))
	assert.Equal(t, "Issues difference", get("A20"))
	assert.Equal(t, "75.5", get("B20"))
	assert.Equal(t, "Manday cost", get("A22"))
	assert.Equal(t, "24.76", get("B22"))

	rows, err := f.GetRows("BAR-1")
	require.NoError(t, err)
	assert.Len(t, rows, 20, "no manday rows without mandays")
}

func TestWriteReconciliations_Empty(t *testing.T) {
	assert.Error(t, WriteReconciliations(&bytes.Buffer{}, nil))
}

func priceSheet(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParsePrices(t *testing.T) {
	t.Run("reads aliased headers and skips blank rows", func(t *testing.T) {
		buf := priceSheet(t,
			[]any{"Currency", "Item Code", "Unit Price"},
			[]any{"USD", "RICE", "25.50"},
			[]any{"", "", ""},
			[]any{"", "OIL", 12},
		)

		rows, err := ParsePrices(buf)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 2, rows[0].Row)
		assert.Equal(t, "RICE", rows[0].ItemCode)
		assert.Equal(t, "25.5", rows[0].Price.String())
		assert.Equal(t, "USD", rows[0].Currency)
		assert.Equal(t, "OIL", rows[1].ItemCode)
		assert.Equal(t, 4, rows[1].Row)
		assert.Equal(t, "12", rows[1].Price.String())
		assert.Empty(t, rows[1].Currency)
	})

	t.Run("missing price column", func(t *testing.T) {
		_, err := ParsePrices(priceSheet(t, []any{"code"}, []any{"RICE"}))
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "price", appErr.Field())
	})

	t.Run("negative price names the row", func(t *testing.T) {
		_, err := ParsePrices(priceSheet(t, []any{"code", "price"}, []any{"RICE", "1"}, []any{"OIL", "-2"}))
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "price", appErr.Field())
		assert.Equal(t, 3, appErr.Details["row"])
	})

	t.Run("not a spreadsheet", func(t *testing.T) {
		_, err := ParsePrices(bytes.NewBufferString("item_code,price\nRICE,1\n"))
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})
}
