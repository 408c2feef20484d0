package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
)

// PriceRow is one expected price read from a sheet.
type PriceRow struct {
	Row      int
	ItemCode string
	Price    decimal.Decimal
	Currency string
}

var priceHeaders = map[string]string{
	"item_code":  "item_code",
	"item code":  "item_code",
	"code":       "item_code",
	"item":       "item_code",
	"price":      "price",
	"unit_price": "price",
	"unit price": "price",
	"currency":   "currency",
}

// ParsePrices reads expected item prices from the first sheet.
// The first row names the columns; item code and price are required.
func ParsePrices(r io.Reader) ([]PriceRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.NewValidation("file is not a readable spreadsheet").WithCause(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperror.NewValidation("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NewValidation("spreadsheet is empty")
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		if key, ok := priceHeaders[strings.ToLower(strings.TrimSpace(h))]; ok {
			cols[key] = i
		}
	}
	for _, required := range []string{"item_code", "price"} {
		if _, ok := cols[required]; !ok {
			return nil, apperror.NewFieldValidation(required, "column is missing")
		}
	}

	cell := func(row []string, key string) string {
		i, ok := cols[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]PriceRow, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rowNo := n + 2
		code := cell(row, "item_code")
		if code == "" && cell(row, "price") == "" {
			continue
		}
		if code == "" {
			return nil, apperror.NewFieldValidation("item_code", "is required").WithDetail("row", rowNo)
		}
		price, err := types.Parse("price", cell(row, "price"))
		if err != nil {
			return nil, withRow(err, rowNo)
		}
		if err := types.RequireNonNegative("price", price); err != nil {
			return nil, withRow(err, rowNo)
		}
		out = append(out, PriceRow{Row: rowNo, ItemCode: code, Price: price, Currency: cell(row, "currency")})
	}
	return out, nil
}

func withRow(err error, row int) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.WithDetail("row", row)
	}
	return err
}
