// Package export renders ledger data to and from spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"stockledger/internal/domain/reconciliation"
)

// ReconciliationSheet is one reconciliation with the labels it is shown under.
type ReconciliationSheet struct {
	PeriodName   string
	LocationCode string
	LocationName string
	Record       *reconciliation.Reconciliation
}

type row struct {
	label string
	value decimal.Decimal
	blank bool
}

func rowsOf(r *reconciliation.Reconciliation) []row {
	rows := []row{
		{label: "Opening stock", value: r.OpeningStock},
		{label: "Receipts", value: r.Receipts},
		{label: "Transfers in", value: r.TransfersIn},
		{label: "Transfers out", value: r.TransfersOut},
		{label: "Closing stock", value: r.ClosingStock},
		{blank: true},
		{label: "Back charges", value: r.BackCharges},
		{label: "Credits", value: r.Credits},
		{label: "Condemnations", value: r.Condemnations},
		{label: "Other adjustments", value: r.OtherAdjustments},
		{label: "NCR credits", value: r.NCRCredits},
		{label: "NCR losses", value: r.NCRLosses},
		{label: "Total adjustments", value: r.TotalAdjustments},
		{blank: true},
		{label: "Consumption", value: r.Consumption},
		{label: "Issues", value: r.Issues},
		{label: "Issues difference", value: r.IssuesDifference()},
	}
	if r.TotalMandays.Valid {
		rows = append(rows,
			row{label: "Total mandays", value: r.TotalMandays.Decimal},
			row{label: "Manday cost", value: r.MandayCost.Decimal})
	}
	return rows
}

var sheetNameReplacer = strings.NewReplacer(":", "-", `\`, "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// sheetName makes a valid, unique worksheet name.
func sheetName(code string, used map[string]bool) string {
	base := sheetNameReplacer.Replace(strings.TrimSpace(code))
	if base == "" {
		base = "Location"
	}
	if len(base) > 28 {
		base = base[:28]
	}
	name := base
	for i := 2; used[strings.ToLower(name)]; i++ {
		name = fmt.Sprintf("%s~%d", base, i)
	}
	used[strings.ToLower(name)] = true
	return name
}

// WriteReconciliations writes one worksheet per reconciliation.
func WriteReconciliations(w io.Writer, sheets []ReconciliationSheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no reconciliations to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	used := make(map[string]bool, len(sheets))
	for i, s := range sheets {
		name := sheetName(s.LocationCode, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, s, bold, money); err != nil {
			return fmt.Errorf("write sheet %s: %w", name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, s ReconciliationSheet, bold, money int) error {
	header := [][2]string{
		{"Period", s.PeriodName},
		{"Location", strings.TrimSpace(s.LocationCode + " " + s.LocationName)},
	}
	for i, h := range header {
		if err := f.SetSheetRow(name, fmt.Sprintf("A%d", i+1), &[]any{h[0], h[1]}); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(name, "A1", "A2", bold); err != nil {
		return err
	}

	line := len(header) + 2
	for _, r := range rowsOf(s.Record) {
		if !r.blank {
			label, value := fmt.Sprintf("A%d", line), fmt.Sprintf("B%d", line)
			if err := f.SetCellStr(name, label, r.label); err != nil {
				return err
			}
			if err := f.SetCellFloat(name, value, r.value.InexactFloat64(), -1, 64); err != nil {
				return err
			}
			if err := f.SetCellStyle(name, value, value, money); err != nil {
				return err
			}
		}
		line++
	}
	return f.SetColWidth(name, "A", "A", 22)
}
