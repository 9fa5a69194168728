package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	remittanceSheet = "Remittance"
	periodSheet     = "Period"
	// builtin format 4 is "#,##0.00"
	pesoNumFmt = 4
)

// RemittanceXLSX renders the report as a workbook with the employee lines on
// the Remittance sheet and the period header on a second sheet. Amounts are
// stored as numbers so agency templates can sum them.
func RemittanceXLSX(report RemittanceReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", remittanceSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: pesoNumFmt})
	if err != nil {
		return nil, err
	}

	header := []any{"Employee ID", "Employee", "SSS", "PhilHealth", "Pag-IBIG", "Withholding Tax"}
	if err := setRow(f, remittanceSheet, 1, header); err != nil {
		return nil, err
	}
	for i, line := range report.Lines {
		row := []any{
			line.EmployeeID,
			line.EmployeeName,
			line.SSS.InexactFloat64(),
			line.PhilHealth.InexactFloat64(),
			line.PagIbig.InexactFloat64(),
			line.WithholdingTax.InexactFloat64(),
		}
		if err := setRow(f, remittanceSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	totalRow := len(report.Lines) + 2
	t := report.Totals
	totals := []any{"TOTAL", "", t.SSS.InexactFloat64(), t.PhilHealth.InexactFloat64(), t.PagIbig.InexactFloat64(), t.WithholdingTax.InexactFloat64()}
	if err := setRow(f, remittanceSheet, totalRow, totals); err != nil {
		return nil, err
	}

	if err := f.SetColStyle(remittanceSheet, "C:F", money); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(remittanceSheet, 1, 1, bold); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(remittanceSheet, totalRow, totalRow, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(remittanceSheet, "A", "B", 38); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(remittanceSheet, "C", "F", 16); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(periodSheet); err != nil {
		return nil, err
	}
	p := report.Period
	for i, kv := range [][]any{
		{"Period ID", p.ID},
		{"Name", p.Name},
		{"Start", p.StartDate.Format("2006-01-02")},
		{"End", p.EndDate.Format("2006-01-02")},
		{"Status", p.Status},
		{"Employees", t.Employees},
		{"Total remittance", t.Total.InexactFloat64()},
	} {
		if err := setRow(f, periodSheet, i+1, kv); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write remittance workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
