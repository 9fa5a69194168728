package reports

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrPeriodNotFound = errors.New("payroll period not found")
	ErrPeriodNotReady = errors.New("payroll period has no reviewed results")
)

// SumRemittance totals the lines per agency. Lines are already rounded to
// centavos, so the sums are exact.
func SumRemittance(lines []RemittanceLine) RemittanceTotals {
	totals := RemittanceTotals{
		Employees:      len(lines),
		SSS:            decimal.Zero,
		PhilHealth:     decimal.Zero,
		PagIbig:        decimal.Zero,
		WithholdingTax: decimal.Zero,
	}
	for _, line := range lines {
		totals.SSS = totals.SSS.Add(line.SSS)
		totals.PhilHealth = totals.PhilHealth.Add(line.PhilHealth)
		totals.PagIbig = totals.PagIbig.Add(line.PagIbig)
		totals.WithholdingTax = totals.WithholdingTax.Add(line.WithholdingTax)
	}
	totals.Total = totals.SSS.Add(totals.PhilHealth).Add(totals.PagIbig).Add(totals.WithholdingTax)
	return totals
}

// RemittanceCSV flattens a report into rows with a trailing TOTAL row.
func RemittanceCSV(report RemittanceReport) [][]string {
	rows := [][]string{{"employee_id", "employee_name", "sss", "philhealth", "pagibig", "withholding_tax"}}
	for _, line := range report.Lines {
		rows = append(rows, []string{
			line.EmployeeID,
			line.EmployeeName,
			line.SSS.StringFixed(2),
			line.PhilHealth.StringFixed(2),
			line.PagIbig.StringFixed(2),
			line.WithholdingTax.StringFixed(2),
		})
	}
	t := report.Totals
	rows = append(rows, []string{"TOTAL", "", t.SSS.StringFixed(2), t.PhilHealth.StringFixed(2), t.PagIbig.StringFixed(2), t.WithholdingTax.StringFixed(2)})
	return rows
}
