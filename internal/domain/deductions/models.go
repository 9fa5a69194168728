package deductions

import "github.com/shopspring/decimal"

type DeductionBreakdown struct {
	SSS             decimal.Decimal `json:"sssContribution"`
	PhilHealth      decimal.Decimal `json:"philHealthContribution"`
	PagIbig         decimal.Decimal `json:"pagIbigContribution"`
	WithholdingTax  decimal.Decimal `json:"withholdingTax"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
}

// NewDeductionBreakdown rounds each component and derives the total from the
// rounded values so that the payslip lines always add up.
func NewDeductionBreakdown(sss, philHealth, pagIbig, withholdingTax decimal.Decimal) DeductionBreakdown {
	b := DeductionBreakdown{
		SSS:            roundMoney(sss),
		PhilHealth:     roundMoney(philHealth),
		PagIbig:        roundMoney(pagIbig),
		WithholdingTax: roundMoney(withholdingTax),
	}
	b.TotalDeductions = b.Contributions().Add(b.WithholdingTax)
	return b
}

// Contributions is the statutory (non-tax) portion of the breakdown.
func (b DeductionBreakdown) Contributions() decimal.Decimal {
	return b.SSS.Add(b.PhilHealth).Add(b.PagIbig)
}

type PayrollInput struct {
	MonthlySalary decimal.Decimal
	OvertimeHours decimal.Decimal
	Allowances    decimal.Decimal
	Period        PayPeriod
}

type PayrollCalculationResult struct {
	PayPeriod   PayPeriod          `json:"payPeriod"`
	BasicPay    decimal.Decimal    `json:"basicPay"`
	OvertimePay decimal.Decimal    `json:"overtimePay"`
	Allowances  decimal.Decimal    `json:"allowances"`
	GrossPay    decimal.Decimal    `json:"grossPay"`
	Deductions  DeductionBreakdown `json:"deductions"`
	NetPay      decimal.Decimal    `json:"netPay"`
}

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}
