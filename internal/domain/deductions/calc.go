package deductions

import "github.com/shopspring/decimal"

// CalculateAllDeductions computes the employee-side statutory contributions
// and the withholding tax for one month of salary.
func CalculateAllDeductions(monthlySalary decimal.Decimal) DeductionBreakdown {
	sss := CalculateSSS(monthlySalary)
	philHealth := CalculatePhilHealth(monthlySalary)
	pagIbig := CalculatePagIbig(monthlySalary)
	taxable := TaxableIncome(monthlySalary, sss, philHealth, pagIbig)
	return NewDeductionBreakdown(sss, philHealth, pagIbig, CalculateWithholdingTax(taxable))
}

// TaxableIncome is the monthly salary net of the three statutory
// contributions. It may be zero or negative for very low salaries.
func TaxableIncome(monthlySalary, sss, philHealth, pagIbig decimal.Decimal) decimal.Decimal {
	return nonNegative(monthlySalary).Sub(sss).Sub(philHealth).Sub(pagIbig)
}

// HourlyRate derives the regular hourly rate from a monthly salary.
func HourlyRate(monthlySalary decimal.Decimal) decimal.Decimal {
	return nonNegative(monthlySalary).Div(workingDaysPerMonth).Div(hoursPerDay)
}

// CalculatePayroll composes one employee's gross-to-net pay for a single pay
// period. Contributions are always taken on the full monthly salary; basic pay
// and withholding tax are prorated for semi-monthly cycles.
func CalculatePayroll(in PayrollInput) PayrollCalculationResult {
	salary := nonNegative(in.MonthlySalary)
	overtimeHours := nonNegative(in.OvertimeHours)
	allowances := roundMoney(nonNegative(in.Allowances))

	period := in.Period
	if !period.Valid() {
		period = PayPeriodMonthly
	}
	factor := decimal.NewFromInt(1)
	if period == PayPeriodSemiMonthly {
		factor = semiMonthlyFactor
	}

	basicPay := roundMoney(salary.Mul(factor))
	overtimePay := roundMoney(HourlyRate(salary).Mul(overtimePremium).Mul(overtimeHours))
	grossPay := basicPay.Add(overtimePay).Add(allowances)

	sss := CalculateSSS(salary)
	philHealth := CalculatePhilHealth(salary)
	pagIbig := CalculatePagIbig(salary)
	tax := withholdingTax(TaxableIncome(salary, sss, philHealth, pagIbig)).Mul(factor)

	breakdown := NewDeductionBreakdown(sss, philHealth, pagIbig, tax)
	return PayrollCalculationResult{
		PayPeriod:   period,
		BasicPay:    basicPay,
		OvertimePay: overtimePay,
		Allowances:  allowances,
		GrossPay:    grossPay,
		Deductions:  breakdown,
		NetPay:      grossPay.Sub(breakdown.TotalDeductions),
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
