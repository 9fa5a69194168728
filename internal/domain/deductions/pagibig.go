package deductions

import "github.com/shopspring/decimal"

// CalculatePagIbig returns the employee's HDMF contribution.
func CalculatePagIbig(monthlySalary decimal.Decimal) decimal.Decimal {
	if !monthlySalary.IsPositive() {
		return decimal.Zero
	}
	if monthlySalary.LessThanOrEqual(pagIbigLowTierCeiling) {
		return roundMoney(monthlySalary.Mul(pagIbigLowRate))
	}
	return roundMoney(decimal.Min(monthlySalary.Mul(pagIbigHighRate), pagIbigMaxEmployee))
}
