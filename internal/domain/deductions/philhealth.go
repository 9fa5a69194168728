package deductions

import "github.com/shopspring/decimal"

// CalculatePhilHealth returns the employee half of the PhilHealth premium,
// clamped to the statutory floor and ceiling.
func CalculatePhilHealth(monthlySalary decimal.Decimal) decimal.Decimal {
	if !monthlySalary.IsPositive() {
		return decimal.Zero
	}
	share := monthlySalary.Mul(philHealthPremiumRate).Mul(philHealthEmployeeShare)
	share = decimal.Max(share, philHealthMinEmployee)
	share = decimal.Min(share, philHealthMaxEmployee)
	return roundMoney(share)
}
