package deductions

import "github.com/shopspring/decimal"

// SSSBracket is one row of the SSS contribution schedule. A salary belongs to
// the first row whose UpperBound it is strictly below. The final row is Open
// and catches everything at or above the cap.
type SSSBracket struct {
	UpperBound   decimal.Decimal `json:"upperBound"`
	Contribution decimal.Decimal `json:"contribution"`
	Open         bool            `json:"open"`
}

var sssSchedule = buildSSSSchedule()

func buildSSSSchedule() []SSSBracket {
	var rows []SSSBracket
	contribution := sssMinContribution
	for upper := sssFirstUpperBound; upper.LessThanOrEqual(sssLastUpperBound); upper = upper.Add(sssBandWidth) {
		rows = append(rows, SSSBracket{UpperBound: upper, Contribution: contribution})
		contribution = contribution.Add(sssContributionStep)
	}
	return append(rows, SSSBracket{Contribution: sssMaxContribution, Open: true})
}

// SSSSchedule returns a copy of the employee-share contribution table.
func SSSSchedule() []SSSBracket {
	out := make([]SSSBracket, len(sssSchedule))
	copy(out, sssSchedule)
	return out
}

// CalculateSSS returns the employee's monthly SSS contribution.
func CalculateSSS(monthlySalary decimal.Decimal) decimal.Decimal {
	if !monthlySalary.IsPositive() {
		return decimal.Zero
	}
	for _, row := range sssSchedule {
		if row.Open || monthlySalary.LessThan(row.UpperBound) {
			return roundMoney(row.Contribution)
		}
	}
	return roundMoney(sssMaxContribution)
}
