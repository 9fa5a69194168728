package deductions

import "github.com/shopspring/decimal"

// TaxBracket is one tier of the BIR monthly withholding table:
// tax = BaseTax + Rate * (income - Floor). The last tier is Open.
type TaxBracket struct {
	UpperBound decimal.Decimal `json:"upperBound"`
	Floor      decimal.Decimal `json:"floor"`
	BaseTax    decimal.Decimal `json:"baseTax"`
	Rate       decimal.Decimal `json:"rate"`
	Open       bool            `json:"open"`
}

var taxSchedule = []TaxBracket{
	{UpperBound: dec("20833"), Floor: decimal.Zero, BaseTax: decimal.Zero, Rate: decimal.Zero},
	{UpperBound: dec("33333"), Floor: dec("20833"), BaseTax: decimal.Zero, Rate: dec("0.15")},
	{UpperBound: dec("66667"), Floor: dec("33333"), BaseTax: dec("1875"), Rate: dec("0.20")},
	{UpperBound: dec("166667"), Floor: dec("66667"), BaseTax: dec("8541.67"), Rate: dec("0.25")},
	{UpperBound: dec("666667"), Floor: dec("166667"), BaseTax: dec("33541.67"), Rate: dec("0.30")},
	{Floor: dec("666667"), BaseTax: dec("183541.67"), Rate: dec("0.35"), Open: true},
}

// TaxSchedule returns a copy of the withholding tax table.
func TaxSchedule() []TaxBracket {
	out := make([]TaxBracket, len(taxSchedule))
	copy(out, taxSchedule)
	return out
}

// CalculateWithholdingTax returns the monthly withholding tax on taxable
// income (salary net of SSS, PhilHealth and Pag-IBIG).
func CalculateWithholdingTax(monthlyTaxableIncome decimal.Decimal) decimal.Decimal {
	return roundMoney(withholdingTax(monthlyTaxableIncome))
}

func withholdingTax(income decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	for _, bracket := range taxSchedule {
		if bracket.Open || income.LessThanOrEqual(bracket.UpperBound) {
			return bracket.BaseTax.Add(bracket.Rate.Mul(income.Sub(bracket.Floor)))
		}
	}
	return decimal.Zero
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}
