package deductions

import "github.com/shopspring/decimal"

type PayPeriod string

const (
	PayPeriodMonthly     PayPeriod = "monthly"
	PayPeriodSemiMonthly PayPeriod = "semi-monthly"
)

func (p PayPeriod) Valid() bool {
	return p == PayPeriodMonthly || p == PayPeriodSemiMonthly
}

// Statutory figures in pesos. Update these when SSS, PhilHealth, HDMF or BIR
// publish a new schedule.
var (
	sssFirstUpperBound  = decimal.NewFromInt(4250)
	sssLastUpperBound   = decimal.NewFromInt(29750)
	sssBandWidth        = decimal.NewFromInt(500)
	sssMinContribution  = decimal.NewFromInt(180)
	sssContributionStep = decimal.RequireFromString("22.50")
	sssMaxContribution  = decimal.NewFromInt(1350)

	philHealthPremiumRate   = decimal.RequireFromString("0.05")
	philHealthEmployeeShare = decimal.RequireFromString("0.50")
	philHealthMinEmployee   = decimal.NewFromInt(250)
	philHealthMaxEmployee   = decimal.NewFromInt(2250)

	pagIbigLowTierCeiling = decimal.NewFromInt(1500)
	pagIbigLowRate        = decimal.RequireFromString("0.01")
	pagIbigHighRate       = decimal.RequireFromString("0.02")
	pagIbigMaxEmployee    = decimal.NewFromInt(100)

	workingDaysPerMonth = decimal.NewFromInt(22)
	hoursPerDay         = decimal.NewFromInt(8)
	overtimePremium     = decimal.RequireFromString("1.25")

	semiMonthlyFactor       = decimal.RequireFromString("0.5")
	moneyPlaces       int32 = 2
)
