package payroll

import "github.com/shopspring/decimal"

const (
	PeriodStatusDraft     = "draft"
	PeriodStatusReviewed  = "reviewed"
	PeriodStatusFinalized = "finalized"

	EmployeeStatusActive = "active"

	WarningMissingBank = "missing_bank_account"
	WarningNegativeNet = "negative_net"
	WarningNetVariance = "net_variance"

	ActionPeriodCreate  = "payroll.period.create"
	ActionInputsSave    = "payroll.inputs.save"
	ActionRun           = "payroll.run"
	ActionFinalize      = "payroll.finalize"
	ActionReopen        = "payroll.reopen"
	EntityPayrollPeriod = "payroll_period"

	defaultWorkers = 4
)

// netVarianceThreshold flags a net pay that moved more than half against the
// employee's previous result.
var netVarianceThreshold = decimal.New(5, -1)
