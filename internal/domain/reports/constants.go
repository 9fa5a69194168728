package reports

// Period statuses as stored in payroll_periods.status.
const (
	PeriodStatusDraft     = "draft"
	PeriodStatusFinalized = "finalized"
)

const EmployeeStatusActive = "active"
