package payroll

import "errors"

var (
	ErrPeriodNotFound       = errors.New("payroll period not found")
	ErrPeriodFinalized      = errors.New("payroll period already finalized")
	ErrInvalidPeriodDates   = errors.New("payroll period end date must not be before start date")
	ErrFinalizeInvalidState = errors.New("payroll period must be reviewed before finalize")
	ErrFinalizeNoResults    = errors.New("payroll period has no payroll results")
	ErrReopenInvalidState   = errors.New("only reviewed or finalized periods can be reopened")
	ErrReopenReasonRequired = errors.New("reopen reason required")
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrInvalidSalary        = errors.New("employee monthly salary must not be negative")
	ErrPayslipNotFound      = errors.New("payslip not found")
	ErrPayslipUnavailable   = errors.New("payslip file not available")
	ErrJobNotFound          = errors.New("job run not found")
)
