package payroll

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/deductions"
)

type Period struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Status      string     `json:"status"`
	FinalizedAt *time.Time `json:"finalizedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Input holds the per-period variable pay of one employee. Salary and pay
// frequency come from the employee record.
type Input struct {
	EmployeeID    string          `json:"employeeId"`
	OvertimeHours decimal.Decimal `json:"overtimeHours"`
	Allowances    decimal.Decimal `json:"allowances"`
}

type Employee struct {
	ID             string
	FullName       string
	Email          string
	MonthlySalary  decimal.Decimal
	PayPeriod      deductions.PayPeriod
	BankAccount    string
	BankAccountEnc []byte
}

type Result struct {
	PeriodID     string                              `json:"periodId"`
	EmployeeID   string                              `json:"employeeId"`
	EmployeeName string                              `json:"employeeName,omitempty"`
	Calculation  deductions.PayrollCalculationResult `json:"calculation"`
	Warnings     []string                            `json:"warnings"`
	CreatedAt    time.Time                           `json:"createdAt"`
}

type RunFailure struct {
	EmployeeID string `json:"employeeId"`
	Error      string `json:"error"`
}

type RunSummary struct {
	PeriodID  string         `json:"periodId"`
	Status    string         `json:"status"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Failures  []RunFailure   `json:"failures,omitempty"`
	Warnings  map[string]int `json:"warnings"`
	Duration  string         `json:"duration"`
}

type PeriodSummary struct {
	TotalGross      decimal.Decimal `json:"totalGross"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	TotalNet        decimal.Decimal `json:"totalNet"`
	EmployeeCount   int             `json:"employeeCount"`
	Warnings        map[string]int  `json:"warnings"`
}

type FinalizeSummary struct {
	PeriodID string `json:"periodId"`
	Status   string `json:"status"`
	Payslips int    `json:"payslips"`
	Failed   int    `json:"failed"`
}

type Payslip struct {
	ID         string          `json:"id"`
	PeriodID   string          `json:"periodId"`
	EmployeeID string          `json:"employeeId"`
	Gross      decimal.Decimal `json:"gross"`
	Deductions decimal.Decimal `json:"deductions"`
	Net        decimal.Decimal `json:"net"`
	FileURL    string          `json:"fileUrl,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type PayslipKey struct {
	ID         string
	EmployeeID string
}

type PayslipRef struct {
	ID         string
	PeriodID   string
	EmployeeID string
	FileURL    string
}

type PayslipPDFData struct {
	FullName  string
	Email     string
	StartDate time.Time
	EndDate   time.Time
	Result    deductions.PayrollCalculationResult
}

// PayslipFile is a decrypted payslip ready to be served.
type PayslipFile struct {
	Name    string
	Content []byte
}

type JobRun struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}
