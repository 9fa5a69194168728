package reports

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RemittanceLine is one employee's statutory amounts for a period, as owed to
// SSS, PhilHealth, Pag-IBIG and the BIR.
type RemittanceLine struct {
	EmployeeID     string          `json:"employeeId"`
	EmployeeName   string          `json:"employeeName"`
	SSS            decimal.Decimal `json:"sssContribution"`
	PhilHealth     decimal.Decimal `json:"philHealthContribution"`
	PagIbig        decimal.Decimal `json:"pagIbigContribution"`
	WithholdingTax decimal.Decimal `json:"withholdingTax"`
}

type RemittanceTotals struct {
	Employees      int             `json:"employees"`
	SSS            decimal.Decimal `json:"sssContribution"`
	PhilHealth     decimal.Decimal `json:"philHealthContribution"`
	PagIbig        decimal.Decimal `json:"pagIbigContribution"`
	WithholdingTax decimal.Decimal `json:"withholdingTax"`
	Total          decimal.Decimal `json:"total"`
}

type PeriodHeader struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    string    `json:"status"`
}

type RemittanceReport struct {
	Period PeriodHeader     `json:"period"`
	Lines  []RemittanceLine `json:"lines"`
	Totals RemittanceTotals `json:"totals"`
}

type Dashboard struct {
	ActiveEmployees int            `json:"activeEmployees"`
	PeriodsByStatus map[string]int `json:"periodsByStatus"`
	Payslips        int            `json:"payslips"`
	LastRun         *JobRun        `json:"lastRun,omitempty"`
}

type JobRunFilter struct {
	JobType     string
	Status      string
	StartedFrom *time.Time
	StartedTo   *time.Time
}

type JobRun struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}
