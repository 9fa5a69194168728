package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type StoreAPI interface {
	CountPeriods(ctx context.Context) (int, error)
	ListPeriods(ctx context.Context, limit, offset int) ([]Period, error)
	CreatePeriod(ctx context.Context, name string, startDate, endDate time.Time) (Period, error)
	GetPeriod(ctx context.Context, periodID string) (Period, error)
	SaveRunResults(ctx context.Context, periodID string, results []Result) error
	FinalizeWithPayslips(ctx context.Context, periodID string) error
	ResetPeriod(ctx context.Context, periodID string) error

	EmployeeExists(ctx context.Context, employeeID string) (bool, error)
	ListActiveEmployees(ctx context.Context) ([]Employee, error)
	UpsertInput(ctx context.Context, periodID string, input Input) error
	ListInputs(ctx context.Context, periodID string) ([]Input, error)

	PreviousNet(ctx context.Context, employeeID, periodID string) (decimal.Decimal, bool, error)
	ListResults(ctx context.Context, periodID string) ([]Result, error)

	ListPayslipKeys(ctx context.Context, periodID string) ([]PayslipKey, error)
	ListPayslipFiles(ctx context.Context, periodID string) ([]string, error)
	UpdatePayslipFileURL(ctx context.Context, payslipID, fileURL string) error
	CountPayslips(ctx context.Context, employeeID string) (int, error)
	ListPayslips(ctx context.Context, employeeID string, limit, offset int) ([]Payslip, error)
	GetPayslip(ctx context.Context, payslipID string) (PayslipRef, error)
	PayslipPDFData(ctx context.Context, periodID, employeeID string) (PayslipPDFData, error)

	CreateJobRun(ctx context.Context, jobType string) (string, error)
	UpdateJobRun(ctx context.Context, runID, status string, details any) error
	GetJobRun(ctx context.Context, runID string) (JobRun, error)
}
