package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	cryptoutil "phpayroll/internal/platform/crypto"
)

// RunObserver receives batch run outcomes; the Prometheus collector satisfies it.
type RunObserver interface {
	RecordPayrollRun(processed, failed int, duration time.Duration)
}

type Options struct {
	Crypto     *cryptoutil.Service
	Logger     *slog.Logger
	Observer   RunObserver
	Workers    int
	PayslipDir string
}

type Service struct {
	store      StoreAPI
	crypto     *cryptoutil.Service
	logger     *slog.Logger
	observer   RunObserver
	workers    int
	payslipDir string
	now        func() time.Time
}

func NewService(store StoreAPI, opts Options) *Service {
	svc := &Service{
		store:      store,
		crypto:     opts.Crypto,
		logger:     opts.Logger,
		observer:   opts.Observer,
		workers:    opts.Workers,
		payslipDir: opts.PayslipDir,
		now:        time.Now,
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.workers <= 0 {
		svc.workers = defaultWorkers
	}
	if svc.payslipDir == "" {
		svc.payslipDir = "storage/payslips"
	}
	return svc
}

// Store exposes the backing store for the job runner.
func (s *Service) Store() StoreAPI {
	return s.store
}

func (s *Service) ListPeriods(ctx context.Context, limit, offset int) ([]Period, int, error) {
	total, err := s.store.CountPeriods(ctx)
	if err != nil {
		return nil, 0, err
	}
	periods, err := s.store.ListPeriods(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return periods, total, nil
}

func (s *Service) CreatePeriod(ctx context.Context, name string, startDate, endDate time.Time) (Period, error) {
	if endDate.Before(startDate) {
		return Period{}, ErrInvalidPeriodDates
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s to %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	}
	return s.store.CreatePeriod(ctx, name, startDate, endDate)
}

func (s *Service) GetPeriod(ctx context.Context, periodID string) (Period, error) {
	return s.store.GetPeriod(ctx, periodID)
}

// SaveInputs records overtime hours and allowances for the given employees.
// Finalized periods are immutable.
func (s *Service) SaveInputs(ctx context.Context, periodID string, inputs []Input) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Status == PeriodStatusFinalized {
		return ErrPeriodFinalized
	}
	for _, input := range inputs {
		exists, err := s.store.EmployeeExists(ctx, input.EmployeeID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrEmployeeNotFound, input.EmployeeID)
		}
	}
	for _, input := range inputs {
		if err := s.store.UpsertInput(ctx, periodID, input); err != nil {
			return fmt.Errorf("save input for %s: %w", input.EmployeeID, err)
		}
	}
	return nil
}

func (s *Service) ListInputs(ctx context.Context, periodID string) ([]Input, error) {
	if _, err := s.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	return s.store.ListInputs(ctx, periodID)
}

func (s *Service) ListResults(ctx context.Context, periodID string) ([]Result, PeriodSummary, error) {
	if _, err := s.store.GetPeriod(ctx, periodID); err != nil {
		return nil, PeriodSummary{}, err
	}
	results, err := s.store.ListResults(ctx, periodID)
	if err != nil {
		return nil, PeriodSummary{}, err
	}
	return results, Summarize(results), nil
}

// Summarize totals a period's results and counts each warning code.
func Summarize(results []Result) PeriodSummary {
	summary := PeriodSummary{
		TotalGross:      decimal.Zero,
		TotalDeductions: decimal.Zero,
		TotalNet:        decimal.Zero,
		EmployeeCount:   len(results),
		Warnings:        map[string]int{},
	}
	for _, result := range results {
		summary.TotalGross = summary.TotalGross.Add(result.Calculation.GrossPay)
		summary.TotalDeductions = summary.TotalDeductions.Add(result.Calculation.Deductions.TotalDeductions)
		summary.TotalNet = summary.TotalNet.Add(result.Calculation.NetPay)
		for _, warning := range result.Warnings {
			summary.Warnings[warning]++
		}
	}
	return summary
}

func (s *Service) ReopenPeriod(ctx context.Context, periodID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReopenReasonRequired
	}
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Status != PeriodStatusReviewed && period.Status != PeriodStatusFinalized {
		return ErrReopenInvalidState
	}

	files, err := s.store.ListPayslipFiles(ctx, periodID)
	if err != nil {
		s.logger.Warn("payslip file lookup failed", "periodId", periodID, "err", err)
	}
	if err := s.store.ResetPeriod(ctx, periodID); err != nil {
		if errors.Is(err, ErrReopenInvalidState) {
			return err
		}
		return fmt.Errorf("reopen period: %w", err)
	}
	s.removeFiles(files)
	return nil
}

func (s *Service) ListPayslips(ctx context.Context, employeeID string, limit, offset int) ([]Payslip, int, error) {
	total, err := s.store.CountPayslips(ctx, employeeID)
	if err != nil {
		return nil, 0, err
	}
	slips, err := s.store.ListPayslips(ctx, employeeID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return slips, total, nil
}

func (s *Service) GetPayslip(ctx context.Context, payslipID string) (PayslipRef, error) {
	return s.store.GetPayslip(ctx, payslipID)
}

func (s *Service) GetJobRun(ctx context.Context, runID string) (JobRun, error) {
	return s.store.GetJobRun(ctx, runID)
}
