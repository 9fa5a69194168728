package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"phpayroll/internal/domain/deductions"
	"phpayroll/internal/requestctx"
)

// RunPeriod computes gross-to-net for every active employee in parallel,
// bounded by the configured worker count. One employee's failure is recorded
// in the summary and does not abort the batch.
func (s *Service) RunPeriod(ctx context.Context, periodID string) (RunSummary, error) {
	start := s.now()
	logger := requestctx.Logger(ctx, s.logger)
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return RunSummary{}, err
	}
	if period.Status == PeriodStatusFinalized {
		return RunSummary{}, ErrPeriodFinalized
	}

	employees, err := s.store.ListActiveEmployees(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load employees: %w", err)
	}
	inputs, err := s.store.ListInputs(ctx, periodID)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load inputs: %w", err)
	}
	inputsByEmployee := make(map[string]Input, len(inputs))
	for _, input := range inputs {
		inputsByEmployee[input.EmployeeID] = input
	}

	results := make([]*Result, len(employees))
	failures := make([]error, len(employees))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, employee := range employees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := s.computeResult(gctx, periodID, employee, inputsByEmployee[employee.ID])
			if err != nil {
				failures[i] = err
				logger.Warn("payroll employee failed", "periodId", periodID, "employeeId", employee.ID, "err", err)
				return nil
			}
			results[i] = &result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		PeriodID: periodID,
		Status:   PeriodStatusReviewed,
		Warnings: map[string]int{},
	}
	saved := make([]Result, 0, len(results))
	for i, result := range results {
		if result == nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, RunFailure{EmployeeID: employees[i].ID, Error: failures[i].Error()})
			continue
		}
		summary.Processed++
		saved = append(saved, *result)
		for _, warning := range result.Warnings {
			summary.Warnings[warning]++
		}
	}

	// Results of employees that failed or left since the last run are dropped.
	if err := s.store.SaveRunResults(ctx, periodID, saved); err != nil {
		if errors.Is(err, ErrPeriodFinalized) {
			return RunSummary{}, err
		}
		return RunSummary{}, fmt.Errorf("save payroll results: %w", err)
	}

	elapsed := s.now().Sub(start)
	summary.Duration = elapsed.String()
	if s.observer != nil {
		s.observer.RecordPayrollRun(summary.Processed, summary.Failed, elapsed)
	}
	logger.Info("payroll run completed", "periodId", periodID, "processed", summary.Processed, "failed", summary.Failed, "duration", elapsed)
	return summary, nil
}

func (s *Service) computeResult(ctx context.Context, periodID string, employee Employee, input Input) (Result, error) {
	if employee.MonthlySalary.IsNegative() {
		return Result{}, ErrInvalidSalary
	}
	calc := deductions.CalculatePayroll(deductions.PayrollInput{
		MonthlySalary: employee.MonthlySalary,
		OvertimeHours: input.OvertimeHours,
		Allowances:    input.Allowances,
		Period:        employee.PayPeriod,
	})

	warnings := make([]string, 0, 3)
	if !s.hasBankAccount(employee) {
		warnings = append(warnings, WarningMissingBank)
	}
	if calc.NetPay.IsNegative() {
		warnings = append(warnings, WarningNegativeNet)
	}
	previousNet, found, err := s.store.PreviousNet(ctx, employee.ID, periodID)
	if err != nil {
		requestctx.Logger(ctx, s.logger).Warn("previous net lookup failed", "employeeId", employee.ID, "err", err)
	} else if found && netVariance(previousNet, calc.NetPay) {
		warnings = append(warnings, WarningNetVariance)
	}

	return Result{
		PeriodID:     periodID,
		EmployeeID:   employee.ID,
		EmployeeName: employee.FullName,
		Calculation:  calc,
		Warnings:     warnings,
		CreatedAt:    s.now(),
	}, nil
}

func (s *Service) hasBankAccount(employee Employee) bool {
	if employee.BankAccount != "" {
		return true
	}
	if len(employee.BankAccountEnc) == 0 {
		return false
	}
	if !s.crypto.Configured() {
		return true
	}
	plain, err := s.crypto.Decrypt(employee.BankAccountEnc)
	if err != nil {
		s.logger.Warn("bank account decrypt failed", "employeeId", employee.ID, "err", err)
		return false
	}
	return len(plain) > 0
}

func netVariance(previous, current decimal.Decimal) bool {
	if !previous.IsPositive() {
		return false
	}
	return current.Sub(previous).Abs().Div(previous).GreaterThan(netVarianceThreshold)
}

// FinalizePeriod locks a reviewed period, issues its payslip rows and renders
// one PDF per payslip. Rendering failures are counted but leave the period
// finalized; the payslip is rendered again on first download.
func (s *Service) FinalizePeriod(ctx context.Context, periodID string) (FinalizeSummary, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return FinalizeSummary{}, err
	}
	if period.Status != PeriodStatusReviewed {
		return FinalizeSummary{}, ErrFinalizeInvalidState
	}
	if err := s.store.FinalizeWithPayslips(ctx, periodID); err != nil {
		if errors.Is(err, ErrFinalizeInvalidState) || errors.Is(err, ErrFinalizeNoResults) {
			return FinalizeSummary{}, err
		}
		return FinalizeSummary{}, fmt.Errorf("finalize period: %w", err)
	}
	keys, err := s.store.ListPayslipKeys(ctx, periodID)
	if err != nil {
		return FinalizeSummary{}, fmt.Errorf("list payslips: %w", err)
	}

	logger := requestctx.Logger(ctx, s.logger)
	summary := FinalizeSummary{PeriodID: periodID, Status: PeriodStatusFinalized}
	for _, key := range keys {
		if _, err := s.renderAndStore(ctx, periodID, key.EmployeeID, key.ID); err != nil {
			summary.Failed++
			logger.Warn("payslip pdf generation failed", "periodId", periodID, "payslipId", key.ID, "err", err)
			continue
		}
		summary.Payslips++
	}
	return summary, nil
}

func (s *Service) renderAndStore(ctx context.Context, periodID, employeeID, payslipID string) (string, error) {
	fileURL, err := s.GeneratePayslipPDF(ctx, periodID, employeeID, payslipID)
	if err != nil {
		return "", err
	}
	if err := s.store.UpdatePayslipFileURL(ctx, payslipID, fileURL); err != nil {
		return "", err
	}
	return fileURL, nil
}
