package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/deductions"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CountPeriods(ctx context.Context) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM payroll_periods").Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListPeriods(ctx context.Context, limit, offset int) ([]Period, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, start_date, end_date, status, finalized_at, created_at
    FROM payroll_periods
    ORDER BY start_date DESC
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		var period Period
		if err := rows.Scan(&period.ID, &period.Name, &period.StartDate, &period.EndDate, &period.Status, &period.FinalizedAt, &period.CreatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

func (s *Store) CreatePeriod(ctx context.Context, name string, startDate, endDate time.Time) (Period, error) {
	period := Period{Name: name, StartDate: startDate, EndDate: endDate}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_periods (name, start_date, end_date, status)
    VALUES ($1,$2,$3,$4)
    RETURNING id, status, created_at
  `, name, startDate, endDate, PeriodStatusDraft).Scan(&period.ID, &period.Status, &period.CreatedAt)
	return period, err
}

func (s *Store) GetPeriod(ctx context.Context, periodID string) (Period, error) {
	var period Period
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, start_date, end_date, status, finalized_at, created_at
    FROM payroll_periods
    WHERE id = $1
  `, periodID).Scan(&period.ID, &period.Name, &period.StartDate, &period.EndDate, &period.Status, &period.FinalizedAt, &period.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrPeriodNotFound
	}
	return period, err
}

// lockPeriod reads the period status under a row lock held until tx ends.
func lockPeriod(ctx context.Context, tx pgx.Tx, periodID string) (string, error) {
	var status string
	err := tx.QueryRow(ctx, "SELECT status FROM payroll_periods WHERE id = $1 FOR UPDATE", periodID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrPeriodNotFound
	}
	return status, err
}

// SaveRunResults replaces every result of the period with results and marks
// it reviewed, all in one transaction. A period finalized since the run
// started is left untouched.
func (s *Store) SaveRunResults(ctx context.Context, periodID string, results []Result) error {
	return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		status, err := lockPeriod(ctx, tx, periodID)
		if err != nil {
			return err
		}
		if status == PeriodStatusFinalized {
			return ErrPeriodFinalized
		}
		if _, err := tx.Exec(ctx, "DELETE FROM payroll_results WHERE period_id = $1", periodID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, result := range results {
			warningsJSON, err := json.Marshal(result.Warnings)
			if err != nil {
				return err
			}
			calc := result.Calculation
			batch.Queue(insertResultSQL, periodID, result.EmployeeID, string(calc.PayPeriod), calc.BasicPay, calc.OvertimePay, calc.Allowances, calc.GrossPay,
				calc.Deductions.SSS, calc.Deductions.PhilHealth, calc.Deductions.PagIbig, calc.Deductions.WithholdingTax,
				calc.Deductions.TotalDeductions, calc.NetPay, warningsJSON)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
    UPDATE payroll_periods SET status = $1, finalized_at = NULL WHERE id = $2
  `, PeriodStatusReviewed, periodID)
		return err
	})
}

// FinalizeWithPayslips moves a reviewed period to finalized and creates one
// payslip row per result in the same transaction.
func (s *Store) FinalizeWithPayslips(ctx context.Context, periodID string) error {
	return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		status, err := lockPeriod(ctx, tx, periodID)
		if err != nil {
			return err
		}
		if status != PeriodStatusReviewed {
			return ErrFinalizeInvalidState
		}
		var results int
		if err := tx.QueryRow(ctx, "SELECT COUNT(1) FROM payroll_results WHERE period_id = $1", periodID).Scan(&results); err != nil {
			return err
		}
		if results == 0 {
			return ErrFinalizeNoResults
		}

		if _, err := tx.Exec(ctx, `
    UPDATE payroll_periods SET status = $1, finalized_at = now() WHERE id = $2
  `, PeriodStatusFinalized, periodID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
    INSERT INTO payslips (period_id, employee_id)
    SELECT period_id, employee_id
    FROM payroll_results
    WHERE period_id = $1
    ON CONFLICT DO NOTHING
  `, periodID)
		return err
	})
}

// ResetPeriod drops the payslips and results of a reviewed or finalized
// period and returns it to draft.
func (s *Store) ResetPeriod(ctx context.Context, periodID string) error {
	return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		status, err := lockPeriod(ctx, tx, periodID)
		if err != nil {
			return err
		}
		if status != PeriodStatusReviewed && status != PeriodStatusFinalized {
			return ErrReopenInvalidState
		}
		if _, err := tx.Exec(ctx, "DELETE FROM payslips WHERE period_id = $1", periodID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM payroll_results WHERE period_id = $1", periodID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
    UPDATE payroll_periods SET status = $1, finalized_at = NULL WHERE id = $2
  `, PeriodStatusDraft, periodID)
		return err
	})
}

func (s *Store) EmployeeExists(ctx context.Context, employeeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1)", employeeID).Scan(&exists)
	return exists, err
}

func (s *Store) ListActiveEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, full_name, email, monthly_salary, pay_period,
           COALESCE(bank_account, ''), bank_account_enc
    FROM employees
    WHERE status = $1
    ORDER BY full_name
  `, EmployeeStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var employee Employee
		var payPeriod string
		if err := rows.Scan(&employee.ID, &employee.FullName, &employee.Email, &employee.MonthlySalary, &payPeriod, &employee.BankAccount, &employee.BankAccountEnc); err != nil {
			return nil, err
		}
		employee.PayPeriod = deductions.PayPeriod(payPeriod)
		out = append(out, employee)
	}
	return out, rows.Err()
}

func (s *Store) UpsertInput(ctx context.Context, periodID string, input Input) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO payroll_inputs (period_id, employee_id, overtime_hours, allowances)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (period_id, employee_id)
    DO UPDATE SET overtime_hours = EXCLUDED.overtime_hours, allowances = EXCLUDED.allowances, updated_at = now()
  `, periodID, input.EmployeeID, input.OvertimeHours, input.Allowances)
	return err
}

func (s *Store) ListInputs(ctx context.Context, periodID string) ([]Input, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, overtime_hours, allowances
    FROM payroll_inputs
    WHERE period_id = $1
  `, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inputs []Input
	for rows.Next() {
		var input Input
		if err := rows.Scan(&input.EmployeeID, &input.OvertimeHours, &input.Allowances); err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, rows.Err()
}

func (s *Store) PreviousNet(ctx context.Context, employeeID, periodID string) (decimal.Decimal, bool, error) {
	var net decimal.Decimal
	err := s.DB.QueryRow(ctx, `
    SELECT net_pay
    FROM payroll_results
    WHERE employee_id = $1 AND period_id <> $2
    ORDER BY created_at DESC
    LIMIT 1
  `, employeeID, periodID).Scan(&net)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return net, true, nil
}

const insertResultSQL = `
    INSERT INTO payroll_results (
      period_id, employee_id, pay_period, basic_pay, overtime_pay, allowances, gross_pay,
      sss, philhealth, pagibig, withholding_tax, total_deductions, net_pay, warnings_json
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
  `

func (s *Store) ListResults(ctx context.Context, periodID string) ([]Result, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.employee_id, e.full_name, r.pay_period, r.basic_pay, r.overtime_pay, r.allowances, r.gross_pay,
           r.sss, r.philhealth, r.pagibig, r.withholding_tax, r.net_pay, r.warnings_json, r.created_at
    FROM payroll_results r
    JOIN employees e ON r.employee_id = e.id
    WHERE r.period_id = $1
    ORDER BY e.full_name
  `, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		result := Result{PeriodID: periodID}
		calc, warningsJSON, err := scanResult(rows, &result)
		if err != nil {
			return nil, err
		}
		result.Calculation = calc
		if err := json.Unmarshal(warningsJSON, &result.Warnings); err != nil {
			result.Warnings = nil
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

func scanResult(rows pgx.Rows, result *Result) (deductions.PayrollCalculationResult, []byte, error) {
	var calc deductions.PayrollCalculationResult
	var payPeriod string
	var sss, philHealth, pagIbig, tax decimal.Decimal
	var warningsJSON []byte
	if err := rows.Scan(&result.EmployeeID, &result.EmployeeName, &payPeriod, &calc.BasicPay, &calc.OvertimePay, &calc.Allowances, &calc.GrossPay,
		&sss, &philHealth, &pagIbig, &tax, &calc.NetPay, &warningsJSON, &result.CreatedAt); err != nil {
		return calc, nil, err
	}
	calc.PayPeriod = deductions.PayPeriod(payPeriod)
	calc.Deductions = deductions.NewDeductionBreakdown(sss, philHealth, pagIbig, tax)
	return calc, warningsJSON, nil
}

func (s *Store) ListPayslipKeys(ctx context.Context, periodID string) ([]PayslipKey, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, employee_id FROM payslips WHERE period_id = $1", periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []PayslipKey
	for rows.Next() {
		var key PayslipKey
		if err := rows.Scan(&key.ID, &key.EmployeeID); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *Store) ListPayslipFiles(ctx context.Context, periodID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT file_url FROM payslips WHERE period_id = $1 AND file_url IS NOT NULL", periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var file string
		if err := rows.Scan(&file); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *Store) UpdatePayslipFileURL(ctx context.Context, payslipID, fileURL string) error {
	_, err := s.DB.Exec(ctx, "UPDATE payslips SET file_url = $1 WHERE id = $2", fileURL, payslipID)
	return err
}

func (s *Store) CountPayslips(ctx context.Context, employeeID string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM payslips WHERE employee_id = $1", employeeID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListPayslips(ctx context.Context, employeeID string, limit, offset int) ([]Payslip, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.period_id, p.employee_id, r.gross_pay, r.total_deductions, r.net_pay, COALESCE(p.file_url, ''), p.created_at
    FROM payslips p
    JOIN payroll_results r ON p.period_id = r.period_id AND p.employee_id = r.employee_id
    WHERE p.employee_id = $1
    ORDER BY p.created_at DESC
    LIMIT $2 OFFSET $3
  `, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payslip
	for rows.Next() {
		var slip Payslip
		if err := rows.Scan(&slip.ID, &slip.PeriodID, &slip.EmployeeID, &slip.Gross, &slip.Deductions, &slip.Net, &slip.FileURL, &slip.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, slip)
	}
	return out, rows.Err()
}

func (s *Store) GetPayslip(ctx context.Context, payslipID string) (PayslipRef, error) {
	ref := PayslipRef{ID: payslipID}
	err := s.DB.QueryRow(ctx, `
    SELECT period_id, employee_id, COALESCE(file_url, '')
    FROM payslips
    WHERE id = $1
  `, payslipID).Scan(&ref.PeriodID, &ref.EmployeeID, &ref.FileURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return PayslipRef{}, ErrPayslipNotFound
	}
	return ref, err
}

func (s *Store) PayslipPDFData(ctx context.Context, periodID, employeeID string) (PayslipPDFData, error) {
	var data PayslipPDFData
	var payPeriod string
	var sss, philHealth, pagIbig, tax decimal.Decimal
	calc := &data.Result
	err := s.DB.QueryRow(ctx, `
    SELECT e.full_name, e.email, p.start_date, p.end_date,
           r.pay_period, r.basic_pay, r.overtime_pay, r.allowances, r.gross_pay,
           r.sss, r.philhealth, r.pagibig, r.withholding_tax, r.net_pay
    FROM payroll_results r
    JOIN employees e ON r.employee_id = e.id
    JOIN payroll_periods p ON r.period_id = p.id
    WHERE r.period_id = $1 AND r.employee_id = $2
  `, periodID, employeeID).Scan(&data.FullName, &data.Email, &data.StartDate, &data.EndDate,
		&payPeriod, &calc.BasicPay, &calc.OvertimePay, &calc.Allowances, &calc.GrossPay,
		&sss, &philHealth, &pagIbig, &tax, &calc.NetPay)
	if errors.Is(err, pgx.ErrNoRows) {
		return PayslipPDFData{}, ErrPayslipNotFound
	}
	if err != nil {
		return PayslipPDFData{}, err
	}
	calc.PayPeriod = deductions.PayPeriod(payPeriod)
	calc.Deductions = deductions.NewDeductionBreakdown(sss, philHealth, pagIbig, tax)
	return data, nil
}

func (s *Store) CreateJobRun(ctx context.Context, jobType string) (string, error) {
	var runID string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, "running").Scan(&runID); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) UpdateJobRun(ctx context.Context, runID, status string, details any) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}
	_, execErr := s.DB.Exec(ctx, `
    UPDATE job_runs SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID)
	return execErr
}

func (s *Store) GetJobRun(ctx context.Context, runID string) (JobRun, error) {
	var run JobRun
	var details []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, job_type, status, details_json, started_at, completed_at
    FROM job_runs
    WHERE id = $1
  `, runID).Scan(&run.ID, &run.JobType, &run.Status, &details, &run.StartedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return JobRun{}, ErrJobNotFound
	}
	if err != nil {
		return JobRun{}, err
	}
	if len(details) > 0 {
		run.Details = details
	}
	return run, nil
}
