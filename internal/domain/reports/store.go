package reports

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool the report queries need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	DB Querier
}

func NewStore(db Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) PeriodHeader(ctx context.Context, periodID string) (PeriodHeader, error) {
	var header PeriodHeader
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, start_date, end_date, status
    FROM payroll_periods
    WHERE id = $1
  `, periodID).Scan(&header.ID, &header.Name, &header.StartDate, &header.EndDate, &header.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return PeriodHeader{}, ErrPeriodNotFound
	}
	return header, err
}

func (s *Store) RemittanceLines(ctx context.Context, periodID string) ([]RemittanceLine, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.employee_id, e.full_name, r.sss, r.philhealth, r.pagibig, r.withholding_tax
    FROM payroll_results r
    JOIN employees e ON e.id = r.employee_id
    WHERE r.period_id = $1
    ORDER BY e.full_name
  `, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []RemittanceLine
	for rows.Next() {
		var line RemittanceLine
		if err := rows.Scan(&line.EmployeeID, &line.EmployeeName, &line.SSS, &line.PhilHealth, &line.PagIbig, &line.WithholdingTax); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *Store) ActiveEmployees(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE status = $1", EmployeeStatusActive).Scan(&count)
	return count, err
}

func (s *Store) PeriodsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, "SELECT status, COUNT(1) FROM payroll_periods GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func (s *Store) PayslipCount(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM payslips").Scan(&count)
	return count, err
}

func (s *Store) ListJobRuns(ctx context.Context, filter JobRunFilter, limit, offset int) ([]JobRun, error) {
	query, args := buildJobRunsBaseQuery(filter)
	query += " ORDER BY started_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []JobRun
	for rows.Next() {
		var run JobRun
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &run.Details, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) CountJobRuns(ctx context.Context, filter JobRunFilter) (int, error) {
	query, args := buildJobRunsBaseQuery(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM ("+query+") job_runs", args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func buildJobRunsBaseQuery(filter JobRunFilter) (string, []any) {
	query := `
    SELECT id, job_type, status, COALESCE(details_json, '{}'::jsonb), started_at, completed_at
    FROM job_runs
    WHERE 1=1
  `
	var args []any

	if value := strings.TrimSpace(filter.JobType); value != "" {
		args = append(args, value)
		query += " AND job_type = $" + strconv.Itoa(len(args))
	}
	if value := strings.TrimSpace(filter.Status); value != "" {
		args = append(args, value)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if filter.StartedFrom != nil && !filter.StartedFrom.IsZero() {
		args = append(args, *filter.StartedFrom)
		query += " AND started_at >= $" + strconv.Itoa(len(args))
	}
	if filter.StartedTo != nil && !filter.StartedTo.IsZero() {
		args = append(args, *filter.StartedTo)
		query += " AND started_at <= $" + strconv.Itoa(len(args))
	}
	return query, args
}
