package reports

import (
	"context"
	"fmt"
)

type StoreAPI interface {
	PeriodHeader(ctx context.Context, periodID string) (PeriodHeader, error)
	RemittanceLines(ctx context.Context, periodID string) ([]RemittanceLine, error)
	ActiveEmployees(ctx context.Context) (int, error)
	PeriodsByStatus(ctx context.Context) (map[string]int, error)
	PayslipCount(ctx context.Context) (int, error)
	ListJobRuns(ctx context.Context, filter JobRunFilter, limit, offset int) ([]JobRun, error)
	CountJobRuns(ctx context.Context, filter JobRunFilter) (int, error)
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// Remittance reports what the employer must remit for a period. Draft
// periods have no trustworthy results and are rejected.
func (s *Service) Remittance(ctx context.Context, periodID string) (RemittanceReport, error) {
	header, err := s.store.PeriodHeader(ctx, periodID)
	if err != nil {
		return RemittanceReport{}, err
	}
	if header.Status == PeriodStatusDraft {
		return RemittanceReport{}, ErrPeriodNotReady
	}
	lines, err := s.store.RemittanceLines(ctx, periodID)
	if err != nil {
		return RemittanceReport{}, fmt.Errorf("load remittance lines: %w", err)
	}
	if lines == nil {
		lines = []RemittanceLine{}
	}
	return RemittanceReport{Period: header, Lines: lines, Totals: SumRemittance(lines)}, nil
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var dash Dashboard
	var err error
	if dash.ActiveEmployees, err = s.store.ActiveEmployees(ctx); err != nil {
		return Dashboard{}, fmt.Errorf("count employees: %w", err)
	}
	if dash.PeriodsByStatus, err = s.store.PeriodsByStatus(ctx); err != nil {
		return Dashboard{}, fmt.Errorf("count periods: %w", err)
	}
	if dash.Payslips, err = s.store.PayslipCount(ctx); err != nil {
		return Dashboard{}, fmt.Errorf("count payslips: %w", err)
	}
	runs, err := s.store.ListJobRuns(ctx, JobRunFilter{}, 1, 0)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load last run: %w", err)
	}
	if len(runs) > 0 {
		dash.LastRun = &runs[0]
	}
	return dash, nil
}

func (s *Service) JobRuns(ctx context.Context, filter JobRunFilter, limit, offset int) ([]JobRun, int, error) {
	total, err := s.store.CountJobRuns(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	runs, err := s.store.ListJobRuns(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
