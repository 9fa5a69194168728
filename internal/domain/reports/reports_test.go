package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	header   PeriodHeader
	lines    []RemittanceLine
	runs     []JobRun
	linesErr error
}

func (f *fakeStore) PeriodHeader(_ context.Context, periodID string) (PeriodHeader, error) {
	if periodID != f.header.ID {
		return PeriodHeader{}, ErrPeriodNotFound
	}
	return f.header, nil
}

func (f *fakeStore) RemittanceLines(context.Context, string) ([]RemittanceLine, error) {
	return f.lines, f.linesErr
}

func (f *fakeStore) ActiveEmployees(context.Context) (int, error) { return 12, nil }

func (f *fakeStore) PeriodsByStatus(context.Context) (map[string]int, error) {
	return map[string]int{PeriodStatusDraft: 1, PeriodStatusFinalized: 3}, nil
}

func (f *fakeStore) PayslipCount(context.Context) (int, error) { return 36, nil }

func (f *fakeStore) ListJobRuns(_ context.Context, _ JobRunFilter, limit, _ int) ([]JobRun, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeStore) CountJobRuns(context.Context, JobRunFilter) (int, error) {
	return len(f.runs), nil
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func sampleLines() []RemittanceLine {
	return []RemittanceLine{
		{EmployeeID: "e1", EmployeeName: "Ana Cruz", SSS: d("1125"), PhilHealth: d("625"), PagIbig: d("100"), WithholdingTax: d("347.55")},
		{EmployeeID: "e2", EmployeeName: "Ben Reyes", SSS: d("180"), PhilHealth: d("250"), PagIbig: d("10"), WithholdingTax: d("0")},
	}
}

func TestSumRemittance(t *testing.T) {
	totals := SumRemittance(sampleLines())
	assert.Equal(t, 2, totals.Employees)
	assert.True(t, totals.SSS.Equal(d("1305")))
	assert.True(t, totals.PhilHealth.Equal(d("875")))
	assert.True(t, totals.PagIbig.Equal(d("110")))
	assert.True(t, totals.WithholdingTax.Equal(d("347.55")))
	assert.True(t, totals.Total.Equal(d("2637.55")))

	empty := SumRemittance(nil)
	assert.True(t, empty.Total.IsZero())
}

func TestRemittanceCSV(t *testing.T) {
	lines := sampleLines()
	rows := RemittanceCSV(RemittanceReport{Lines: lines, Totals: SumRemittance(lines)})
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"e1", "Ana Cruz", "1125.00", "625.00", "100.00", "347.55"}, rows[1])
	assert.Equal(t, "TOTAL", rows[3][0])
	assert.Equal(t, "1305.00", rows[3][2])
}

func TestRemittanceRejectsDraftPeriods(t *testing.T) {
	store := &fakeStore{header: PeriodHeader{ID: "p1", Status: PeriodStatusDraft}}
	_, err := NewService(store).Remittance(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrPeriodNotReady)

	_, err = NewService(store).Remittance(context.Background(), "other")
	assert.ErrorIs(t, err, ErrPeriodNotFound)
}

func TestRemittanceForFinalizedPeriod(t *testing.T) {
	store := &fakeStore{header: PeriodHeader{ID: "p1", Status: PeriodStatusFinalized}, lines: sampleLines()}
	report, err := NewService(store).Remittance(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, report.Lines, 2)
	assert.True(t, report.Totals.Total.Equal(d("2637.55")))

	store.lines = nil
	report, err = NewService(store).Remittance(context.Background(), "p1")
	require.NoError(t, err)
	assert.NotNil(t, report.Lines)

	store.linesErr = errors.New("db down")
	_, err = NewService(store).Remittance(context.Background(), "p1")
	assert.Error(t, err)
}

func TestDashboard(t *testing.T) {
	started := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{runs: []JobRun{{ID: "r2", JobType: "payroll_run", Status: "completed", StartedAt: started}, {ID: "r1"}}}

	dash, err := NewService(store).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, dash.ActiveEmployees)
	assert.Equal(t, 3, dash.PeriodsByStatus[PeriodStatusFinalized])
	assert.Equal(t, 36, dash.Payslips)
	require.NotNil(t, dash.LastRun)
	assert.Equal(t, "r2", dash.LastRun.ID)
}

func TestBuildJobRunsBaseQuery(t *testing.T) {
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildJobRunsBaseQuery(JobRunFilter{JobType: "payroll_run", Status: " failed ", StartedFrom: &from})
	assert.Contains(t, query, "job_type = $1")
	assert.Contains(t, query, "status = $2")
	assert.Contains(t, query, "started_at >= $3")
	assert.Equal(t, []any{"payroll_run", "failed", from}, args)

	query, args = buildJobRunsBaseQuery(JobRunFilter{})
	assert.NotContains(t, query, "$1")
	assert.Empty(t, args)
}
