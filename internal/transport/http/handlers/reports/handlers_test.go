package reportshandler

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phpayroll/internal/domain/auth"
	"phpayroll/internal/domain/reports"
	"phpayroll/internal/transport/http/middleware"
)

const periodID = "5a1d7c1e-3f0b-4c55-8d1e-0c6d2b8b9a01"

type fakeReports struct {
	report     reports.RemittanceReport
	err        error
	lastFilter reports.JobRunFilter
}

func (f *fakeReports) Remittance(context.Context, string) (reports.RemittanceReport, error) {
	return f.report, f.err
}

func (f *fakeReports) Dashboard(context.Context) (reports.Dashboard, error) {
	return reports.Dashboard{ActiveEmployees: 3, PeriodsByStatus: map[string]int{}}, nil
}

func (f *fakeReports) JobRuns(_ context.Context, filter reports.JobRunFilter, _, _ int) ([]reports.JobRun, int, error) {
	f.lastFilter = filter
	return nil, 0, nil
}

func serve(t *testing.T, svc *fakeReports, role, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(svc, auth.StaticPermissions{}, nil).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func sampleReport() reports.RemittanceReport {
	lines := []reports.RemittanceLine{{
		EmployeeID: "e1", EmployeeName: "Ana Cruz",
		SSS: decimal.NewFromInt(1125), PhilHealth: decimal.NewFromInt(625),
		PagIbig: decimal.NewFromInt(100), WithholdingTax: decimal.RequireFromString("347.55"),
	}}
	return reports.RemittanceReport{Period: reports.PeriodHeader{ID: periodID}, Lines: lines, Totals: reports.SumRemittance(lines)}
}

func TestRemittanceJSONAndCSV(t *testing.T) {
	svc := &fakeReports{report: sampleReport()}

	rec := serve(t, svc, auth.RoleAdmin, "/reports/periods/"+periodID+"/remittance")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":"2197.55"`)

	rec = serve(t, svc, auth.RoleAdmin, "/reports/periods/"+periodID+"/remittance?format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rec = serve(t, svc, auth.RoleAdmin, "/reports/periods/"+periodID+"/remittance?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "remittance-"+periodID+".xlsx")
	// xlsx is a zip container
	assert.Equal(t, "PK", rec.Body.String()[:2])
}

func TestRemittanceErrors(t *testing.T) {
	rec := serve(t, &fakeReports{err: reports.ErrPeriodNotReady}, auth.RoleAdmin, "/reports/periods/"+periodID+"/remittance")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, &fakeReports{err: reports.ErrPeriodNotFound}, auth.RoleAdmin, "/reports/periods/"+periodID+"/remittance")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, &fakeReports{}, auth.RoleAdmin, "/reports/periods/bad-id/remittance")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, &fakeReports{}, auth.RoleEmployee, "/reports/dashboard")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJobRunsFilters(t *testing.T) {
	svc := &fakeReports{}
	rec := serve(t, svc, auth.RoleAdmin, "/reports/jobs?jobType=payroll_run&status=failed&startedFrom=2026-10-01T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payroll_run", svc.lastFilter.JobType)
	assert.Equal(t, "failed", svc.lastFilter.Status)
	require.NotNil(t, svc.lastFilter.StartedFrom)

	rec = serve(t, svc, auth.RoleAdmin, "/reports/jobs?startedTo=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	rec := serve(t, &fakeReports{}, auth.RoleAdmin, "/reports/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activeEmployees":3`)
}
