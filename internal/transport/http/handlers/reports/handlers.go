package reportshandler

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"phpayroll/internal/domain/auth"
	"phpayroll/internal/domain/reports"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportService interface {
	Remittance(ctx context.Context, periodID string) (reports.RemittanceReport, error)
	Dashboard(ctx context.Context) (reports.Dashboard, error)
	JobRuns(ctx context.Context, filter reports.JobRunFilter, limit, offset int) ([]reports.JobRun, int, error)
}

type Handler struct {
	Service ReportService
	Perms   middleware.PermissionStore
	Logger  *slog.Logger
}

func NewHandler(service ReportService, perms middleware.PermissionStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: service, Perms: perms, Logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermReportsRead, h.Perms))
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/periods/{periodID}/remittance", h.handleRemittance)
		r.Get("/jobs", h.handleJobRuns)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	dash, err := h.Service.Dashboard(r.Context())
	if err != nil {
		h.Logger.Error("dashboard failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", requestID)
		return
	}
	api.Success(w, dash, requestID)
}

// handleRemittance answers JSON by default. ?format=csv and ?format=xlsx
// produce the files uploaded to the agencies' employer portals.
func (h *Handler) handleRemittance(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	periodID := chi.URLParam(r, "periodID")
	if _, err := uuid.Parse(periodID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "payroll period not found", requestID)
		return
	}

	report, err := h.Service.Remittance(r.Context(), periodID)
	switch {
	case errors.Is(err, reports.ErrPeriodNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
		return
	case errors.Is(err, reports.ErrPeriodNotReady):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
		return
	case err != nil:
		h.Logger.Error("remittance report failed", "err", err, "periodId", periodID, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "remittance_failed", "failed to build remittance report", requestID)
		return
	}

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=remittance-"+periodID+".csv")
		writer := csv.NewWriter(w)
		if err := writer.WriteAll(reports.RemittanceCSV(report)); err != nil {
			h.Logger.Warn("remittance csv write failed", "err", err)
		}
	case "xlsx":
		data, err := reports.RemittanceXLSX(report)
		if err != nil {
			h.Logger.Error("remittance workbook failed", "err", err, "periodId", periodID, "requestId", requestID)
			api.Fail(w, http.StatusInternalServerError, "remittance_failed", "failed to build remittance workbook", requestID)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", "attachment; filename=remittance-"+periodID+".xlsx")
		if _, err := w.Write(data); err != nil {
			h.Logger.Warn("remittance workbook write failed", "err", err)
		}
	default:
		api.Success(w, report, requestID)
	}
}

func (h *Handler) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 25, 100)
	query := r.URL.Query()

	filter := reports.JobRunFilter{JobType: query.Get("jobType"), Status: query.Get("status")}
	var issues []shared.ValidationIssue
	filter.StartedFrom = shared.TimeParam(query, "startedFrom", &issues)
	filter.StartedTo = shared.TimeParam(query, "startedTo", &issues)
	if len(issues) > 0 {
		shared.FailValidation(w, requestID, issues)
		return
	}

	runs, total, err := h.Service.JobRuns(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.Logger.Error("job run list failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", requestID)
		return
	}
	if runs == nil {
		runs = []reports.JobRun{}
	}
	api.Paged(w, api.Page{Items: runs, Total: total, Limit: page.Limit, Offset: page.Offset}, requestID)
}
