package payrollhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"phpayroll/internal/domain/auth"
	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/platform/jobs"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

type PayrollService interface {
	ListPeriods(ctx context.Context, limit, offset int) ([]payroll.Period, int, error)
	CreatePeriod(ctx context.Context, name string, startDate, endDate time.Time) (payroll.Period, error)
	GetPeriod(ctx context.Context, periodID string) (payroll.Period, error)
	SaveInputs(ctx context.Context, periodID string, inputs []payroll.Input) error
	ListInputs(ctx context.Context, periodID string) ([]payroll.Input, error)
	ListResults(ctx context.Context, periodID string) ([]payroll.Result, payroll.PeriodSummary, error)
	RunPeriod(ctx context.Context, periodID string) (payroll.RunSummary, error)
	FinalizePeriod(ctx context.Context, periodID string) (payroll.FinalizeSummary, error)
	ReopenPeriod(ctx context.Context, periodID, reason string) error
	ListPayslips(ctx context.Context, employeeID string, limit, offset int) ([]payroll.Payslip, int, error)
	GetPayslip(ctx context.Context, payslipID string) (payroll.PayslipRef, error)
	OpenPayslip(ctx context.Context, ref payroll.PayslipRef) (payroll.PayslipFile, error)
	GetJobRun(ctx context.Context, runID string) (payroll.JobRun, error)
}

type JobRunner interface {
	RunNow(ctx context.Context, jobType string, run jobs.RunFunc) (any, error)
	Enqueue(ctx context.Context, jobType string, run jobs.RunFunc) (string, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

type IdempotencyStore interface {
	Check(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error
}

type Handler struct {
	Service     PayrollService
	Jobs        JobRunner
	Audit       AuditRecorder
	Idempotency IdempotencyStore
	Perms       middleware.PermissionStore
	Logger      *slog.Logger
}

func NewHandler(service PayrollService, jobRunner JobRunner, recorder AuditRecorder, idempotency IdempotencyStore, perms middleware.PermissionStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Service:     service,
		Jobs:        jobRunner,
		Audit:       recorder,
		Idempotency: idempotency,
		Perms:       perms,
		Logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermDeductionsRead, h.Perms)).Get("/deductions", h.handleDeductions)
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDeductionsRead, h.Perms)).Post("/preview", h.handlePreview)
		r.With(middleware.RequirePermission(auth.PermDeductionsRead, h.Perms)).Get("/schedules/sss", h.handleSSSSchedule)
		r.With(middleware.RequirePermission(auth.PermDeductionsRead, h.Perms)).Get("/schedules/tax", h.handleTaxSchedule)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods", h.handleListPeriods)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Post("/periods", h.handleCreatePeriod)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods/{periodID}", h.handleGetPeriod)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods/{periodID}/inputs", h.handleListInputs)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Post("/periods/{periodID}/inputs", h.handleSaveInputs)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods/{periodID}/results", h.handleListResults)
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/periods/{periodID}/run", h.handleRunPayroll)
		r.With(middleware.RequirePermission(auth.PermPayrollFinalize, h.Perms)).Post("/periods/{periodID}/finalize", h.handleFinalizePayroll)
		r.With(middleware.RequirePermission(auth.PermPayrollFinalize, h.Perms)).Post("/periods/{periodID}/reopen", h.handleReopenPeriod)
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Get("/jobs/{jobID}", h.handleGetJob)
		r.With(middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)).Get("/payslips", h.handleListPayslips)
		r.With(middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)).Get("/payslips/{payslipID}/download", h.handleDownloadPayslip)
	})
}

func (h *Handler) recordAudit(r *http.Request, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	if err := h.Audit.Record(r.Context(), user.UserID, action, entityType, entityID, requestID, shared.ClientIP(r), before, after); err != nil {
		h.Logger.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

// pathID reads a UUID path parameter. Malformed ids are reported as not found
// so they never reach the database.
func pathID(w http.ResponseWriter, r *http.Request, param, notFoundMessage string) (string, bool) {
	id := chi.URLParam(r, param)
	if _, err := uuid.Parse(id); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", notFoundMessage, middleware.GetRequestID(r.Context()))
		return "", false
	}
	return id, true
}

// writeServiceError maps payroll sentinel errors onto HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrPeriodNotFound),
		errors.Is(err, payroll.ErrPayslipNotFound),
		errors.Is(err, payroll.ErrJobNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, payroll.ErrEmployeeNotFound):
		api.Fail(w, http.StatusUnprocessableEntity, "unknown_employee", err.Error(), requestID)
	case errors.Is(err, payroll.ErrInvalidPeriodDates),
		errors.Is(err, payroll.ErrReopenReasonRequired):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: fieldFor(err), Reason: err.Error()}})
	case errors.Is(err, payroll.ErrPeriodFinalized),
		errors.Is(err, payroll.ErrFinalizeInvalidState),
		errors.Is(err, payroll.ErrFinalizeNoResults),
		errors.Is(err, payroll.ErrReopenInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, payroll.ErrPayslipUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "payslip_missing", err.Error(), requestID)
	case errors.Is(err, jobs.ErrQueueFull):
		api.Fail(w, http.StatusServiceUnavailable, "queue_full", "payroll job queue is full, retry later", requestID)
	default:
		h.Logger.Error(message, "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func fieldFor(err error) string {
	if errors.Is(err, payroll.ErrReopenReasonRequired) {
		return "reason"
	}
	return "endDate"
}
