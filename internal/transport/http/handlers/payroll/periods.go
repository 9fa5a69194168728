package payrollhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/platform/jobs"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

type periodPayload struct {
	Name      string `json:"name" validate:"max=120"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type inputLinePayload struct {
	EmployeeID    string          `json:"employeeId" validate:"required,uuid"`
	OvertimeHours decimal.Decimal `json:"overtimeHours" validate:"gte=0,lte=744"`
	Allowances    decimal.Decimal `json:"allowances" validate:"gte=0"`
}

type inputsPayload struct {
	Inputs []inputLinePayload `json:"inputs" validate:"required,min=1,max=5000,dive"`
}

type reopenPayload struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type resultsResponse struct {
	Results []payroll.Result      `json:"results"`
	Summary payroll.PeriodSummary `json:"summary"`
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 25, 100)
	periods, total, err := h.Service.ListPeriods(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.writeServiceError(w, r, err, "payroll_period_list_failed", "failed to list payroll periods")
		return
	}
	api.Paged(w, api.Page{Items: nonNil(periods), Total: total, Limit: page.Limit, Offset: page.Offset}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload periodPayload
	if !shared.DecodeAndValidate(w, r, &payload, requestID) {
		return
	}
	startDate, err := time.Parse(time.DateOnly, payload.StartDate)
	if err != nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "startDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}
	endDate, err := time.Parse(time.DateOnly, payload.EndDate)
	if err != nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "endDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}

	period, err := h.Service.CreatePeriod(r.Context(), payload.Name, startDate, endDate)
	if err != nil {
		h.writeServiceError(w, r, err, "payroll_period_create_failed", "failed to create payroll period")
		return
	}
	h.recordAudit(r, payroll.ActionPeriodCreate, payroll.EntityPayrollPeriod, period.ID, nil, period)
	api.Created(w, period, requestID)
}

func (h *Handler) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "periodID", "payroll period not found")
	if !ok {
		return
	}
	period, err := h.Service.GetPeriod(r.Context(), periodID)
	if err != nil {
		h.writeServiceError(w, r, err, "payroll_period_get_failed", "failed to load payroll period")
		return
	}
	api.Success(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListInputs(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "periodID", "payroll period not found")
	if !ok {
		return
	}
	inputs, err := h.Service.ListInputs(r.Context(), periodID)
	if err != nil {
		h.writeServiceError(w, r, err, "payroll_input_list_failed", "failed to list payroll inputs")
		return
	}
	api.Success(w, nonNil(inputs), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSaveInputs(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	periodID, ok := pathID(w, r, "periodID", "payroll period not found")
	if !ok {
		return
	}
	var payload inputsPayload
	if !shared.DecodeAndValidate(w, r, &payload, requestID) {
		return
	}

	inputs := make([]payroll.Input, 0, len(payload.Inputs))
	for _, line := range payload.Inputs {
		inputs = append(inputs, payroll.Input{
			EmployeeID:    line.EmployeeID,
			OvertimeHours: line.OvertimeHours,
			Allowances:    line.Allowances,
		})
	}
	if err := h.Service.SaveInputs(r.Context(), periodID, inputs); err != nil {
		h.writeServiceError(w, r, err, "payroll_input_save_failed", "failed to save payroll inputs")
		return
	}
	h.recordAudit(r, payroll.ActionInputsSave, payroll.EntityPayrollPeriod, periodID, nil, inputs)
	api.Success(w, map[string]int{"saved": len(inputs)}, requestID)
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "periodID", "payroll period not found")
	if !ok {
		return
	}
	results, summary, err := h.Service.ListResults(r.Context(), periodID)
	if err != nil {
		h.writeServiceError(w, r, err, "payroll_results_failed", "failed to list payroll results")
		return
	}
	api.Success(w, resultsResponse{Results: nonNil(results), Summary: summary}, middleware.GetRequestID(r.Context()))
}

// handleRunPayroll computes the period synchronously, or hands it to the job
// queue with ?async=true and answers 202 with the job id to poll.
func (h *Handler) handleRunPayroll(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	periodID, ok := pathID(w, r, "periodID", "payroll period not found")
	if !ok {
		return
	}
	before, err := h.Service.GetPeriod(r.Context(), periodID)
	if err != nil {
		h.writeServiceError(w, r, err, "payroll_run_failed", "failed to load payroll period")
		return
	}
	if before.Status == payroll.PeriodStatusFinalized {
		h.writeServiceError(w, r, payroll.ErrPeriodFinalized, "payroll_run_failed", "payroll period already finalized")
		return
	}

	run := func(ctx context.Context) (any, error) {
		return h.Service.RunPeriod(ctx, periodID)
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		jobID, err := h.Jobs.Enqueue(r.Context(), jobs.JobPayrollRun, run)
		if err != nil {
			h.writeServiceError(w, r, err, "payroll_run_failed", "failed to queue payroll run")
			return
		}
		h.recordAudit(r, payroll.ActionRun, payroll.EntityPayrollPeriod, periodID, before, map[string]string{"jobId": jobID})
		api.Accepted(w, map[string]string{"jobId": jobID, "periodId": periodID}, requestID)
		return
	}

	out, err := h.Jobs.RunNow(r.Context(), jobs.JobPayrollRun, run)
	if err != nil {
		h.writeServiceError(w, r, err, "payroll_run_failed", "failed to run payroll")
		return
	}
	summary, _ := out.(payroll.RunSummary)
	h.recordAudit(r, payroll.ActionRun, payroll.EntityPayrollPeriod, periodID, before, summary)
	api.Success(w, summary, requestID)
}

func (h *Handler) handleFinalizePayroll(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	periodID, ok := pathID(w, r, "periodID", "payroll period not found")
	if !ok {
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader))
	if idempotencyKey == "" {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: middleware.IdempotencyHeader, Reason: "is required"}})
		return
	}
	requestHash := middleware.RequestHash(periodID)
	stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, payroll.ActionFinalize, idempotencyKey, requestHash)
	if errors.Is(err, middleware.ErrIdempotencyConflict) {
		api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), requestID)
		return
	}
	if err != nil {
		h.Logger.Warn("idempotency check failed", "err", err, "requestId", requestID)
	}
	if found {
		api.Success(w, stored, requestID)
		return
	}

	summary, err := h.Service.FinalizePeriod(r.Context(), periodID)
	if err != nil {
		h.writeServiceError(w, r, err, "payroll_finalize_failed", "failed to finalize payroll")
		return
	}
	h.recordAudit(r, payroll.ActionFinalize, payroll.EntityPayrollPeriod, periodID, nil, summary)

	payload, err := json.Marshal(summary)
	if err != nil {
		h.Logger.Warn("finalize response marshal failed", "err", err)
	} else if err := h.Idempotency.Save(r.Context(), user.UserID, payroll.ActionFinalize, idempotencyKey, requestHash, payload); err != nil {
		h.Logger.Warn("idempotency save failed", "err", err, "requestId", requestID)
	}
	api.Success(w, summary, requestID)
}

func (h *Handler) handleReopenPeriod(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	periodID, ok := pathID(w, r, "periodID", "payroll period not found")
	if !ok {
		return
	}
	var payload reopenPayload
	if !shared.DecodeAndValidate(w, r, &payload, requestID) {
		return
	}
	before, err := h.Service.GetPeriod(r.Context(), periodID)
	if err != nil {
		h.writeServiceError(w, r, err, "payroll_reopen_failed", "failed to load payroll period")
		return
	}
	if err := h.Service.ReopenPeriod(r.Context(), periodID, payload.Reason); err != nil {
		h.writeServiceError(w, r, err, "payroll_reopen_failed", "failed to reopen payroll")
		return
	}
	h.recordAudit(r, payroll.ActionReopen, payroll.EntityPayrollPeriod, periodID, before, payload)
	api.Success(w, map[string]string{"status": payroll.PeriodStatusDraft}, requestID)
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "jobID", "job run not found")
	if !ok {
		return
	}
	run, err := h.Service.GetJobRun(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, r, err, "job_lookup_failed", "failed to load job run")
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
