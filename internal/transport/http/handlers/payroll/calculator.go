package payrollhandler

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/deductions"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

type previewPayload struct {
	MonthlySalary decimal.Decimal `json:"monthlySalary"`
	OvertimeHours decimal.Decimal `json:"overtimeHours"`
	Allowances    decimal.Decimal `json:"allowances"`
	PayPeriod     string          `json:"payPeriod" validate:"max=32"`
}

func (h *Handler) handleDeductions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	raw := strings.TrimSpace(r.URL.Query().Get("salary"))
	if raw == "" {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "salary", Reason: "is required"}})
		return
	}
	salary, err := decimal.NewFromString(raw)
	if err != nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "salary", Reason: "must be a decimal number"}})
		return
	}
	api.Success(w, deductions.CalculateAllDeductions(salary), requestID)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload previewPayload
	if !shared.DecodeAndValidate(w, r, &payload, requestID) {
		return
	}
	result := deductions.CalculatePayroll(deductions.PayrollInput{
		MonthlySalary: payload.MonthlySalary,
		OvertimeHours: payload.OvertimeHours,
		Allowances:    payload.Allowances,
		Period:        deductions.PayPeriod(strings.TrimSpace(payload.PayPeriod)),
	})
	api.Success(w, result, requestID)
}

func (h *Handler) handleSSSSchedule(w http.ResponseWriter, r *http.Request) {
	api.Success(w, deductions.SSSSchedule(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTaxSchedule(w http.ResponseWriter, r *http.Request) {
	api.Success(w, deductions.TaxSchedule(), middleware.GetRequestID(r.Context()))
}
