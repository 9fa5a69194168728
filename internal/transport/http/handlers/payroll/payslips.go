package payrollhandler

import (
	"bytes"
	"net/http"
	"time"

	"phpayroll/internal/domain/auth"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

// handleListPayslips lists the caller's own payslips. Admins may pass
// ?employeeId= to read any employee's.
func (h *Handler) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	employeeID := user.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && h.canReadAll(r) {
		employeeID = requested
	}
	page := shared.ParsePagination(r, 25, 100)
	if employeeID == "" {
		api.Paged(w, api.Page{Limit: page.Limit, Offset: page.Offset}, requestID)
		return
	}

	slips, total, err := h.Service.ListPayslips(r.Context(), employeeID, page.Limit, page.Offset)
	if err != nil {
		h.writeServiceError(w, r, err, "payslip_list_failed", "failed to list payslips")
		return
	}
	api.Paged(w, api.Page{Items: nonNil(slips), Total: total, Limit: page.Limit, Offset: page.Offset}, requestID)
}

func (h *Handler) handleDownloadPayslip(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	payslipID, ok := pathID(w, r, "payslipID", "payslip not found")
	if !ok {
		return
	}

	ref, err := h.Service.GetPayslip(r.Context(), payslipID)
	if err != nil {
		h.writeServiceError(w, r, err, "payslip_lookup_failed", "failed to load payslip")
		return
	}
	if !h.canReadAll(r) && (user.EmployeeID == "" || user.EmployeeID != ref.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
		return
	}

	file, err := h.Service.OpenPayslip(r.Context(), ref)
	if err != nil {
		h.writeServiceError(w, r, err, "payslip_download_failed", "failed to load payslip")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	http.ServeContent(w, r, file.Name, time.Time{}, bytes.NewReader(file.Content))
}

func (h *Handler) canReadAll(r *http.Request) bool {
	return middleware.Can(r.Context(), h.Perms, auth.PermPayslipsReadAll)
}
