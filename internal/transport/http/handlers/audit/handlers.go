package audithandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"

	"phpayroll/internal/domain/audit"
	"phpayroll/internal/domain/auth"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

type EventReader interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
	ListExport(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

type Handler struct {
	Service EventReader
	Perms   middleware.PermissionStore
	Logger  *slog.Logger
}

func NewHandler(service EventReader, perms middleware.PermissionStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: service, Perms: perms, Logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events", h.handleListEvents)
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events/export", h.handleExportEvents)
	})
}

// filterFromQuery reads the equality filters and the optional from/to window.
func filterFromQuery(r *http.Request) (audit.Filter, []shared.ValidationIssue) {
	query := r.URL.Query()
	var issues []shared.ValidationIssue
	filter := audit.Filter{
		Action:     query.Get("action"),
		EntityType: query.Get("entityType"),
		EntityID:   query.Get("entityId"),
		ActorID:    query.Get("actorId"),
		From:       shared.TimeParam(query, "from", &issues),
		To:         shared.TimeParam(query, "to", &issues),
	}
	return filter, issues
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 100, 500)
	filter, issues := filterFromQuery(r)
	if len(issues) > 0 {
		shared.FailValidation(w, requestID, issues)
		return
	}
	includeDetails := r.URL.Query().Get("includeDetails") == "true"

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		h.Logger.Warn("audit count failed", "err", err)
	}

	events, err := h.Service.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		h.Logger.Error("audit list failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", requestID)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	api.Paged(w, api.Page{Items: events, Total: total, Limit: page.Limit, Offset: page.Offset}, requestID)
}

// exportRow is one CSV line of the audit export. Details are left out.
type exportRow struct {
	ID         string `csv:"id"`
	ActorID    string `csv:"actor_id"`
	Action     string `csv:"action"`
	EntityType string `csv:"entity_type"`
	EntityID   string `csv:"entity_id"`
	RequestID  string `csv:"request_id"`
	IP         string `csv:"ip"`
	CreatedAt  string `csv:"created_at"`
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	filter, issues := filterFromQuery(r)
	if len(issues) > 0 {
		shared.FailValidation(w, requestID, issues)
		return
	}
	events, err := h.Service.ListExport(r.Context(), filter)
	if err != nil {
		h.Logger.Error("audit export failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", requestID)
		return
	}

	rows := make([]exportRow, 0, len(events))
	for _, evt := range events {
		rows = append(rows, exportRow{
			ID:         evt.ID,
			ActorID:    evt.ActorID,
			Action:     evt.Action,
			EntityType: evt.EntityType,
			EntityID:   evt.EntityID,
			RequestID:  evt.RequestID,
			IP:         evt.IP,
			CreatedAt:  evt.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	if err := gocsv.Marshal(rows, w); err != nil {
		h.Logger.Warn("audit export write failed", "err", err)
	}
}
