package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Event is one recorded payroll mutation. Before and After hold the entity
// state around the change and are only loaded for the JSON listing.
type Event struct {
	ID         string          `json:"id" db:"id"`
	ActorID    string          `json:"actorId" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entityType" db:"entity_type"`
	EntityID   string          `json:"entityId" db:"entity_id"`
	RequestID  string          `json:"requestId" db:"request_id"`
	IP         string          `json:"ip" db:"ip"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	Before     json.RawMessage `json:"before,omitempty" db:"before_json"`
	After      json.RawMessage `json:"after,omitempty" db:"after_json"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	From       *time.Time
	To         *time.Time
}

type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Service struct {
	db Querier
}

func New(db Querier) *Service {
	return &Service{db: db}
}

const (
	summaryColumns = "id, actor_id, action, entity_type, entity_id, request_id, ip, created_at"
	detailColumns  = summaryColumns + ", before_json, after_json"
)

// Record stores one mutation. before and after are marshalled to JSON as-is.
func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	beforeJSON, err := marshalState(before)
	if err != nil {
		return fmt.Errorf("marshal before state: %w", err)
	}
	afterJSON, err := marshalState(after)
	if err != nil {
		return fmt.Errorf("marshal after state: %w", err)
	}
	_, err = s.db.Exec(ctx, `
    INSERT INTO audit_events (actor_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
  `, actorID, action, entityType, entityID, beforeJSON, afterJSON, requestID, ip)
	if err != nil {
		return fmt.Errorf("insert audit event %s: %w", action, err)
	}
	return nil
}

func marshalState(state any) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := whereClause(filter)
	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(1) FROM audit_events"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns one page of events, newest first. includeDetails adds the
// before/after snapshots.
func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	columns := summaryColumns
	if includeDetails {
		columns = detailColumns
	}
	where, args := whereClause(filter)
	query := fmt.Sprintf("SELECT %s FROM audit_events%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		columns, where, len(args)+1, len(args)+2)
	return s.collect(ctx, query, append(args, limit, offset)...)
}

// ListExport returns every matching event without snapshots for CSV export.
func (s *Service) ListExport(ctx context.Context, filter Filter) ([]Event, error) {
	where, args := whereClause(filter)
	return s.collect(ctx, "SELECT "+summaryColumns+" FROM audit_events"+where+" ORDER BY created_at DESC", args...)
}

func (s *Service) collect(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByNameLax[Event])
}

func whereClause(filter Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	for _, eq := range []struct{ column, value string }{
		{"action", filter.Action},
		{"entity_type", filter.EntityType},
		{"entity_id", filter.EntityID},
		{"actor_id", filter.ActorID},
	} {
		if eq.value != "" {
			add(eq.column+" = $%d", eq.value)
		}
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
