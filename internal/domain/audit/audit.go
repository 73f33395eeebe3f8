package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one admin-visible trail entry. Free-text comments and answer
// values never land here; submission events carry a redacted summary.
type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorID    string
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

// exportCap bounds the CSV download so a runaway trail cannot exhaust the
// process.
const exportCap = 10000

// marshalDetail renders an optional detail payload for a nullable JSONB
// column: nil stays SQL NULL rather than becoming the JSON literal null.
func marshalDetail(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	beforeJSON, err := marshalDetail(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalDetail(after)
	if err != nil {
		return err
	}

	_, err = s.DB.Exec(ctx,
		`INSERT INTO audit_events (actor_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		actorID, action, entityType, entityID, beforeJSON, afterJSON, requestID, ip)
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := whereClause(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM audit_events"+where, args...).Scan(&total)
	return total, err
}

// List returns newest-first events. before/after payloads are only loaded
// when includeDetails is set; the default listing stays light.
func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	cols := "id, actor_id, action, entity_type, entity_id, request_id, ip, created_at"
	if includeDetails {
		cols += ", before_json, after_json"
	}
	where, args := whereClause(filter)
	query := fmt.Sprintf("SELECT %s FROM audit_events%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cols, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		evt, err := scanEvent(rows, includeDetails)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

// ListExport returns the newest entries for the CSV download.
func (s *Service) ListExport(ctx context.Context) ([]Event, error) {
	return s.List(ctx, Filter{}, false, exportCap, 0)
}

func scanEvent(rows pgx.Rows, withDetails bool) (Event, error) {
	var evt Event
	dest := []any{&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
	if withDetails {
		dest = append(dest, &evt.Before, &evt.After)
	}
	return evt, rows.Scan(dest...)
}

func whereClause(filter Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(expr, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	add("action = $%d", filter.Action)
	add("entity_type = $%d", filter.EntityType)
	add("actor_id = $%d", filter.ActorID)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
