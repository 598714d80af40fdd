package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffhub/staffhub/internal/shared"
)

// PostgresStore appends events to audit_events. Rows are never updated or
// deleted by the application.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Record persists the event.
func (s *PostgresStore) Record(ctx context.Context, e Event) error {
	if s == nil || s.pool == nil {
		return errors.New("audit: store not initialised")
	}
	if e.ID == "" || e.EventType == "" || e.Action == "" {
		return errors.New("audit: event requires id/event_type/action")
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return err
	}
	roles := make([]string, len(e.ActorRoles))
	for i, r := range e.ActorRoles {
		roles[i] = string(r)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO audit_events
		(id, event_type, actor_id, actor_roles, occurred_at, resource_type, resource_id, action, details, success, security_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.EventType), e.ActorID, roles, e.Timestamp,
		optionalText(e.ResourceType), optionalText(e.ResourceID), e.Action, details, e.Success, string(e.SecurityLevel))
	return err
}

// Query returns events matching filters, newest first.
func (s *PostgresStore) Query(ctx context.Context, filters Filters, limit, offset int) ([]Event, error) {
	where, args := buildWhere(filters)
	query := `SELECT id, event_type, actor_id, actor_roles, occurred_at, resource_type, resource_id, action, details, success, security_level
		FROM audit_events` + where + ` ORDER BY occurred_at DESC, id`
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		var (
			e            Event
			eventType    string
			roles        []string
			resourceType pgtype.Text
			resourceID   pgtype.Text
			details      []byte
			level        string
		)
		if err := rows.Scan(&e.ID, &eventType, &e.ActorID, &roles, &e.Timestamp, &resourceType, &resourceID, &e.Action, &details, &e.Success, &level); err != nil {
			return nil, err
		}
		e.EventType = EventType(eventType)
		e.SecurityLevel = SecurityLevel(level)
		e.ResourceType = resourceType.String
		e.ResourceID = resourceID.String
		for _, r := range roles {
			e.ActorRoles = append(e.ActorRoles, shared.Role(r))
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("audit: decode details %s: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func buildWhere(f Filters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.EventType != "" {
		add("event_type = $%d", string(f.EventType))
	}
	if f.UserID != "" {
		add("actor_id = $%d", f.UserID)
	}
	if f.ResourceType != "" {
		add("resource_type = $%d", f.ResourceType)
	}
	if f.ResourceID != "" {
		add("resource_id = $%d", f.ResourceID)
	}
	if !f.DateFrom.IsZero() {
		add("occurred_at >= $%d", f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		add("occurred_at <= $%d", f.DateTo)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
