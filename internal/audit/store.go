package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when an audit event does not exist.
var ErrNotFound = errors.New("audit event not found")

// Outcomes of an audited request.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeFailure = "failure"
)

// Event is one audited API call.
type Event struct {
	ID         int64     `json:"id" db:"id"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
	ActorID    *string   `json:"actor_id,omitempty" db:"actor_id"`
	ActorRole  *string   `json:"actor_role,omitempty" db:"actor_role"`
	Action     string    `json:"action" db:"action"`
	Route      string    `json:"route" db:"route"`
	ResourceID *string   `json:"resource_id,omitempty" db:"resource_id"`
	Status     int       `json:"status" db:"status"`
	Outcome    string    `json:"outcome" db:"outcome"`
	RequestID  *string   `json:"request_id,omitempty" db:"request_id"`
	IPAddress  *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string   `json:"user_agent,omitempty" db:"user_agent"`
}

// QueryParams filters audit events. Nil fields match everything.
type QueryParams struct {
	ActorID   *string
	Action    *string
	Route     *string
	Outcome   *string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Store defines audit event storage operations.
type Store interface {
	Log(ctx context.Context, e Event) (int64, error)
	Query(ctx context.Context, params QueryParams) ([]Event, int, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
}

const eventColumns = `id, occurred_at, actor_id, actor_role, action, route, resource_id, status, outcome, request_id, ip_address, user_agent`

type store struct {
	db *sqlx.DB
}

// NewStore creates a new audit store.
func NewStore(db *sqlx.DB) Store {
	return &store{db: db}
}

func (s *store) Log(ctx context.Context, e Event) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO audit_events (actor_id, actor_role, action, route, resource_id, status, outcome, request_id, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		e.ActorID, e.ActorRole, e.Action, e.Route, e.ResourceID, e.Status, e.Outcome, e.RequestID, e.IPAddress, e.UserAgent,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to write audit event: %w", err)
	}
	return id, nil
}

// buildQuery renders the filtered select and count statements with
// PostgreSQL placeholders.
func buildQuery(params QueryParams) (query string, args []any, count string, countArgs []any) {
	var where []string
	add := func(clause string, v any) {
		where = append(where, clause)
		countArgs = append(countArgs, v)
	}
	if params.ActorID != nil {
		add("actor_id = ?", *params.ActorID)
	}
	if params.Action != nil {
		add("action = ?", *params.Action)
	}
	if params.Route != nil {
		add("route = ?", *params.Route)
	}
	if params.Outcome != nil {
		add("outcome = ?", *params.Outcome)
	}
	if params.StartTime != nil {
		add("occurred_at >= ?", *params.StartTime)
	}
	if params.EndTime != nil {
		add("occurred_at <= ?", *params.EndTime)
	}

	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}
	count = sqlx.Rebind(sqlx.DOLLAR, `SELECT COUNT(*) FROM audit_events`+filter)

	query = `SELECT ` + eventColumns + ` FROM audit_events` + filter + ` ORDER BY occurred_at DESC, id DESC`
	args = append([]any{}, countArgs...)
	if params.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, params.Limit)
	}
	if params.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, params.Offset)
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args, count, countArgs
}

func (s *store) Query(ctx context.Context, params QueryParams) ([]Event, int, error) {
	query, args, count, countArgs := buildQuery(params)

	var total int
	if err := s.db.GetContext(ctx, &total, count, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	events := []Event{}
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query audit events: %w", err)
	}
	return events, total, nil
}

func (s *store) GetEvent(ctx context.Context, id int64) (Event, error) {
	var e Event
	err := s.db.GetContext(ctx, &e, `SELECT `+eventColumns+` FROM audit_events WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("failed to get audit event: %w", err)
	}
	return e, nil
}
