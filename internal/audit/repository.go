package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timeLayout is fixed width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"
)

// Execution is one executed rule action.
type Execution struct {
	ID      string `json:"id"`
	CycleID string `json:"cycle_id"`
	Event   string `json:"event"`
	Source  string `json:"source"`
	Rule    string `json:"rule"`

	// State is the value that triggered the rule, as JSON.
	State   any    `json:"state,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Duration   time.Duration `json:"duration"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// Filter selects executions to list.
type Filter struct {
	// Rule matches a rule name exactly, or a scope when it ends in "/".
	Rule string

	FailedOnly bool
	Since      time.Time

	Limit  int // default 50, max 200
	Offset int
}

// ListResult is a page of executions, newest first.
type ListResult struct {
	Executions []Execution `json:"executions"`
	Total      int         `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}

// Repository stores and lists rule executions.
type Repository interface {
	Record(ctx context.Context, execs ...*Execution) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository is the rule_executions table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository over db. The rule_executions
// migration must have been applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts executions in one transaction. Missing IDs and
// timestamps are filled in.
func (r *SQLiteRepository) Record(ctx context.Context, execs ...*Execution) error {
	if len(execs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rule_executions
			(id, cycle_id, event, source, rule, state, success, error, duration_us, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range execs {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.ExecutedAt.IsZero() {
			e.ExecutedAt = time.Now().UTC()
		}
		_, err := stmt.ExecContext(ctx,
			e.ID, e.CycleID, e.Event, e.Source, e.Rule,
			encodeState(e.State), e.Success, nullable(e.Error),
			e.Duration.Microseconds(), e.ExecutedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting execution of %s: %w", e.Rule, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing executions: %w", err)
	}
	return nil
}

// List returns executions matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	filter.Limit = min(filter.Limit, maxLimit)
	filter.Offset = max(filter.Offset, 0)

	where, args := filter.where()

	var total int
	countQuery := "SELECT COUNT(*) FROM rule_executions" + where //nolint:gosec // placeholders only
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting executions: %w", err)
	}

	query := `SELECT id, cycle_id, event, source, rule, state, success, error, duration_us, executed_at
		FROM rule_executions` + where + ` ORDER BY executed_at DESC, rowid DESC LIMIT ? OFFSET ?` //nolint:gosec // placeholders only
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	execs := []Execution{}
	for rows.Next() {
		var (
			e          Execution
			state, msg sql.NullString
			durationUS int64
			executedAt string
		)
		if err := rows.Scan(&e.ID, &e.CycleID, &e.Event, &e.Source, &e.Rule,
			&state, &e.Success, &msg, &durationUS, &executedAt); err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		if state.Valid {
			var v any
			if json.Unmarshal([]byte(state.String), &v) == nil {
				e.State = v
			}
		}
		e.Error = msg.String
		e.Duration = time.Duration(durationUS) * time.Microsecond
		if e.ExecutedAt, err = time.Parse(timeLayout, executedAt); err != nil {
			return nil, fmt.Errorf("parsing execution timestamp %q: %w", executedAt, err)
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}

	return &ListResult{
		Executions: execs,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any

	switch {
	case strings.HasSuffix(f.Rule, "/"):
		conds = append(conds, "substr(rule, 1, ?) = ?")
		args = append(args, len(f.Rule), f.Rule)
	case f.Rule != "":
		conds = append(conds, "rule = ?")
		args = append(args, f.Rule)
	}
	if f.FailedOnly {
		conds = append(conds, "success = 0")
	}
	if !f.Since.IsZero() {
		conds = append(conds, "executed_at >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// encodeState stores the triggering value as JSON, or NULL when there is
// none or it cannot be encoded.
func encodeState(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
