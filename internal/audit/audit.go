package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	RoleCustomer = "Customer"
	RoleStaff    = "Staff"
	RoleAdmin    = "Admin"
)

// Entry is one immutable audit trail record. AccountInfo carries a
// denormalized snapshot of the actor's account or staff record at the
// time of the action, so the trail stays meaningful if the account is
// later edited or removed.
type Entry struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	Role        string         `json:"role"`
	Action      string         `json:"action"`
	AffectedID  string         `json:"affectedId"`
	Timestamp   time.Time      `json:"timestamp"`
	AccountInfo map[string]any `json:"accountInfo"`
}

// Recorder is the append-only audit trail. Append never updates or
// deletes existing records.
type Recorder interface {
	Append(ctx context.Context, entry *Entry) error
	// ListByRole returns entries newest first, filtered by role when
	// role is non-empty.
	ListByRole(ctx context.Context, role string) ([]Entry, error)
}

type postgresRecorder struct {
	db *pgxpool.Pool
}

func NewRecorder(db *pgxpool.Pool) Recorder {
	return &postgresRecorder{db: db}
}

func (r *postgresRecorder) Append(ctx context.Context, entry *Entry) error {
	info := entry.AccountInfo
	if info == nil {
		info = map[string]any{}
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal account info snapshot: %w", err)
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_trail_logs (username, role, action, affected_id, occurred_at, account_info)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING id
	`

	err = r.db.QueryRow(ctx, query,
		entry.Username,
		entry.Role,
		entry.Action,
		entry.AffectedID,
		entry.Timestamp,
		string(infoJSON),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("audit: failed to append entry: %w", err)
	}

	return nil
}

func (r *postgresRecorder) ListByRole(ctx context.Context, role string) ([]Entry, error) {
	query := `
		SELECT id, username, role, action, affected_id, occurred_at, account_info
		FROM audit_trail_logs
	`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY occurred_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		var infoJSON []byte
		if err := rows.Scan(&entry.ID, &entry.Username, &entry.Role, &entry.Action, &entry.AffectedID, &entry.Timestamp, &infoJSON); err != nil {
			return nil, fmt.Errorf("audit: failed to scan entry: %w", err)
		}
		if len(infoJSON) > 0 {
			if err := json.Unmarshal(infoJSON, &entry.AccountInfo); err != nil {
				return nil, fmt.Errorf("audit: failed to unmarshal account info snapshot: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: error iterating entries: %w", err)
	}

	return entries, nil
}
