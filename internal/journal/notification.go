package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotificationNotFound is returned by GetNotification when no row matches.
var ErrNotificationNotFound = errors.New("journal: notification not found")

// NotificationType enumerates the notification kinds.
type NotificationType string

// Pending, Approved, Rejected, Info, Success, and Error are the notification
// types the core emits.
const (
	NotificationPending  NotificationType = "pending"
	NotificationApproved NotificationType = "approved"
	NotificationRejected NotificationType = "rejected"
	NotificationInfo     NotificationType = "info"
	NotificationSuccess  NotificationType = "success"
	NotificationError    NotificationType = "error"
)

// Notification is a row in the notifications table.
type Notification struct {
	ID         string
	Type       NotificationType
	Message    string
	ProposalID string
	TraceID    string
	CreatedAt  time.Time
	DismissedAt *time.Time
	Metadata   map[string]any
}

// Active reports whether the notification has not been dismissed.
func (n Notification) Active() bool {
	return n.DismissedAt == nil
}

// Notify inserts a new notification row directly via the write connection.
// Unlike activity events, notifications are not batched: they back an
// operator-facing UI that needs monotonic dismiss semantics, which are
// simplest to reason about against an immediately-durable row.
func (j *Journal) Notify(n Notification) (string, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return "", fmt.Errorf("journal: marshal notification metadata: %w", err)
	}

	var proposalID, traceID sql.NullString
	if n.ProposalID != "" {
		proposalID = sql.NullString{String: n.ProposalID, Valid: true}
	}
	if n.TraceID != "" {
		traceID = sql.NullString{String: n.TraceID, Valid: true}
	}

	_, err = j.db.Exec(
		`INSERT INTO notifications (id, type, message, proposal_id, trace_id, created_at, dismissed_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, ?)`,
		n.ID, string(n.Type), n.Message, proposalID, traceID, n.CreatedAt.Format(time.RFC3339Nano), string(metadata))
	if err != nil {
		return "", fmt.Errorf("journal: insert notification: %w", err)
	}
	return n.ID, nil
}

// Dismiss marks a notification dismissed. A second dismiss of an
// already-dismissed notification is a no-op; the first timestamp wins.
func (j *Journal) Dismiss(id string) error {
	res, err := j.db.Exec(
		`UPDATE notifications SET dismissed_at = ? WHERE id = ? AND dismissed_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("journal: dismiss notification: %w", err)
	}
	// A zero rows-affected is expected (and fine) when already dismissed or
	// when id does not exist; Dismiss is idempotent by design.
	_, _ = res.RowsAffected()
	return nil
}

// GetNotification fetches a single notification by id, regardless of
// dismissal state.
func (j *Journal) GetNotification(id string) (Notification, error) {
	rows, err := j.readDB.Query(
		`SELECT id, type, message, proposal_id, trace_id, created_at, dismissed_at, metadata
		 FROM notifications WHERE id = ?`, id)
	if err != nil {
		return Notification{}, fmt.Errorf("journal: query notification: %w", err)
	}
	defer rows.Close()

	result, err := scanNotifications(rows)
	if err != nil {
		return Notification{}, err
	}
	if len(result) == 0 {
		return Notification{}, ErrNotificationNotFound
	}
	return result[0], nil
}

// ActiveNotifications returns all notifications that have not been
// dismissed.
func (j *Journal) ActiveNotifications() ([]Notification, error) {
	rows, err := j.readDB.Query(
		`SELECT id, type, message, proposal_id, trace_id, created_at, dismissed_at, metadata
		 FROM notifications WHERE dismissed_at IS NULL ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("journal: query active notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanNotifications(rows rowsScanner) ([]Notification, error) {
	var out []Notification
	for rows.Next() {
		var n Notification
		var typ, createdAt, metadata string
		var proposalID, traceID, dismissedAt sql.NullString
		if err := rows.Scan(&n.ID, &typ, &n.Message, &proposalID, &traceID, &createdAt, &dismissedAt, &metadata); err != nil {
			return nil, fmt.Errorf("journal: scan notification: %w", err)
		}
		n.Type = NotificationType(typ)
		if proposalID.Valid {
			n.ProposalID = proposalID.String
		}
		if traceID.Valid {
			n.TraceID = traceID.String
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("journal: parse created_at: %w", err)
		}
		n.CreatedAt = ts
		if dismissedAt.Valid {
			d, err := time.Parse(time.RFC3339Nano, dismissedAt.String)
			if err != nil {
				return nil, fmt.Errorf("journal: parse dismissed_at: %w", err)
			}
			n.DismissedAt = &d
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
				return nil, fmt.Errorf("journal: unmarshal metadata: %w", err)
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
