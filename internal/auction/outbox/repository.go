package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
)

// Repository persists outbox rows. Inserts run inside the same transaction as
// the state change they describe, so an event can never describe state that
// was rolled back (commit-then-publish).
type Repository struct {
	db sqlutil.DBTX
}

func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx sqlutil.DBTX) *Repository {
	return &Repository{db: tx}
}

// Insert enqueues a draft-scoped event.
func (r *Repository) Insert(ctx context.Context, draftID uuid.UUID, eventType string, payload []byte) error {
	return r.insert(ctx, draftID, nil, eventType, payload)
}

// InsertForRoster enqueues an event scoped to one roster's private group.
func (r *Repository) InsertForRoster(ctx context.Context, draftID, rosterID uuid.UUID, eventType string, payload []byte) error {
	return r.insert(ctx, draftID, &rosterID, eventType, payload)
}

func (r *Repository) insert(ctx context.Context, draftID uuid.UUID, rosterID *uuid.UUID, eventType string, payload []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO auction_outbox (id, draft_id, roster_id, event_type, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), draftID, rosterID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

// FetchUnsent claims up to limit unsent events, oldest first, skipping rows
// another relay instance holds locked.
func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, draft_id, roster_id, event_type, payload, created_at
		 FROM auction_outbox
		 WHERE sent_at IS NULL
		 ORDER BY created_at
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.DraftID, &e.RosterID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}
	return events, nil
}

// MarkSent stamps the given events as relayed.
func (r *Repository) MarkSent(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`UPDATE auction_outbox SET sent_at = now() WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox events as sent: %w", err)
	}
	return nil
}
