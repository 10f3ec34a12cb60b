package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
)

// DueNomination identifies a nomination whose deadline has lapsed.
type DueNomination struct {
	ID      uuid.UUID
	DraftID uuid.UUID
}

// Repository reads persisted deadlines. Deadlines live in the database, not
// in process memory, so a restarted scheduler resumes exactly where the last
// one stopped.
type Repository struct {
	db sqlutil.DBTX
}

func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// FetchNextDeadline returns the soonest deadline across active nominations
// and armed turn timers of in-progress drafts, or nil when nothing is armed.
func (r *Repository) FetchNextDeadline(ctx context.Context) (*time.Time, error) {
	var next *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT MIN(deadline) FROM (
			SELECT n.deadline
			FROM nominations n
			JOIN drafts d ON d.id = n.draft_id
			WHERE n.status = 'ACTIVE' AND n.deadline IS NOT NULL AND d.status = 'IN_PROGRESS'
			UNION ALL
			SELECT turn_deadline
			FROM drafts
			WHERE status = 'IN_PROGRESS' AND turn_deadline IS NOT NULL
		 ) deadlines`,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	return next, nil
}

// FetchDueNominations returns active nominations whose deadline has passed,
// oldest deadline first.
func (r *Repository) FetchDueNominations(ctx context.Context, limit int32) ([]DueNomination, error) {
	rows, err := r.db.Query(ctx,
		`SELECT n.id, n.draft_id
		 FROM nominations n
		 JOIN drafts d ON d.id = n.draft_id
		 WHERE n.status = 'ACTIVE' AND n.deadline IS NOT NULL AND n.deadline <= now()
		   AND d.status = 'IN_PROGRESS'
		 ORDER BY n.deadline
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due nominations: %w", err)
	}
	defer rows.Close()

	var due []DueNomination
	for rows.Next() {
		var d DueNomination
		if err := rows.Scan(&d.ID, &d.DraftID); err != nil {
			return nil, fmt.Errorf("failed to scan due nomination: %w", err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due nominations: %w", err)
	}
	return due, nil
}

// FetchDueTurns returns in-progress drafts whose turn deadline has passed.
func (r *Repository) FetchDueTurns(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM drafts
		 WHERE status = 'IN_PROGRESS' AND turn_deadline IS NOT NULL AND turn_deadline <= now()
		 ORDER BY turn_deadline
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due turns: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan due turn: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due turns: %w", err)
	}
	return ids, nil
}
