package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vita-labs/recallai/internal/domain"
)

var ErrDeadLetterNotFound = errors.New("dead letter entry not found")

// DeadLetterRepository is the append-only DLQ. Entries are never deleted:
// a successful replay flips the status to replayed, preserving history.
type DeadLetterRepository struct {
	db dbtx
}

func NewDeadLetterRepository(pool *pgxpool.Pool) *DeadLetterRepository {
	return &DeadLetterRepository{db: pool}
}

func NewDeadLetterRepositoryWithTx(tx dbtx) *DeadLetterRepository {
	return &DeadLetterRepository{db: tx}
}

// Append records a failed processing attempt. Safe for concurrent writers;
// ordering comes from the sequence column, not the caller.
func (r *DeadLetterRepository) Append(ctx context.Context, entry *domain.DeadLetterEntry) error {
	if err := domain.ValidateDeadLetterEntry(entry); err != nil {
		return err
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO dead_letters (unit_id, original_request, error_message, failed_at_step, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		entry.UnitID,
		entry.OriginalRequest,
		entry.ErrorMessage,
		entry.FailedAtStep,
		domain.DeadLetterPending,
		createdAt,
	).Scan(&entry.ID)
}

// Pending returns up to limit entries awaiting replay, oldest first.
func (r *DeadLetterRepository) Pending(ctx context.Context, limit int) ([]*domain.DeadLetterEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, unit_id, original_request, error_message, failed_at_step, status, created_at, replayed_at
		 FROM dead_letters
		 WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		domain.DeadLetterPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.DeadLetterEntry
	for rows.Next() {
		var e domain.DeadLetterEntry
		if err := rows.Scan(&e.ID, &e.UnitID, &e.OriginalRequest, &e.ErrorMessage, &e.FailedAtStep, &e.Status, &e.CreatedAt, &e.ReplayedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// MarkReplayed flags an entry as superseded by a successful resubmission.
func (r *DeadLetterRepository) MarkReplayed(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE dead_letters SET status = $2, replayed_at = now() WHERE id = $1`,
		id, domain.DeadLetterReplayed,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeadLetterNotFound
	}
	return nil
}

// CountPendingByUnit reports pending entries for one unit; used to verify
// that a replay did not raise a fresh failure for the same ID.
func (r *DeadLetterRepository) CountPendingByUnit(ctx context.Context, unitID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM dead_letters WHERE unit_id = $1 AND status = $2`,
		unitID, domain.DeadLetterPending,
	).Scan(&count)
	return count, err
}
