package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vita-labs/recallai/internal/domain"
)

// FeedbackRepository stores answer feedback in a durable append-only log.
type FeedbackRepository struct {
	db dbtx
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: pool}
}

// Append records one feedback verdict.
func (r *FeedbackRepository) Append(ctx context.Context, entry *domain.FeedbackEntry) error {
	if err := domain.ValidateFeedbackEntry(entry); err != nil {
		return err
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO feedback_log (requester_id, question, answer, sources, verdict, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		entry.RequesterID,
		entry.Question,
		entry.Answer,
		entry.Sources,
		entry.Verdict,
		createdAt,
	).Scan(&entry.ID)
}

// Recent returns the most recent feedback entries, newest first.
func (r *FeedbackRepository) Recent(ctx context.Context, limit int) ([]*domain.FeedbackEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, requester_id, question, answer, sources, verdict, created_at
		 FROM feedback_log
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.FeedbackEntry
	for rows.Next() {
		var e domain.FeedbackEntry
		if err := rows.Scan(&e.ID, &e.RequesterID, &e.Question, &e.Answer, &e.Sources, &e.Verdict, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
