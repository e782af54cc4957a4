package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vita-labs/recallai/internal/domain"
)

var (
	ErrLockNotHeld = errors.New("ledger lock not held for unit")
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LedgerRepository is the dedup ledger: a durable set of processed unit IDs
// with per-ID lease-based locks. All clock comparisons use the database
// clock so lease reclaim does not depend on app-server clock skew.
type LedgerRepository struct {
	db       dbtx
	leaseTTL time.Duration
}

func NewLedgerRepository(pool *pgxpool.Pool, leaseTTL time.Duration) *LedgerRepository {
	if leaseTTL <= 0 {
		leaseTTL = 5 * time.Minute
	}
	return &LedgerRepository{db: pool, leaseTTL: leaseTTL}
}

func NewLedgerRepositoryWithTx(tx dbtx, leaseTTL time.Duration) *LedgerRepository {
	return &LedgerRepository{db: tx, leaseTTL: leaseTTL}
}

// TryAcquire attempts to take the ingestion lock for unitID. The statement
// is a single atomic upsert: it wins on a fresh ID, an unprocessed row, or
// a locked row whose lease has expired. Exactly one of N concurrent callers
// observes Acquired.
func (r *LedgerRepository) TryAcquire(ctx context.Context, unitID string) (domain.AcquireResult, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO unit_ledger (unit_id, state, lease_expires_at, updated_at)
		 VALUES ($1, $2, now() + make_interval(secs => $3), now())
		 ON CONFLICT (unit_id) DO UPDATE
		 SET state = $2,
		     lease_expires_at = now() + make_interval(secs => $3),
		     updated_at = now()
		 WHERE unit_ledger.state = $4
		    OR (unit_ledger.state = $2 AND unit_ledger.lease_expires_at < now())`,
		unitID, domain.StateLocked, r.leaseTTL.Seconds(), domain.StateUnprocessed,
	)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 1 {
		return domain.Acquired, nil
	}

	state, err := r.State(ctx, unitID)
	if err != nil {
		return "", err
	}
	if state == domain.StateProcessed {
		return domain.AlreadyProcessed, nil
	}
	return domain.AlreadyLocked, nil
}

// Commit marks a locked unit as processed and releases its lease.
func (r *LedgerRepository) Commit(ctx context.Context, unitID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE unit_ledger
		 SET state = $2, lease_expires_at = NULL, updated_at = now()
		 WHERE unit_id = $1 AND state = $3`,
		unitID, domain.StateProcessed, domain.StateLocked,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// The lease expired and another attempt reclaimed it.
		return ErrLockNotHeld
	}
	return nil
}

// Release reverts a locked unit to unprocessed (failure path). Releasing a
// lock that has already been reclaimed is a no-op.
func (r *LedgerRepository) Release(ctx context.Context, unitID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE unit_ledger
		 SET state = $2, lease_expires_at = NULL, updated_at = now()
		 WHERE unit_id = $1 AND state = $3`,
		unitID, domain.StateUnprocessed, domain.StateLocked,
	)
	return err
}

// Forget removes a unit from the ledger entirely, allowing the same ID
// to be ingested again. Used when a unit is deleted from the index.
func (r *LedgerRepository) Forget(ctx context.Context, unitID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM unit_ledger WHERE unit_id = $1`, unitID)
	return err
}

// TruncateAll drops every ledger entry. Used by the index clear admin
// command when a full re-ingest is intended.
func (r *LedgerRepository) TruncateAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `TRUNCATE unit_ledger`)
	return err
}

// State returns the current processing state for unitID. An expired lock
// reads as unprocessed: the lease is reclaimable.
func (r *LedgerRepository) State(ctx context.Context, unitID string) (domain.ProcessingState, error) {
	var state domain.ProcessingState
	var expires *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT state, lease_expires_at FROM unit_ledger WHERE unit_id = $1`,
		unitID,
	).Scan(&state, &expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StateUnprocessed, nil
		}
		return "", err
	}
	if state == domain.StateLocked && expires != nil && expires.Before(time.Now().UTC()) {
		return domain.StateUnprocessed, nil
	}
	return state, nil
}
