//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vita-labs/recallai/internal/domain"
	"github.com/vita-labs/recallai/internal/testutil"
)

func setupTestPool(t *testing.T) (context.Context, *pgxpool.Pool) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)

	return ctx, pool
}

func TestLedgerRepository_TryAcquire_FreshUnit(t *testing.T) {
	ctx, pool := setupTestPool(t)
	repo := NewLedgerRepository(pool, 5*time.Minute)

	result, err := repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Acquired, result)

	state, err := repo.State(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateLocked, state)
}

func TestLedgerRepository_TryAcquire_LockedUnit(t *testing.T) {
	ctx, pool := setupTestPool(t)
	repo := NewLedgerRepository(pool, 5*time.Minute)

	result, err := repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	require.Equal(t, domain.Acquired, result)

	result, err = repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyLocked, result)
}

func TestLedgerRepository_TryAcquire_ProcessedUnit(t *testing.T) {
	ctx, pool := setupTestPool(t)
	repo := NewLedgerRepository(pool, 5*time.Minute)

	result, err := repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	require.Equal(t, domain.Acquired, result)
	require.NoError(t, repo.Commit(ctx, "msg-1"))

	result, err = repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyProcessed, result)

	state, err := repo.State(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateProcessed, state)
}

func TestLedgerRepository_Release_AllowsReacquire(t *testing.T) {
	ctx, pool := setupTestPool(t)
	repo := NewLedgerRepository(pool, 5*time.Minute)

	result, err := repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	require.Equal(t, domain.Acquired, result)
	require.NoError(t, repo.Release(ctx, "msg-1"))

	result, err = repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Acquired, result)
}

func TestLedgerRepository_Commit_WithoutLock(t *testing.T) {
	ctx, pool := setupTestPool(t)
	repo := NewLedgerRepository(pool, 5*time.Minute)

	err := repo.Commit(ctx, "never-claimed")
	assert.ErrorIs(t, err, ErrLockNotHeld)
}

func TestLedgerRepository_ExpiredLease_IsReclaimable(t *testing.T) {
	ctx, pool := setupTestPool(t)
	repo := NewLedgerRepository(pool, time.Second)

	result, err := repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	require.Equal(t, domain.Acquired, result)

	time.Sleep(1500 * time.Millisecond)

	result, err = repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Acquired, result)

	// The reclaiming holder commits the row as usual.
	require.NoError(t, repo.Commit(ctx, "msg-1"))
	state, err := repo.State(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateProcessed, state)
}

func TestLedgerRepository_Forget_AllowsReingest(t *testing.T) {
	ctx, pool := setupTestPool(t)
	repo := NewLedgerRepository(pool, 5*time.Minute)

	result, err := repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	require.Equal(t, domain.Acquired, result)
	require.NoError(t, repo.Commit(ctx, "msg-1"))

	require.NoError(t, repo.Forget(ctx, "msg-1"))

	result, err = repo.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Acquired, result)
}

func TestLedgerRepository_ConcurrentAcquire_OneWinner(t *testing.T) {
	ctx, pool := setupTestPool(t)
	repo := NewLedgerRepository(pool, 5*time.Minute)

	const workers = 10
	results := make([]domain.AcquireResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.TryAcquire(ctx, "contested")
		}(i)
	}
	wg.Wait()

	acquired := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if results[i] == domain.Acquired {
			acquired++
		} else {
			assert.Equal(t, domain.AlreadyLocked, results[i])
		}
	}
	assert.Equal(t, 1, acquired)
}

func TestLedgerRepository_State_UnknownUnit(t *testing.T) {
	ctx, pool := setupTestPool(t)
	repo := NewLedgerRepository(pool, 5*time.Minute)

	state, err := repo.State(ctx, "never-seen")
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnprocessed, state)
}
