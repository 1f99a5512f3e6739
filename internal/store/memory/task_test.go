package memory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/gofer/internal/domain"
	"github.com/gosuda/gofer/internal/store/memory"
)

func newTask(owner uuid.UUID, created time.Time) *domain.Task {
	return &domain.Task{
		ID:               uuid.New(),
		TaskFields:       domain.TaskFields{Title: "errand", Category: domain.CategoryFood, Urgency: domain.UrgencyLow},
		CreatedBy:        owner,
		Status:           domain.TaskStatusPosted,
		Phase:            domain.PhaseNone,
		ModerationStatus: domain.ModerationApproved,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func TestTaskRepo_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewTaskRepo()
	task := newTask(uuid.New(), time.Now())

	require.NoError(t, repo.Create(ctx, task))
	require.ErrorIs(t, repo.Create(ctx, task), domain.ErrConflict)

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)

	// Returned values are copies.
	got.Title = "mutated"
	again, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "errand", again.Title)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskRepo_ListVisible(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewTaskRepo()
	owner, viewer := uuid.New(), uuid.New()
	base := time.Now()

	approved := newTask(owner, base)
	review := newTask(owner, base.Add(time.Second))
	review.ModerationStatus = domain.ModerationNeedsReview
	mine := newTask(viewer, base.Add(2*time.Second))
	mine.ModerationStatus = domain.ModerationNeedsReview
	for _, tk := range []*domain.Task{approved, review, mine} {
		require.NoError(t, repo.Create(ctx, tk))
	}

	got, err := repo.ListVisible(ctx, viewer, domain.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, mine.ID, got[0].ID, "newest first")
	assert.Equal(t, approved.ID, got[1].ID)

	got, err = repo.ListVisible(ctx, owner, domain.TaskFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, approved.ID, got[0].ID)

	got, err = repo.ListVisible(ctx, owner, domain.TaskFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTaskRepo_ListByUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewTaskRepo()
	owner, runner := uuid.New(), uuid.New()

	task := newTask(owner, time.Now())
	task.AssigneeID = &runner
	task.Status = domain.TaskStatusAccepted
	require.NoError(t, repo.Create(ctx, task))

	owned, err := repo.ListByUser(ctx, owner, domain.TaskRoleOwner, domain.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	assigned, err := repo.ListByUser(ctx, runner, domain.TaskRoleAssignee, domain.TaskFilter{Status: domain.TaskStatusAccepted})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	none, err := repo.ListByUser(ctx, runner, domain.TaskRoleAssignee, domain.TaskFilter{Status: domain.TaskStatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.ListByUser(ctx, runner, "spectator", domain.TaskFilter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTaskRepo_InTx_CommitAndRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewTaskRepo()
	task := newTask(uuid.New(), time.Now())
	require.NoError(t, repo.Create(ctx, task))

	errBoom := errors.New("boom")
	err := repo.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
		locked, err := tx.GetForUpdate(ctx, task.ID)
		require.NoError(t, err)
		locked.Title = "rolled back"
		require.NoError(t, tx.Update(ctx, locked))
		require.NoError(t, tx.AppendProgress(ctx, &domain.ProgressEvent{ID: uuid.New(), TaskID: task.ID}))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "errand", got.Title)
	events, err := repo.ListProgress(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, events)

	err = repo.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
		locked, err := tx.GetForUpdate(ctx, task.ID)
		if err != nil {
			return err
		}
		locked.Title = "committed"
		if err := tx.Update(ctx, locked); err != nil {
			return err
		}
		// Re-reading inside the transaction sees the pending write.
		again, err := tx.GetForUpdate(ctx, task.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "committed", again.Title)
		return tx.AppendProgress(ctx, &domain.ProgressEvent{ID: uuid.New(), TaskID: task.ID, Phase: domain.PhaseStarted})
	})
	require.NoError(t, err)

	got, err = repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "committed", got.Title)
	events, err = repo.ListProgress(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.PhaseStarted, events[0].Phase)
}

func TestTaskRepo_InTx_UpdateRequiresLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewTaskRepo()
	task := newTask(uuid.New(), time.Now())
	require.NoError(t, repo.Create(ctx, task))

	err := repo.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
		return tx.Update(ctx, task)
	})
	require.Error(t, err)

	err = repo.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
		_, err := tx.GetForUpdate(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestTaskRepo_InTx_SerializesPerTask runs many read-modify-write
// transactions on one task; without mutual exclusion increments are lost.
func TestTaskRepo_InTx_SerializesPerTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewTaskRepo()
	task := newTask(uuid.New(), time.Now())
	require.NoError(t, repo.Create(ctx, task))

	const workers = 50
	var inside atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			return repo.InTx(gctx, func(ctx context.Context, tx domain.TaskTx) error {
				locked, err := tx.GetForUpdate(ctx, task.ID)
				if err != nil {
					return err
				}
				if n := inside.Add(1); n != 1 {
					t.Errorf("%d transactions hold the lock at once", n)
				}
				locked.EstimatedMinutes++
				err = tx.Update(ctx, locked)
				inside.Add(-1)
				return err
			})
		})
	}
	require.NoError(t, g.Wait())

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, got.EstimatedMinutes)
}

func TestTaskRepo_InTx_LockWaitHonorsContext(t *testing.T) {
	t.Parallel()

	repo := memory.NewTaskRepo()
	task := newTask(uuid.New(), time.Now())
	require.NoError(t, repo.Create(context.Background(), task))

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- repo.InTx(context.Background(), func(ctx context.Context, tx domain.TaskTx) error {
			if _, err := tx.GetForUpdate(ctx, task.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := repo.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
		_, err := tx.GetForUpdate(ctx, task.ID)
		return err
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)

	// The lock is free again after the holder finished.
	err = repo.InTx(context.Background(), func(ctx context.Context, tx domain.TaskTx) error {
		_, err := tx.GetForUpdate(ctx, task.ID)
		return err
	})
	assert.NoError(t, err)
}

func TestTaskRepo_InTx_ReleasesLockOnPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewTaskRepo()
	task := newTask(uuid.New(), time.Now())
	require.NoError(t, repo.Create(ctx, task))

	assert.Panics(t, func() {
		_ = repo.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
			_, _ = tx.GetForUpdate(ctx, task.ID)
			panic("handler bug")
		})
	})

	timeout, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err := repo.InTx(timeout, func(ctx context.Context, tx domain.TaskTx) error {
		_, err := tx.GetForUpdate(ctx, task.ID)
		return err
	})
	assert.NoError(t, err)
}
