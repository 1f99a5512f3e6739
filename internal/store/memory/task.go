package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/gofer/internal/domain"
)

var errNotLocked = errors.New("memory: task not locked in this transaction")

type TaskRepo struct {
	mu       sync.RWMutex
	tasks    map[uuid.UUID]*domain.Task
	progress map[uuid.UUID][]*domain.ProgressEvent
	locks    *keyedLocker
}

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{
		tasks:    make(map[uuid.UUID]*domain.Task),
		progress: make(map[uuid.UUID][]*domain.ProgressEvent),
		locks:    newKeyedLocker(),
	}
}

func (r *TaskRepo) Create(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("taskRepo.Create: %w", domain.ErrConflict)
	}
	r.tasks[t.ID] = t.Clone()
	return nil
}

func (r *TaskRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	return t.Clone(), nil
}

func (r *TaskRepo) ListVisible(_ context.Context, viewer uuid.UUID, f domain.TaskFilter) ([]*domain.Task, error) {
	return r.list(f, func(t *domain.Task) bool { return t.VisibleTo(viewer) }), nil
}

func (r *TaskRepo) ListByUser(_ context.Context, userID uuid.UUID, role domain.TaskRole, f domain.TaskFilter) ([]*domain.Task, error) {
	switch role {
	case domain.TaskRoleOwner:
		return r.list(f, func(t *domain.Task) bool { return t.CreatedBy == userID }), nil
	case domain.TaskRoleAssignee:
		return r.list(f, func(t *domain.Task) bool { return t.AssigneeID != nil && *t.AssigneeID == userID }), nil
	default:
		return nil, fmt.Errorf("taskRepo.ListByUser: role %q: %w", role, domain.ErrInvalidInput)
	}
}

// list returns matches newest first, paged by f.
func (r *TaskRepo) list(f domain.TaskFilter, keep func(*domain.Task) bool) []*domain.Task {
	r.mu.RLock()
	var out []*domain.Task
	for _, t := range r.tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (r *TaskRepo) ListProgress(_ context.Context, taskID uuid.UUID) ([]*domain.ProgressEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.progress[taskID]
	out := make([]*domain.ProgressEvent, len(events))
	for i, ev := range events {
		c := *ev
		out[i] = &c
	}
	return out, nil
}

// InTx buffers writes and applies them atomically on success. Every task lock
// taken through GetForUpdate is released before InTx returns, including when
// fn panics.
func (r *TaskRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx domain.TaskTx) error) error {
	tx := &taskTx{
		repo:    r,
		held:    make(map[uuid.UUID]struct{}),
		pending: make(map[uuid.UUID]*domain.Task),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("taskRepo.InTx: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range tx.pending {
		r.tasks[id] = t
	}
	for _, ev := range tx.events {
		r.progress[ev.TaskID] = append(r.progress[ev.TaskID], ev)
	}
	return nil
}

type taskTx struct {
	repo    *TaskRepo
	held    map[uuid.UUID]struct{}
	pending map[uuid.UUID]*domain.Task
	events  []*domain.ProgressEvent
}

func (tx *taskTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if _, ok := tx.held[id]; !ok {
		// Unknown ids never take a lock slot.
		if _, err := tx.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		if err := tx.repo.locks.lock(ctx, id); err != nil {
			return nil, fmt.Errorf("taskRepo.GetForUpdate: %w", err)
		}
		tx.held[id] = struct{}{}
	}

	if t, ok := tx.pending[id]; ok {
		return t.Clone(), nil
	}
	return tx.repo.GetByID(ctx, id)
}

func (tx *taskTx) Update(_ context.Context, t *domain.Task) error {
	if _, ok := tx.held[t.ID]; !ok {
		return fmt.Errorf("taskRepo.Update: %w", errNotLocked)
	}
	tx.repo.mu.RLock()
	_, exists := tx.repo.tasks[t.ID]
	tx.repo.mu.RUnlock()
	if !exists {
		return fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
	}

	tx.pending[t.ID] = t.Clone()
	return nil
}

func (tx *taskTx) AppendProgress(_ context.Context, ev *domain.ProgressEvent) error {
	if _, ok := tx.held[ev.TaskID]; !ok {
		return fmt.Errorf("taskRepo.AppendProgress: %w", errNotLocked)
	}
	c := *ev
	tx.events = append(tx.events, &c)
	return nil
}

func (tx *taskTx) release() {
	for id := range tx.held {
		tx.repo.locks.unlock(id)
	}
}
