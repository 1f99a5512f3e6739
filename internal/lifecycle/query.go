package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/gofer/internal/domain"
)

// GetTask returns a task the caller is allowed to see. Tasks awaiting review
// are reported as missing to everyone but their owner.
func (e *Engine) GetTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error) {
	if !id.Authenticated() {
		return nil, fmt.Errorf("lifecycle.GetTask: %w", domain.ErrUnauthenticated)
	}

	t, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.GetTask: %w", err)
	}
	if !t.VisibleTo(id.UserID) && !t.IsParticipant(id.UserID) {
		return nil, fmt.Errorf("lifecycle.GetTask: %w", domain.ErrNotFound)
	}

	return t, nil
}

// ListVisibleTasks lists approved tasks plus the caller's own tasks.
func (e *Engine) ListVisibleTasks(ctx context.Context, id domain.Identity, f domain.TaskFilter) ([]*domain.Task, error) {
	if !id.Authenticated() {
		return nil, fmt.Errorf("lifecycle.ListVisibleTasks: %w", domain.ErrUnauthenticated)
	}

	tasks, err := e.tasks.ListVisible(ctx, id.UserID, f)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.ListVisibleTasks: %w", err)
	}
	return tasks, nil
}

// ListMyTasks lists the tasks the caller posted or is running.
func (e *Engine) ListMyTasks(ctx context.Context, id domain.Identity, role domain.TaskRole, f domain.TaskFilter) ([]*domain.Task, error) {
	if !id.Authenticated() {
		return nil, fmt.Errorf("lifecycle.ListMyTasks: %w", domain.ErrUnauthenticated)
	}

	tasks, err := e.tasks.ListByUser(ctx, id.UserID, role, f)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.ListMyTasks: %w", err)
	}
	return tasks, nil
}

// ProgressHistory returns the phase log of a task, oldest first. Only the
// owner and the assignee may read it.
func (e *Engine) ProgressHistory(ctx context.Context, id domain.Identity, taskID uuid.UUID) ([]*domain.ProgressEvent, error) {
	if !id.Authenticated() {
		return nil, fmt.Errorf("lifecycle.ProgressHistory: %w", domain.ErrUnauthenticated)
	}

	t, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.ProgressHistory: %w", err)
	}
	if !t.IsParticipant(id.UserID) {
		return nil, fmt.Errorf("lifecycle.ProgressHistory: %w", domain.ErrNotAuthorized)
	}

	events, err := e.tasks.ListProgress(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.ProgressHistory: %w", err)
	}
	return events, nil
}
