// Package lifecycle owns every status and phase change of a task once it has
// been posted. All mutations run inside TaskRepository.InTx with the task row
// locked, so for a single task id they are strictly serialized.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/gofer/internal/domain"
)

// EventPublisher receives a snapshot of the task after each committed change.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.TaskEvent)
}

// Policy holds the operator-tunable lifecycle rules.
type Policy struct {
	// AllowAssigneeCancel lets the assignee cancel an accepted task.
	AllowAssigneeCancel bool
}

type Engine struct {
	tasks  domain.TaskRepository
	events EventPublisher
	policy Policy
	now    func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEvents sets the publisher for committed task changes.
func WithEvents(p EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

func NewEngine(tasks domain.TaskRepository, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		tasks:  tasks,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AcceptTask assigns the task to the caller. Exactly one of any number of
// concurrent callers succeeds; the rest see ErrTaskNotAvailable.
func (e *Engine) AcceptTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error) {
	if !id.Authenticated() {
		return nil, fmt.Errorf("lifecycle.AcceptTask: %w", domain.ErrUnauthenticated)
	}

	var accepted *domain.Task
	err := e.tasks.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
		t, err := tx.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}

		if t.CreatedBy == id.UserID {
			// An owner retrying on a task someone else took still learns it
			// is gone.
			if t.Status != domain.TaskStatusPosted {
				return fmt.Errorf("%w: %w", domain.ErrCannotAcceptOwnTask, unavailable(t))
			}
			return domain.ErrCannotAcceptOwnTask
		}
		if t.Status != domain.TaskStatusPosted || t.AssigneeID != nil {
			return unavailable(t)
		}
		if t.ModerationStatus != domain.ModerationApproved {
			return fmt.Errorf("moderation %s: %w", t.ModerationStatus, domain.ErrTaskNotAvailable)
		}

		assignee := id.UserID
		t.AssigneeID = &assignee
		t.Status = domain.TaskStatusAccepted
		t.UpdatedAt = e.now()
		if err := tx.Update(ctx, t); err != nil {
			return err
		}
		accepted = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle.AcceptTask: %w", err)
	}

	log.Debug().
		Str("task_id", taskID.String()).
		Str("assignee_id", id.UserID.String()).
		Msg("lifecycle.AcceptTask: task accepted")
	e.publish(ctx, domain.TaskEventAccepted, accepted, id.UserID)

	return accepted, nil
}

// UpdateTaskPhase moves the task one step along its category workflow and
// records the step in the progress log. Reaching the final phase completes
// the task.
func (e *Engine) UpdateTaskPhase(ctx context.Context, id domain.Identity, taskID uuid.UUID, phase domain.Phase, note string) (*domain.Task, error) {
	if !id.Authenticated() {
		return nil, fmt.Errorf("lifecycle.UpdateTaskPhase: %w", domain.ErrUnauthenticated)
	}

	var updated *domain.Task
	err := e.tasks.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
		t, err := tx.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if !t.IsParticipant(id.UserID) {
			return domain.ErrNotAuthorized
		}
		if t.Status.IsTerminal() {
			return fmt.Errorf("status %s: %w", t.Status, domain.ErrTaskAlreadyFinal)
		}
		if t.Status != domain.TaskStatusAccepted {
			return fmt.Errorf("task not accepted yet: %w", domain.ErrInvalidPhaseTransition)
		}

		wf := domain.WorkflowFor(t.Category)
		next := wf.Canonical(phase)
		if !wf.ValidTransition(t.Phase, next) {
			return fmt.Errorf("%s -> %s for %s: %w", t.Phase, phase, t.Category, domain.ErrInvalidPhaseTransition)
		}

		now := e.now()
		t.Phase = next
		t.Status = wf.StatusFor(next)
		t.UpdatedAt = now
		if err := tx.Update(ctx, t); err != nil {
			return err
		}

		ev := &domain.ProgressEvent{
			ID:        uuid.New(),
			TaskID:    t.ID,
			Phase:     next,
			ActorID:   id.UserID,
			Note:      note,
			CreatedAt: now,
		}
		if err := tx.AppendProgress(ctx, ev); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle.UpdateTaskPhase: %w", err)
	}

	log.Debug().
		Str("task_id", taskID.String()).
		Str("phase", string(updated.Phase)).
		Str("status", string(updated.Status)).
		Msg("lifecycle.UpdateTaskPhase: phase changed")
	e.publish(ctx, domain.TaskEventPhaseChanged, updated, id.UserID)

	return updated, nil
}

// CancelTask moves a non-terminal task to cancelled. The owner may always
// cancel; the assignee only when the policy allows it.
func (e *Engine) CancelTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error) {
	if !id.Authenticated() {
		return nil, fmt.Errorf("lifecycle.CancelTask: %w", domain.ErrUnauthenticated)
	}

	var cancelled *domain.Task
	err := e.tasks.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
		t, err := tx.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if !e.mayCancel(t, id.UserID) {
			return domain.ErrNotAuthorized
		}
		if t.Status.IsTerminal() {
			return fmt.Errorf("status %s: %w", t.Status, domain.ErrTaskAlreadyFinal)
		}

		t.Status = domain.TaskStatusCancelled
		t.UpdatedAt = e.now()
		if err := tx.Update(ctx, t); err != nil {
			return err
		}
		cancelled = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle.CancelTask: %w", err)
	}

	log.Debug().
		Str("task_id", taskID.String()).
		Str("actor_id", id.UserID.String()).
		Msg("lifecycle.CancelTask: task cancelled")
	e.publish(ctx, domain.TaskEventCancelled, cancelled, id.UserID)

	return cancelled, nil
}

func (e *Engine) mayCancel(t *domain.Task, userID uuid.UUID) bool {
	if t.CreatedBy == userID {
		return true
	}
	return e.policy.AllowAssigneeCancel && t.AssigneeID != nil && *t.AssigneeID == userID
}

func (e *Engine) publish(ctx context.Context, typ domain.TaskEventType, t *domain.Task, actor uuid.UUID) {
	if e.events == nil {
		return
	}
	e.events.Publish(ctx, domain.NewTaskEvent(typ, t, actor))
}

// unavailable explains why a task can no longer be accepted.
func unavailable(t *domain.Task) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("status %s: %w: %w", t.Status, domain.ErrTaskNotAvailable, domain.ErrTaskAlreadyFinal)
	}
	return fmt.Errorf("status %s: %w", t.Status, domain.ErrTaskNotAvailable)
}
