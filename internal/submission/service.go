// Package submission creates and edits tasks. Every write passes the content
// moderator first; blocked content is rejected before any row is touched.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/gofer/internal/domain"
	"github.com/gosuda/gofer/internal/moderation"
)

// Moderator screens task content.
type Moderator interface {
	Moderate(f domain.TaskFields) moderation.Verdict
}

// EventPublisher receives a snapshot of the task after each committed write.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.TaskEvent)
}

type Service struct {
	tasks     domain.TaskRepository
	moderator Moderator
	validate  *validator.Validate
	events    EventPublisher
	now       func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEvents sets the publisher for committed writes.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func NewService(tasks domain.TaskRepository, moderator Moderator, opts ...Option) *Service {
	s := &Service{
		tasks:     tasks,
		moderator: moderator,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a task when taskID is nil and edits the caller's task
// otherwise.
func (s *Service) Submit(ctx context.Context, id domain.Identity, taskID *uuid.UUID, fields domain.TaskFields) (*domain.Task, error) {
	if !id.Authenticated() {
		return nil, fmt.Errorf("submission.Submit: %w", domain.ErrUnauthenticated)
	}

	fields, err := s.normalize(fields)
	if err != nil {
		return nil, fmt.Errorf("submission.Submit: %w", err)
	}

	verdict := s.moderator.Moderate(fields)
	if verdict.Status == domain.ModerationBlocked {
		log.Info().
			Str("user_id", id.UserID.String()).
			Str("category", verdict.Category).
			Msg("submission.Submit: content blocked")
		return nil, fmt.Errorf("submission.Submit: %w", &domain.ContentBlockedError{
			Category: verdict.Category,
			Reason:   verdict.Reason,
		})
	}

	if taskID == nil {
		return s.create(ctx, id, fields, verdict)
	}
	return s.edit(ctx, id, *taskID, fields, verdict)
}

func (s *Service) create(ctx context.Context, id domain.Identity, fields domain.TaskFields, verdict moderation.Verdict) (*domain.Task, error) {
	now := s.now()
	t := &domain.Task{
		ID:         uuid.New(),
		TaskFields: fields,
		CreatedBy:  id.UserID,
		Status:     domain.TaskStatusPosted,
		Phase:      domain.PhaseNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyVerdict(t, verdict, now)

	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("submission.create: %w", err)
	}

	log.Debug().
		Str("task_id", t.ID.String()).
		Str("moderation", string(t.ModerationStatus)).
		Msg("submission.create: task posted")
	s.publish(ctx, domain.TaskEventPosted, t, id.UserID)

	return t, nil
}

func (s *Service) edit(ctx context.Context, id domain.Identity, taskID uuid.UUID, fields domain.TaskFields, verdict moderation.Verdict) (*domain.Task, error) {
	var (
		edited   *domain.Task
		previous domain.ModerationStatus
	)
	err := s.tasks.InTx(ctx, func(ctx context.Context, tx domain.TaskTx) error {
		t, err := tx.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		// Someone else's task is reported as missing.
		if t.CreatedBy != id.UserID {
			return domain.ErrNotFound
		}
		if t.Status.IsTerminal() {
			return fmt.Errorf("status %s: %w", t.Status, domain.ErrTaskAlreadyFinal)
		}
		// The phase workflow is chosen by category; it cannot change under a
		// runner who is already following it.
		if t.Status != domain.TaskStatusPosted && fields.Category != t.Category {
			return fmt.Errorf("category is locked once accepted: %w", domain.ErrInvalidInput)
		}

		previous = t.ModerationStatus
		now := s.now()
		t.TaskFields = fields
		t.UpdatedAt = now
		applyVerdict(t, verdict, now)

		if err := tx.Update(ctx, t); err != nil {
			return err
		}
		edited = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submission.edit: %w", err)
	}

	log.Debug().
		Str("task_id", taskID.String()).
		Str("moderation", string(edited.ModerationStatus)).
		Msg("submission.edit: task edited")
	ev := domain.NewTaskEvent(domain.TaskEventEdited, edited, id.UserID)
	if previous != edited.ModerationStatus {
		ev.PreviousModeration = previous
	}
	s.emit(ctx, ev)

	return edited, nil
}

// normalize trims free text, resolves category and urgency spellings and
// checks field limits.
func (s *Service) normalize(f domain.TaskFields) (domain.TaskFields, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Store = strings.TrimSpace(f.Store)
	f.DropoffAddress = strings.TrimSpace(f.DropoffAddress)
	f.DropoffInstructions = strings.TrimSpace(f.DropoffInstructions)

	category, ok := domain.ParseCategory(string(f.Category))
	if !ok {
		return f, fmt.Errorf("unknown category %q: %w", f.Category, domain.ErrInvalidInput)
	}
	f.Category = category

	urgency, ok := domain.ParseUrgency(strings.ToLower(strings.TrimSpace(string(f.Urgency))))
	if !ok {
		return f, fmt.Errorf("unknown urgency %q: %w", f.Urgency, domain.ErrInvalidInput)
	}
	f.Urgency = urgency

	if err := s.validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return f, fmt.Errorf("validate: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(e.Field()), e.Tag()))
		}
		return f, fmt.Errorf("%s: %w", strings.Join(msgs, "; "), domain.ErrInvalidInput)
	}

	return f, nil
}

func (s *Service) publish(ctx context.Context, typ domain.TaskEventType, t *domain.Task, actor uuid.UUID) {
	s.emit(ctx, domain.NewTaskEvent(typ, t, actor))
}

func (s *Service) emit(ctx context.Context, ev domain.TaskEvent) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, ev)
}

// applyVerdict records the moderation outcome. Approved content clears every
// moderation marker, so an edit can move a task in either direction.
func applyVerdict(t *domain.Task, v moderation.Verdict, now time.Time) {
	t.ModerationStatus = v.Status
	if v.Approved() {
		t.ModerationReason = nil
		t.ModeratedAt = nil
		t.ModeratedBy = nil
		return
	}

	reason := v.Reason
	if v.Category != "" {
		reason = v.Category + ": " + v.Reason
	}
	by := domain.AutoModerator
	at := now
	t.ModerationReason = &reason
	t.ModeratedAt = &at
	t.ModeratedBy = &by
}
