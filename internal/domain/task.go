package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the coarse lifecycle stage of a task. Once a task is accepted
// the status is a projection of its phase (see Workflow.StatusFor).
type TaskStatus string

const (
	TaskStatusPosted    TaskStatus = "posted"
	TaskStatusAccepted  TaskStatus = "accepted"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether no further lifecycle mutation is permitted.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// ParseTaskStatus accepts "open" as an alias of posted.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskStatusPosted, "open":
		return TaskStatusPosted, true
	case TaskStatusAccepted, TaskStatusCompleted, TaskStatusCancelled:
		return TaskStatus(s), true
	default:
		return "", false
	}
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func ParseUrgency(s string) (Urgency, bool) {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return Urgency(s), true
	case "":
		return UrgencyMedium, true
	default:
		return "", false
	}
}

type ModerationStatus string

const (
	ModerationApproved    ModerationStatus = "approved"
	ModerationNeedsReview ModerationStatus = "needs_review"
	ModerationBlocked     ModerationStatus = "blocked"
)

// AutoModerator is recorded in ModeratedBy when the automatic content check
// flags a task.
const AutoModerator = "system:auto-moderator"

// TaskFields are the owner-editable content fields of a task.
type TaskFields struct {
	Title               string   `json:"title" validate:"required,min=1,max=200"`
	Description         string   `json:"description" validate:"max=4000"`
	Category            Category `json:"category"`
	Store               string   `json:"store" validate:"max=200"`
	DropoffAddress      string   `json:"dropoff_address" validate:"max=500"`
	DropoffInstructions string   `json:"dropoff_instructions" validate:"max=1000"`
	Urgency             Urgency  `json:"urgency" validate:"oneof=low medium high"`
	EstimatedMinutes    int      `json:"estimated_minutes" validate:"min=0,max=1440"`
	RewardCents         int64    `json:"reward_cents" validate:"min=0,max=100000"`
}

type Task struct {
	ID uuid.UUID `json:"id"`
	TaskFields

	CreatedBy  uuid.UUID  `json:"created_by"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty"`

	Status           TaskStatus       `json:"status"`
	Phase            Phase            `json:"phase"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	ModerationReason *string          `json:"moderation_reason,omitempty"`
	ModeratedAt      *time.Time       `json:"moderated_at,omitempty"`
	ModeratedBy      *string          `json:"moderated_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VisibleTo reports whether the viewer may see the task. Anything not yet
// approved by moderation is private to its owner.
func (t *Task) VisibleTo(viewer uuid.UUID) bool {
	return t.ModerationStatus == ModerationApproved || t.CreatedBy == viewer
}

// IsParticipant reports whether id is the task's owner or assignee.
func (t *Task) IsParticipant(id uuid.UUID) bool {
	if t.CreatedBy == id {
		return true
	}
	return t.AssigneeID != nil && *t.AssigneeID == id
}

// Clone returns a deep copy so callers can mutate it without aliasing.
func (t *Task) Clone() *Task {
	c := *t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		c.AssigneeID = &id
	}
	if t.ModerationReason != nil {
		r := *t.ModerationReason
		c.ModerationReason = &r
	}
	if t.ModeratedAt != nil {
		at := *t.ModeratedAt
		c.ModeratedAt = &at
	}
	if t.ModeratedBy != nil {
		by := *t.ModeratedBy
		c.ModeratedBy = &by
	}
	return &c
}

// TaskFilter narrows list queries. Zero values mean "any".
type TaskFilter struct {
	Status   TaskStatus
	Category Category
	Limit    int
	Offset   int
}

// TaskRole selects which side of a task a user is on.
type TaskRole string

const (
	TaskRoleOwner    TaskRole = "owner"
	TaskRoleAssignee TaskRole = "assignee"
)

// TaskTx is the unit of work handed to TaskRepository.InTx. GetForUpdate
// holds an exclusive lock on the task until the transaction ends.
type TaskTx interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Task, error)
	Update(ctx context.Context, t *Task) error
	AppendProgress(ctx context.Context, ev *ProgressEvent) error
}

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListVisible(ctx context.Context, viewer uuid.UUID, f TaskFilter) ([]*Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID, role TaskRole, f TaskFilter) ([]*Task, error)
	ListProgress(ctx context.Context, taskID uuid.UUID) ([]*ProgressEvent, error)

	// InTx runs fn in a transaction. Locks taken inside fn are released when
	// InTx returns, on every exit path. fn's error rolls the transaction back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx TaskTx) error) error
}
