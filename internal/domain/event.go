package domain

import (
	"time"

	"github.com/google/uuid"
)

type TaskEventType string

const (
	TaskEventPosted       TaskEventType = "task.posted"
	TaskEventEdited       TaskEventType = "task.edited"
	TaskEventAccepted     TaskEventType = "task.accepted"
	TaskEventPhaseChanged TaskEventType = "task.phase_changed"
	TaskEventCancelled    TaskEventType = "task.cancelled"
)

// Withdrawn reports whether the event takes a task off the public feed.
func (e TaskEvent) Withdrawn() bool {
	return e.PreviousModeration == ModerationApproved && e.ModerationStatus != ModerationApproved
}

// TaskEvent is broadcast after a task mutation commits. For task.accepted the
// owner/assignee pair is what the chat service needs to open a channel.
type TaskEvent struct {
	Type             TaskEventType    `json:"type"`
	TaskID           uuid.UUID        `json:"task_id"`
	OwnerID          uuid.UUID        `json:"owner_id"`
	AssigneeID       *uuid.UUID       `json:"assignee_id,omitempty"`
	ActorID          uuid.UUID        `json:"actor_id"`
	Status           TaskStatus       `json:"status"`
	Phase            Phase            `json:"phase"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	// PreviousModeration is set on task.edited when the edit changed the
	// moderation status.
	PreviousModeration ModerationStatus `json:"previous_moderation,omitempty"`
	At                 time.Time        `json:"at"`
}

// NewTaskEvent snapshots t as an event of the given type.
func NewTaskEvent(typ TaskEventType, t *Task, actor uuid.UUID) TaskEvent {
	return TaskEvent{
		Type:             typ,
		TaskID:           t.ID,
		OwnerID:          t.CreatedBy,
		AssigneeID:       t.AssigneeID,
		ActorID:          actor,
		Status:           t.Status,
		Phase:            t.Phase,
		ModerationStatus: t.ModerationStatus,
		At:               t.UpdatedAt,
	}
}
