package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProgressEvent records one phase transition. Rows are append-only.
type ProgressEvent struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Phase     Phase     `json:"phase"`
	ActorID   uuid.UUID `json:"actor_id"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
