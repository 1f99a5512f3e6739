package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/gofer/internal/auth"
	"github.com/gosuda/gofer/internal/domain"
)

// TaskLifecycle abstracts the lifecycle engine for handler testing.
// *lifecycle.Engine satisfies this interface.
type TaskLifecycle interface {
	AcceptTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error)
	UpdateTaskPhase(ctx context.Context, id domain.Identity, taskID uuid.UUID, phase domain.Phase, note string) (*domain.Task, error)
	CancelTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error)
	GetTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error)
	ListVisibleTasks(ctx context.Context, id domain.Identity, f domain.TaskFilter) ([]*domain.Task, error)
	ListMyTasks(ctx context.Context, id domain.Identity, role domain.TaskRole, f domain.TaskFilter) ([]*domain.Task, error)
	ProgressHistory(ctx context.Context, id domain.Identity, taskID uuid.UUID) ([]*domain.ProgressEvent, error)
}

// TaskSubmitter abstracts task creation and editing for handler testing.
// *submission.Service satisfies this interface.
type TaskSubmitter interface {
	Submit(ctx context.Context, id domain.Identity, taskID *uuid.UUID, fields domain.TaskFields) (*domain.Task, error)
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*auth.Tokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}
