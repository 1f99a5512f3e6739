package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/gofer/internal/auth"
	"github.com/gosuda/gofer/internal/domain"
	"github.com/gosuda/gofer/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the caller identity for DoCtx
// ---------------------------------------------------------------------------

func userCtx(userID uuid.UUID) context.Context {
	return middleware.WithIdentity(context.Background(), domain.Identity{UserID: userID})
}

// ---------------------------------------------------------------------------
// Mock TaskLifecycle
// ---------------------------------------------------------------------------

type mockLifecycle struct {
	acceptFunc   func(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error)
	phaseFunc    func(ctx context.Context, id domain.Identity, taskID uuid.UUID, phase domain.Phase, note string) (*domain.Task, error)
	cancelFunc   func(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error)
	getFunc      func(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error)
	listFunc     func(ctx context.Context, id domain.Identity, f domain.TaskFilter) ([]*domain.Task, error)
	listMineFunc func(ctx context.Context, id domain.Identity, role domain.TaskRole, f domain.TaskFilter) ([]*domain.Task, error)
	historyFunc  func(ctx context.Context, id domain.Identity, taskID uuid.UUID) ([]*domain.ProgressEvent, error)
}

func (m *mockLifecycle) AcceptTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error) {
	return m.acceptFunc(ctx, id, taskID)
}

func (m *mockLifecycle) UpdateTaskPhase(ctx context.Context, id domain.Identity, taskID uuid.UUID, phase domain.Phase, note string) (*domain.Task, error) {
	return m.phaseFunc(ctx, id, taskID, phase, note)
}

func (m *mockLifecycle) CancelTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error) {
	return m.cancelFunc(ctx, id, taskID)
}

func (m *mockLifecycle) GetTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error) {
	return m.getFunc(ctx, id, taskID)
}

func (m *mockLifecycle) ListVisibleTasks(ctx context.Context, id domain.Identity, f domain.TaskFilter) ([]*domain.Task, error) {
	return m.listFunc(ctx, id, f)
}

func (m *mockLifecycle) ListMyTasks(ctx context.Context, id domain.Identity, role domain.TaskRole, f domain.TaskFilter) ([]*domain.Task, error) {
	return m.listMineFunc(ctx, id, role, f)
}

func (m *mockLifecycle) ProgressHistory(ctx context.Context, id domain.Identity, taskID uuid.UUID) ([]*domain.ProgressEvent, error) {
	return m.historyFunc(ctx, id, taskID)
}

// ---------------------------------------------------------------------------
// Mock TaskSubmitter
// ---------------------------------------------------------------------------

type mockSubmitter struct {
	submitFunc func(ctx context.Context, id domain.Identity, taskID *uuid.UUID, fields domain.TaskFields) (*domain.Task, error)
}

func (m *mockSubmitter) Submit(ctx context.Context, id domain.Identity, taskID *uuid.UUID, fields domain.TaskFields) (*domain.Task, error) {
	return m.submitFunc(ctx, id, taskID, fields)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc func(ctx context.Context, email, password, name string) (*domain.User, error)
	loginFunc    func(ctx context.Context, email, password string) (*auth.Tokens, error)
	refreshFunc  func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	return m.registerFunc(ctx, email, password, name)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Tokens, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshFunc(ctx, refreshToken)
}
