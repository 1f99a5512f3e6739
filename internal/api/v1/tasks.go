package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/gofer/internal/domain"
	"github.com/gosuda/gofer/internal/server/middleware"
)

// TaskBody is the editable content of a task as clients send it.
type TaskBody struct {
	Title               string `json:"title" minLength:"1" maxLength:"200" doc:"Short task title"`
	Description         string `json:"description,omitempty" maxLength:"4000" doc:"Task description"`
	Category            string `json:"category,omitempty" doc:"Task category, e.g. food, food_pickup, food_delivery, groceries, package (default other)"`
	Store               string `json:"store,omitempty" maxLength:"200" doc:"Where to pick things up"`
	DropoffAddress      string `json:"dropoff_address,omitempty" maxLength:"500" doc:"Where to deliver"`
	DropoffInstructions string `json:"dropoff_instructions,omitempty" maxLength:"1000" doc:"Delivery instructions"`
	Urgency             string `json:"urgency,omitempty" enum:"low,medium,high" doc:"Urgency (default medium)"`
	EstimatedMinutes    int    `json:"estimated_minutes,omitempty" minimum:"0" maximum:"1440" doc:"Estimated effort in minutes"`
	RewardCents         int64  `json:"reward_cents,omitempty" minimum:"0" maximum:"100000" doc:"Reward in cents"`
}

func (b TaskBody) fields() domain.TaskFields {
	return domain.TaskFields{
		Title:               b.Title,
		Description:         b.Description,
		Category:            domain.Category(b.Category),
		Store:               b.Store,
		DropoffAddress:      b.DropoffAddress,
		DropoffInstructions: b.DropoffInstructions,
		Urgency:             domain.Urgency(b.Urgency),
		EstimatedMinutes:    b.EstimatedMinutes,
		RewardCents:         b.RewardCents,
	}
}

type CreateTaskInput struct {
	Body TaskBody
}

type EditTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body TaskBody
}

type TaskOutput struct {
	Body *domain.Task
}

type TaskIDInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type ListFilterParams struct {
	Status   string `query:"status" enum:"open,posted,accepted,completed,cancelled" doc:"Filter by status"`
	Category string `query:"category" doc:"Filter by category"`
	Limit    int    `query:"limit" minimum:"0" maximum:"1000" doc:"Page size (default 100)"`
	Offset   int    `query:"offset" minimum:"0" doc:"Rows to skip"`
}

func (p ListFilterParams) filter() (domain.TaskFilter, error) {
	f := domain.TaskFilter{Limit: p.Limit, Offset: p.Offset}
	if p.Status != "" {
		status, ok := domain.ParseTaskStatus(p.Status)
		if !ok {
			return f, huma.Error422UnprocessableEntity("unknown status " + p.Status)
		}
		f.Status = status
	}
	if p.Category != "" {
		category, ok := domain.ParseCategory(p.Category)
		if !ok {
			return f, huma.Error422UnprocessableEntity("unknown category " + p.Category)
		}
		f.Category = category
	}
	return f, nil
}

type ListTasksInput struct {
	ListFilterParams
}

type ListMyTasksInput struct {
	Role string `query:"role" enum:"owner,assignee" default:"owner" doc:"Tasks you posted (owner) or are running (assignee)"`
	ListFilterParams
}

type ListTasksOutput struct {
	Body []*domain.Task
}

type UpdatePhaseInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Phase string `json:"phase" minLength:"1" doc:"Next phase: started, picked_up, on_the_way, delivered or completed"`
		Note  string `json:"note,omitempty" maxLength:"500" doc:"Optional progress note"`
	}
}

type ProgressOutput struct {
	Body []*domain.ProgressEvent
}

func RegisterTaskRoutes(api huma.API, submitter TaskSubmitter, engine TaskLifecycle) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Post a new task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		t, err := submitter.Submit(ctx, middleware.IdentityFromContext(ctx), nil, input.Body.fields())
		if err != nil {
			return nil, toHTTPError("create-task", err)
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Edit a task you posted",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *EditTaskInput) (*TaskOutput, error) {
		t, err := submitter.Submit(ctx, middleware.IdentityFromContext(ctx), &input.ID, input.Body.fields())
		if err != nil {
			return nil, toHTTPError("edit-task", err)
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks visible to you",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		f, err := input.filter()
		if err != nil {
			return nil, err
		}
		tasks, err := engine.ListVisibleTasks(ctx, middleware.IdentityFromContext(ctx), f)
		if err != nil {
			return nil, toHTTPError("list-tasks", err)
		}
		return &ListTasksOutput{Body: nonNil(tasks)}, nil
	})

	// Registered before /tasks/{id} so "mine" is never parsed as an id.
	huma.Register(api, huma.Operation{
		OperationID: "list-my-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/mine",
		Summary:     "List tasks you posted or are running",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListMyTasksInput) (*ListTasksOutput, error) {
		f, err := input.filter()
		if err != nil {
			return nil, err
		}
		tasks, err := engine.ListMyTasks(ctx, middleware.IdentityFromContext(ctx), domain.TaskRole(input.Role), f)
		if err != nil {
			return nil, toHTTPError("list-my-tasks", err)
		}
		return &ListTasksOutput{Body: nonNil(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		t, err := engine.GetTask(ctx, middleware.IdentityFromContext(ctx), input.ID)
		if err != nil {
			return nil, toHTTPError("get-task", err)
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/accept",
		Summary:     "Accept a posted task",
		Description: "Exactly one of any number of concurrent callers wins; the others receive 409.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		t, err := engine.AcceptTask(ctx, middleware.IdentityFromContext(ctx), input.ID)
		if err != nil {
			return nil, toHTTPError("accept-task", err)
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-phase",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/phase",
		Summary:     "Advance a task to its next phase",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdatePhaseInput) (*TaskOutput, error) {
		phase, ok := domain.ParsePhase(input.Body.Phase)
		if !ok {
			return nil, huma.Error422UnprocessableEntity("unknown phase " + input.Body.Phase)
		}
		t, err := engine.UpdateTaskPhase(ctx, middleware.IdentityFromContext(ctx), input.ID, phase, input.Body.Note)
		if err != nil {
			return nil, toHTTPError("update-task-phase", err)
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/cancel",
		Summary:     "Cancel a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		t, err := engine.CancelTask(ctx, middleware.IdentityFromContext(ctx), input.ID)
		if err != nil {
			return nil, toHTTPError("cancel-task", err)
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task-progress",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/progress",
		Summary:     "Phase history of a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*ProgressOutput, error) {
		events, err := engine.ProgressHistory(ctx, middleware.IdentityFromContext(ctx), input.ID)
		if err != nil {
			return nil, toHTTPError("get-task-progress", err)
		}
		if events == nil {
			events = []*domain.ProgressEvent{}
		}
		return &ProgressOutput{Body: events}, nil
	})
}

func nonNil(tasks []*domain.Task) []*domain.Task {
	if tasks == nil {
		return []*domain.Task{}
	}
	return tasks
}
