package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/gofer/internal/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

const taskColumns = `id, title, description, category, store, dropoff_address, dropoff_instructions,
	urgency, estimated_minutes, reward_cents, created_by, assignee_id, status, phase,
	moderation_status, moderation_reason, moderated_at, moderated_by, created_at, updated_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		t.ID, t.Title, t.Description, t.Category, t.Store, t.DropoffAddress, t.DropoffInstructions,
		t.Urgency, t.EstimatedMinutes, t.RewardCents, t.CreatedBy, t.AssigneeID, t.Status, t.Phase,
		t.ModerationStatus, t.ModerationReason, t.ModeratedAt, t.ModeratedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("taskRepo.Create: %w", domain.ErrConflict)
		}
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return getTask(ctx, r.pool, id, false, "taskRepo.GetByID")
}

func (r *TaskRepo) ListVisible(ctx context.Context, viewer uuid.UUID, f domain.TaskFilter) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE (moderation_status = 'approved' OR created_by = $1)
		   AND ($2::text = '' OR status = $2)
		   AND ($3::text = '' OR category = $3)
		 ORDER BY created_at DESC, id
		 LIMIT $4 OFFSET $5`,
		viewer, string(f.Status), string(f.Category), listLimit(f.Limit), max(f.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListVisible: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListVisible")
}

func (r *TaskRepo) ListByUser(ctx context.Context, userID uuid.UUID, role domain.TaskRole, f domain.TaskFilter) ([]*domain.Task, error) {
	var column string
	switch role {
	case domain.TaskRoleOwner:
		column = "created_by"
	case domain.TaskRoleAssignee:
		column = "assignee_id"
	default:
		return nil, fmt.Errorf("taskRepo.ListByUser: role %q: %w", role, domain.ErrInvalidInput)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE `+column+` = $1
		   AND ($2::text = '' OR status = $2)
		   AND ($3::text = '' OR category = $3)
		 ORDER BY created_at DESC, id
		 LIMIT $4 OFFSET $5`,
		userID, string(f.Status), string(f.Category), listLimit(f.Limit), max(f.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListByUser")
}

func (r *TaskRepo) ListProgress(ctx context.Context, taskID uuid.UUID) ([]*domain.ProgressEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, task_id, phase, actor_id, note, created_at
		 FROM task_progress WHERE task_id = $1
		 ORDER BY created_at, id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListProgress: %w", err)
	}
	defer rows.Close()

	var events []*domain.ProgressEvent
	for rows.Next() {
		var ev domain.ProgressEvent
		if err := rows.Scan(&ev.ID, &ev.TaskID, &ev.Phase, &ev.ActorID, &ev.Note, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("taskRepo.ListProgress: scan: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskRepo.ListProgress: rows: %w", err)
	}

	return events, nil
}

// InTx runs fn inside a database transaction. Row locks taken with
// GetForUpdate are held until commit or rollback; the deferred rollback
// covers errors, panics and cancelled contexts.
func (r *TaskRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx domain.TaskTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("taskRepo.InTx: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &taskTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("taskRepo.InTx: commit: %w", err)
	}

	return nil
}

type taskTx struct {
	tx pgx.Tx
}

func (t *taskTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return getTask(ctx, t.tx, id, true, "taskRepo.GetForUpdate")
}

func (t *taskTx) Update(ctx context.Context, task *domain.Task) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, category = $3, store = $4,
		        dropoff_address = $5, dropoff_instructions = $6, urgency = $7,
		        estimated_minutes = $8, reward_cents = $9, assignee_id = $10, status = $11,
		        phase = $12, moderation_status = $13, moderation_reason = $14,
		        moderated_at = $15, moderated_by = $16, updated_at = $17
		 WHERE id = $18`,
		task.Title, task.Description, task.Category, task.Store,
		task.DropoffAddress, task.DropoffInstructions, task.Urgency,
		task.EstimatedMinutes, task.RewardCents, task.AssigneeID, task.Status,
		task.Phase, task.ModerationStatus, task.ModerationReason,
		task.ModeratedAt, task.ModeratedBy, task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (t *taskTx) AppendProgress(ctx context.Context, ev *domain.ProgressEvent) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO task_progress (id, task_id, phase, actor_id, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.TaskID, ev.Phase, ev.ActorID, ev.Note, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.AppendProgress: %w", err)
	}

	return nil
}

func getTask(ctx context.Context, q querier, id uuid.UUID, lock bool, caller string) (*domain.Task, error) {
	sql := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}

	t, err := scanTask(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}

	return t, nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Category, &t.Store, &t.DropoffAddress, &t.DropoffInstructions,
		&t.Urgency, &t.EstimatedMinutes, &t.RewardCents, &t.CreatedBy, &t.AssigneeID, &t.Status, &t.Phase,
		&t.ModerationStatus, &t.ModerationReason, &t.ModeratedAt, &t.ModeratedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTasks(rows pgx.Rows, caller string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return tasks, nil
}

func listLimit(n int) int {
	switch {
	case n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	default:
		return n
	}
}
