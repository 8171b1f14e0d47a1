package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/taskhub/internal/domain"
)

// canonicalColumns selects a task together with its assignee (a) and creator (c).
var canonicalColumns = []string{
	"t.id", "t.title", "t.description", "t.status", "t.assigned_to_id", "t.created_by_id",
	"t.created_at", "t.updated_at",
	"a.id", "a.email", "a.name", "a.role", "a.created_at", "a.updated_at",
	"c.id", "c.email", "c.name", "c.role", "c.created_at", "c.updated_at",
}

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func selectCanonical() sq.SelectBuilder {
	return psql.
		Select(canonicalColumns...).
		From("tasks t").
		LeftJoin("users a ON a.id = t.assigned_to_id").
		Join("users c ON c.id = t.created_by_id")
}

// joinedUser receives the nullable columns of a LEFT JOINed user.
type joinedUser struct {
	id        *string
	email     *string
	name      *string
	role      *domain.Role
	createdAt *time.Time
	updatedAt *time.Time
}

func (u *joinedUser) user() *domain.User {
	if u.id == nil {
		return nil
	}
	return &domain.User{
		ID:        *u.id,
		Email:     *u.email,
		Name:      *u.name,
		Role:      *u.role,
		CreatedAt: *u.createdAt,
		UpdatedAt: *u.updatedAt,
	}
}

// scanTask scans a single canonical row into a Task with relations resolved.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task     domain.Task
		assignee joinedUser
		creator  joinedUser
	)
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.AssignedToID,
		&task.CreatedByID,
		&task.CreatedAt,
		&task.UpdatedAt,
		&assignee.id, &assignee.email, &assignee.name, &assignee.role, &assignee.createdAt, &assignee.updatedAt,
		&creator.id, &creator.email, &creator.name, &creator.role, &creator.createdAt, &creator.updatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.AssignedTo = assignee.user()
	task.CreatedBy = creator.user()
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// GetByID retrieves a task by ID with its assignee and creator.
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	query, args, err := selectCanonical().
		Where(sq.Eq{"t.id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task: %w", err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// ListAll returns every task, newest first.
func (r *TaskRepository) ListAll(ctx context.Context) ([]*domain.Task, error) {
	return r.list(ctx, nil)
}

// ListForUser returns tasks the user is assigned to or created, newest first.
func (r *TaskRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Task, error) {
	return r.list(ctx, sq.Or{
		sq.Eq{"t.assigned_to_id": userID},
		sq.Eq{"t.created_by_id": userID},
	})
}

func (r *TaskRepository) list(ctx context.Context, where sq.Sqlizer) ([]*domain.Task, error) {
	qb := selectCanonical()
	if where != nil {
		qb = qb.Where(where)
	}

	query, args, err := qb.OrderBy("t.created_at DESC", "t.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build List query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	return scanTasks(rows)
}

// Create inserts a task. Returns the task with ID, CreatedAt, and UpdatedAt populated.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}

	query, args, err := psql.
		Insert("tasks").
		Columns("title", "description", "status", "assigned_to_id", "created_by_id").
		Values(task.Title, task.Description, task.Status, task.AssignedToID, task.CreatedByID).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for task: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// Update writes the mutable fields of task. created_by_id is never touched.
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	query, args, err := psql.
		Update("tasks").
		Set("title", task.Title).
		Set("description", task.Description).
		Set("status", task.Status).
		Set("assigned_to_id", task.AssignedToID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": task.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Update query for task %s: %w", task.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// Delete removes a task.
func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	query, args, err := psql.
		Delete("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for task %s: %w", taskID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}
