package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpilot/taskpilot/internal/models"
)

// ==============================================
// ERRORS
// ==============================================

var (
	ErrTaskNotFound = errors.New("task not found")
)

// ==============================================
// TASK REPOSITORY
// ==============================================

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

// ==============================================
// CREATE
// ==============================================

func (r *TaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (title, description, completion, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.Completion,
		task.UserID,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// ==============================================
// READ
// ==============================================

// GetTaskForUser retrieves a task scoped to its owner. A foreign task id
// is indistinguishable from a missing one here; ownership checks that
// must answer 403 instead use GetTaskByID.
func (r *TaskRepository) GetTaskForUser(ctx context.Context, taskID, userID int) (*models.Task, error) {
	query := `
		SELECT id, title, description, completion, user_id, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	return r.scanTask(r.db.QueryRow(ctx, query, taskID, userID))
}

// GetTaskByID retrieves a task regardless of owner
func (r *TaskRepository) GetTaskByID(ctx context.Context, taskID int) (*models.Task, error) {
	query := `
		SELECT id, title, description, completion, user_id, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	return r.scanTask(r.db.QueryRow(ctx, query, taskID))
}

// ListTasks returns the owner's tasks in ascending id order, applying
// the filter. Callers request limit+1 rows to detect a further page.
func (r *TaskRepository) ListTasks(ctx context.Context, userID int, filter models.TaskFilter) ([]models.Task, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, title, description, completion, user_id, created_at, updated_at
		FROM tasks
		WHERE user_id = $1
	`)

	args := []interface{}{userID}

	appendCond := func(cond string, value interface{}) {
		args = append(args, value)
		sb.WriteString(" AND " + cond + " $" + strconv.Itoa(len(args)))
	}

	if filter.Completion != nil {
		appendCond("completion =", *filter.Completion)
	}
	if filter.Title != "" {
		appendCond("title =", filter.Title)
	}
	if filter.After != nil {
		appendCond("created_at >=", *filter.After)
	}
	if filter.Before != nil {
		appendCond("created_at <=", *filter.Before)
	}
	if filter.AfterID > 0 {
		appendCond("id >", filter.AfterID)
	}

	sb.WriteString(" ORDER BY id ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.Completion,
			&task.UserID,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	return tasks, nil
}

// CountForUser counts all tasks belonging to a user (quota checks)
func (r *TaskRepository) CountForUser(ctx context.Context, userID int) (int, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE user_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// ==============================================
// UPDATE
// ==============================================

func (r *TaskRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $1, description = $2, completion = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5
	`

	tag, err := r.db.Exec(ctx, query,
		task.Title,
		task.Description,
		task.Completion,
		task.ID,
		task.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// ==============================================
// DELETE
// ==============================================

func (r *TaskRepository) DeleteTask(ctx context.Context, taskID int) error {
	query := `DELETE FROM tasks WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// DeleteAllForUser removes every task owned by the user
func (r *TaskRepository) DeleteAllForUser(ctx context.Context, userID int) (int64, error) {
	query := `DELETE FROM tasks WHERE user_id = $1`

	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ==============================================
// HELPER FUNCTIONS
// ==============================================

func (r *TaskRepository) scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Completion,
		&task.UserID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}
