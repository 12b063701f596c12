package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/api/dto"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/repository"
)

// ==============================================
// MOCK REPOSITORY
// ==============================================

type MockTaskRepository struct {
	CreateTaskFunc       func(ctx context.Context, task *models.Task) error
	GetTaskForUserFunc   func(ctx context.Context, taskID, userID int) (*models.Task, error)
	GetTaskByIDFunc      func(ctx context.Context, taskID int) (*models.Task, error)
	ListTasksFunc        func(ctx context.Context, userID int, filter models.TaskFilter) ([]models.Task, error)
	CountForUserFunc     func(ctx context.Context, userID int) (int, error)
	UpdateTaskFunc       func(ctx context.Context, task *models.Task) error
	DeleteTaskFunc       func(ctx context.Context, taskID int) error
	DeleteAllForUserFunc func(ctx context.Context, userID int) (int64, error)
}

func (m *MockTaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	if m.CreateTaskFunc != nil {
		return m.CreateTaskFunc(ctx, task)
	}
	task.ID = 1
	return nil
}

func (m *MockTaskRepository) GetTaskForUser(ctx context.Context, taskID, userID int) (*models.Task, error) {
	if m.GetTaskForUserFunc != nil {
		return m.GetTaskForUserFunc(ctx, taskID, userID)
	}
	return nil, repository.ErrTaskNotFound
}

func (m *MockTaskRepository) GetTaskByID(ctx context.Context, taskID int) (*models.Task, error) {
	if m.GetTaskByIDFunc != nil {
		return m.GetTaskByIDFunc(ctx, taskID)
	}
	return nil, repository.ErrTaskNotFound
}

func (m *MockTaskRepository) ListTasks(ctx context.Context, userID int, filter models.TaskFilter) ([]models.Task, error) {
	if m.ListTasksFunc != nil {
		return m.ListTasksFunc(ctx, userID, filter)
	}
	return nil, errors.New("not implemented")
}

func (m *MockTaskRepository) CountForUser(ctx context.Context, userID int) (int, error) {
	if m.CountForUserFunc != nil {
		return m.CountForUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockTaskRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	if m.UpdateTaskFunc != nil {
		return m.UpdateTaskFunc(ctx, task)
	}
	return nil
}

func (m *MockTaskRepository) DeleteTask(ctx context.Context, taskID int) error {
	if m.DeleteTaskFunc != nil {
		return m.DeleteTaskFunc(ctx, taskID)
	}
	return nil
}

func (m *MockTaskRepository) DeleteAllForUser(ctx context.Context, userID int) (int64, error) {
	if m.DeleteAllForUserFunc != nil {
		return m.DeleteAllForUserFunc(ctx, userID)
	}
	return 0, nil
}

func sampleTasks(n int) []models.Task {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	tasks := make([]models.Task, 0, n)
	for i := 1; i <= n; i++ {
		tasks = append(tasks, models.Task{
			ID:        i,
			Title:     "task",
			UserID:    1,
			CreatedAt: created,
		})
	}
	return tasks
}

// ==============================================
// LIST / PAGINATION
// ==============================================

func TestListTasks(t *testing.T) {
	ctx := context.Background()

	t.Run("first page reports more and carries a cursor", func(t *testing.T) {
		repo := &MockTaskRepository{
			ListTasksFunc: func(ctx context.Context, userID int, filter models.TaskFilter) ([]models.Task, error) {
				// limit+1 probe
				assert.Equal(t, 2, filter.Limit)
				return sampleTasks(2), nil
			},
		}
		svc := NewTaskService(repo)

		resp, err := svc.ListTasks(ctx, 1, ListQuery{Limit: 1})
		require.NoError(t, err)

		assert.True(t, resp.Pagination.HasMore)
		assert.Equal(t, 1, resp.Pagination.TotalReturned)
		require.NotNil(t, resp.Pagination.NextCursor)
		assert.Equal(t, EncodeCursor(1), *resp.Pagination.NextCursor)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, 1, resp.Data[0].ID)
	})

	t.Run("last page has no cursor", func(t *testing.T) {
		repo := &MockTaskRepository{
			ListTasksFunc: func(ctx context.Context, userID int, filter models.TaskFilter) ([]models.Task, error) {
				assert.Equal(t, 1, filter.AfterID)
				return sampleTasks(2)[1:], nil
			},
		}
		svc := NewTaskService(repo)

		resp, err := svc.ListTasks(ctx, 1, ListQuery{Limit: 1, Cursor: EncodeCursor(1)})
		require.NoError(t, err)

		assert.False(t, resp.Pagination.HasMore)
		assert.Nil(t, resp.Pagination.NextCursor)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, 2, resp.Data[0].ID)
	})

	t.Run("empty result is not found", func(t *testing.T) {
		repo := &MockTaskRepository{
			ListTasksFunc: func(ctx context.Context, userID int, filter models.TaskFilter) ([]models.Task, error) {
				return nil, nil
			},
		}
		svc := NewTaskService(repo)

		_, err := svc.ListTasks(ctx, 1, ListQuery{})
		assert.ErrorIs(t, err, models.ErrTaskNotFound)
	})

	t.Run("limit defaults and clamps", func(t *testing.T) {
		var gotLimit int
		repo := &MockTaskRepository{
			ListTasksFunc: func(ctx context.Context, userID int, filter models.TaskFilter) ([]models.Task, error) {
				gotLimit = filter.Limit
				return sampleTasks(1), nil
			},
		}
		svc := NewTaskService(repo)

		_, err := svc.ListTasks(ctx, 1, ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, DefaultPageSize+1, gotLimit)

		_, err = svc.ListTasks(ctx, 1, ListQuery{Limit: 500})
		require.NoError(t, err)
		assert.Equal(t, MaxPageSize+1, gotLimit)
	})

	t.Run("bad cursor", func(t *testing.T) {
		svc := NewTaskService(&MockTaskRepository{})

		_, err := svc.ListTasks(ctx, 1, ListQuery{Cursor: "not base64 ???"})
		assert.ErrorIs(t, err, models.ErrInvalidCursor)
	})

	t.Run("bad datetime", func(t *testing.T) {
		svc := NewTaskService(&MockTaskRepository{})

		_, err := svc.ListTasks(ctx, 1, ListQuery{After: "last tuesday"})
		assert.ErrorIs(t, err, models.ErrInvalidDatetime)
	})

	t.Run("date filters expand to day bounds", func(t *testing.T) {
		var got models.TaskFilter
		repo := &MockTaskRepository{
			ListTasksFunc: func(ctx context.Context, userID int, filter models.TaskFilter) ([]models.Task, error) {
				got = filter
				return sampleTasks(1), nil
			},
		}
		svc := NewTaskService(repo)

		_, err := svc.ListTasks(ctx, 1, ListQuery{After: "2025-06-01", Before: "2025-06-02"})
		require.NoError(t, err)

		require.NotNil(t, got.After)
		require.NotNil(t, got.Before)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *got.After)
		assert.Equal(t, time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC), *got.Before)
	})
}

func TestCursorCodec(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		id, err := DecodeCursor(EncodeCursor(42))
		require.NoError(t, err)
		assert.Equal(t, 42, id)
	})

	t.Run("rejects junk", func(t *testing.T) {
		_, err := DecodeCursor("@@@@")
		assert.Error(t, err)

		// valid base64 but not a task id
		_, err = DecodeCursor("aGVsbG8=")
		assert.Error(t, err)
	})
}

// ==============================================
// CREATE / UPDATE / DELETE
// ==============================================

func TestAddTask(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with the session user id", func(t *testing.T) {
		var created *models.Task
		repo := &MockTaskRepository{
			CreateTaskFunc: func(ctx context.Context, task *models.Task) error {
				task.ID = 5
				created = task
				return nil
			},
		}
		svc := NewTaskService(repo)

		id, err := svc.AddTask(ctx, 1, dto.AddTaskRequest{Title: "buy milk", Description: "2L"})
		require.NoError(t, err)
		assert.Equal(t, 5, id)
		assert.Equal(t, 1, created.UserID)
	})

	t.Run("client-supplied user id is forbidden", func(t *testing.T) {
		svc := NewTaskService(&MockTaskRepository{})

		_, err := svc.AddTask(ctx, 1, dto.AddTaskRequest{Title: "buy milk", Description: "2L", UserID: 2})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("quota reached", func(t *testing.T) {
		repo := &MockTaskRepository{
			CountForUserFunc: func(ctx context.Context, userID int) (int, error) {
				return models.MaxTasksPerUser, nil
			},
		}
		svc := NewTaskService(repo)

		_, err := svc.AddTask(ctx, 1, dto.AddTaskRequest{Title: "one too many", Description: "x"})
		assert.ErrorIs(t, err, models.ErrTaskQuota)
	})
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only provided fields", func(t *testing.T) {
		var updated *models.Task
		repo := &MockTaskRepository{
			GetTaskForUserFunc: func(ctx context.Context, taskID, userID int) (*models.Task, error) {
				return &models.Task{ID: taskID, Title: "old", Description: "keep me", UserID: userID}, nil
			},
			UpdateTaskFunc: func(ctx context.Context, task *models.Task) error {
				updated = task
				return nil
			},
		}
		svc := NewTaskService(repo)

		title := "new"
		done := true
		err := svc.UpdateTask(ctx, 1, 3, dto.UpdateTaskRequest{Title: &title, Completion: &done})
		require.NoError(t, err)

		assert.Equal(t, "new", updated.Title)
		assert.Equal(t, "keep me", updated.Description)
		assert.True(t, updated.Completion)
	})

	t.Run("someone else's task reads as missing", func(t *testing.T) {
		svc := NewTaskService(&MockTaskRepository{})

		title := "new"
		err := svc.UpdateTask(ctx, 1, 3, dto.UpdateTaskRequest{Title: &title})
		assert.ErrorIs(t, err, models.ErrTaskNotFound)
	})
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes own task", func(t *testing.T) {
		deleted := 0
		repo := &MockTaskRepository{
			GetTaskByIDFunc: func(ctx context.Context, taskID int) (*models.Task, error) {
				return &models.Task{ID: taskID, UserID: 1}, nil
			},
			DeleteTaskFunc: func(ctx context.Context, taskID int) error {
				deleted = taskID
				return nil
			},
		}
		svc := NewTaskService(repo)

		require.NoError(t, svc.DeleteTask(ctx, 1, 3))
		assert.Equal(t, 3, deleted)
	})

	t.Run("ownership mismatch is forbidden, not missing", func(t *testing.T) {
		repo := &MockTaskRepository{
			GetTaskByIDFunc: func(ctx context.Context, taskID int) (*models.Task, error) {
				return &models.Task{ID: taskID, UserID: 2}, nil
			},
			DeleteTaskFunc: func(ctx context.Context, taskID int) error {
				t.Fatal("DeleteTask must not run for another user's task")
				return nil
			},
		}
		svc := NewTaskService(repo)

		err := svc.DeleteTask(ctx, 1, 3)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("missing task", func(t *testing.T) {
		svc := NewTaskService(&MockTaskRepository{})

		err := svc.DeleteTask(ctx, 1, 3)
		assert.ErrorIs(t, err, models.ErrTaskNotFound)
	})
}

func TestDeleteAllTasks(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the count", func(t *testing.T) {
		repo := &MockTaskRepository{
			DeleteAllForUserFunc: func(ctx context.Context, userID int) (int64, error) {
				return 4, nil
			},
		}
		svc := NewTaskService(repo)

		n, err := svc.DeleteAllTasks(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("nothing to delete", func(t *testing.T) {
		svc := NewTaskService(&MockTaskRepository{})

		_, err := svc.DeleteAllTasks(ctx, 1)
		assert.ErrorIs(t, err, models.ErrTaskNotFound)
	})
}
