package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/api/dto"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/ratelimit"
	"github.com/taskpilot/taskpilot/internal/service"
)

// ==============================================
// MOCK SERVICE
// ==============================================

type MockTaskService struct {
	ListTasksFunc      func(ctx context.Context, userID int, q service.ListQuery) (*dto.ListTasksResponse, error)
	GetTaskFunc        func(ctx context.Context, userID, taskID int) (*dto.TaskDTO, error)
	AddTaskFunc        func(ctx context.Context, userID int, req dto.AddTaskRequest) (int, error)
	UpdateTaskFunc     func(ctx context.Context, userID, taskID int, req dto.UpdateTaskRequest) error
	DeleteTaskFunc     func(ctx context.Context, userID, taskID int) error
	DeleteAllTasksFunc func(ctx context.Context, userID int) (int64, error)
}

func (m *MockTaskService) ListTasks(ctx context.Context, userID int, q service.ListQuery) (*dto.ListTasksResponse, error) {
	return m.ListTasksFunc(ctx, userID, q)
}

func (m *MockTaskService) GetTask(ctx context.Context, userID, taskID int) (*dto.TaskDTO, error) {
	return m.GetTaskFunc(ctx, userID, taskID)
}

func (m *MockTaskService) AddTask(ctx context.Context, userID int, req dto.AddTaskRequest) (int, error) {
	return m.AddTaskFunc(ctx, userID, req)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, userID, taskID int, req dto.UpdateTaskRequest) error {
	return m.UpdateTaskFunc(ctx, userID, taskID, req)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, userID, taskID int) error {
	return m.DeleteTaskFunc(ctx, userID, taskID)
}

func (m *MockTaskService) DeleteAllTasks(ctx context.Context, userID int) (int64, error) {
	return m.DeleteAllTasksFunc(ctx, userID)
}

// ==============================================
// TEST SETUP
// ==============================================

func setupTaskTest(svc *MockTaskService) (*gin.Engine, string) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	tokens := auth.NewTokenService("test-secret")
	handler := NewTaskHandler(svc, tokens, ratelimit.NewMemoryStore())
	handler.RegisterRoutes(router)

	session, _, _ := tokens.IssueSession(1)
	return router, session
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ==============================================
// AUTH GUARD
// ==============================================

func TestTasksRequireSession(t *testing.T) {
	router, _ := setupTaskTest(&MockTaskService{})

	t.Run("no token", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/tasks", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "token is missing", decodeError(t, w).Reason)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/tasks", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "token invalid", decodeError(t, w).Reason)
	})
}

// ==============================================
// ENDPOINTS
// ==============================================

func TestGetTasksEndpoint(t *testing.T) {
	t.Run("passes query through and returns the page", func(t *testing.T) {
		svc := &MockTaskService{
			ListTasksFunc: func(ctx context.Context, userID int, q service.ListQuery) (*dto.ListTasksResponse, error) {
				assert.Equal(t, 1, userID)
				assert.Equal(t, "true", q.Completion)
				assert.Equal(t, 5, q.Limit)
				return &dto.ListTasksResponse{
					Data:       []dto.TaskDTO{{ID: 1, Title: "t"}},
					Pagination: dto.PaginationDTO{Limit: 5, TotalReturned: 1},
					Meta:       dto.MetaDTO{Version: "1.0"},
				}, nil
			},
		}
		router, session := setupTaskTest(svc)

		w := doJSON(router, http.MethodGet, "/api/tasks?completion=true&limit=5", session, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListTasksResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 1)
	})

	t.Run("empty list is 404", func(t *testing.T) {
		svc := &MockTaskService{
			ListTasksFunc: func(ctx context.Context, userID int, q service.ListQuery) (*dto.ListTasksResponse, error) {
				return nil, models.ErrTaskNotFound
			},
		}
		router, session := setupTaskTest(svc)

		w := doJSON(router, http.MethodGet, "/api/tasks", session, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "No Task found", decodeError(t, w).Message)
	})

	t.Run("bad cursor is 400", func(t *testing.T) {
		svc := &MockTaskService{
			ListTasksFunc: func(ctx context.Context, userID int, q service.ListQuery) (*dto.ListTasksResponse, error) {
				return nil, models.ErrInvalidCursor
			},
		}
		router, session := setupTaskTest(svc)

		w := doJSON(router, http.MethodGet, "/api/tasks?cursor=junk", session, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-integer limit is 400", func(t *testing.T) {
		router, session := setupTaskTest(&MockTaskService{})

		w := doJSON(router, http.MethodGet, "/api/tasks?limit=ten", session, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAddTaskEndpoint(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := &MockTaskService{
			AddTaskFunc: func(ctx context.Context, userID int, req dto.AddTaskRequest) (int, error) {
				return 7, nil
			},
		}
		router, session := setupTaskTest(svc)

		w := doJSON(router, http.MethodPost, "/api/tasks", session, gin.H{"title": "buy milk", "description": "2L"})
		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.AddTaskResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 7, resp.TaskID)
	})

	t.Run("user_id in payload is forbidden", func(t *testing.T) {
		svc := &MockTaskService{
			AddTaskFunc: func(ctx context.Context, userID int, req dto.AddTaskRequest) (int, error) {
				return 0, models.ErrForbidden
			},
		}
		router, session := setupTaskTest(svc)

		w := doJSON(router, http.MethodPost, "/api/tasks", session, gin.H{"title": "x", "description": "y", "user_id": 2})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN_ACCESS", decodeError(t, w).Code)
	})

	t.Run("quota is forbidden", func(t *testing.T) {
		svc := &MockTaskService{
			AddTaskFunc: func(ctx context.Context, userID int, req dto.AddTaskRequest) (int, error) {
				return 0, models.ErrTaskQuota
			},
		}
		router, session := setupTaskTest(svc)

		w := doJSON(router, http.MethodPost, "/api/tasks", session, gin.H{"title": "x", "description": "y"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing title is 400", func(t *testing.T) {
		router, session := setupTaskTest(&MockTaskService{})

		w := doJSON(router, http.MethodPost, "/api/tasks", session, gin.H{"description": "y"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateTaskEndpoint(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		svc := &MockTaskService{
			UpdateTaskFunc: func(ctx context.Context, userID, taskID int, req dto.UpdateTaskRequest) error {
				assert.Equal(t, 3, taskID)
				require.NotNil(t, req.Title)
				assert.Equal(t, "new title", *req.Title)
				return nil
			},
		}
		router, session := setupTaskTest(svc)

		w := doJSON(router, http.MethodPut, "/api/tasks/3", session, gin.H{"title": "new title"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("empty patch is 400", func(t *testing.T) {
		router, session := setupTaskTest(&MockTaskService{})

		w := doJSON(router, http.MethodPut, "/api/tasks/3", session, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad id is 400", func(t *testing.T) {
		router, session := setupTaskTest(&MockTaskService{})

		w := doJSON(router, http.MethodPut, "/api/tasks/abc", session, gin.H{"title": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteTaskEndpoint(t *testing.T) {
	t.Run("forbidden for another user's task", func(t *testing.T) {
		svc := &MockTaskService{
			DeleteTaskFunc: func(ctx context.Context, userID, taskID int) error {
				return models.ErrForbidden
			},
		}
		router, session := setupTaskTest(svc)

		w := doJSON(router, http.MethodDelete, "/api/tasks/3", session, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing task is 404", func(t *testing.T) {
		svc := &MockTaskService{
			DeleteTaskFunc: func(ctx context.Context, userID, taskID int) error {
				return models.ErrTaskNotFound
			},
		}
		router, session := setupTaskTest(svc)

		w := doJSON(router, http.MethodDelete, "/api/tasks/3", session, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeleteAllTasksEndpoint(t *testing.T) {
	svc := &MockTaskService{
		DeleteAllTasksFunc: func(ctx context.Context, userID int) (int64, error) {
			return 4, nil
		},
	}
	router, session := setupTaskTest(svc)

	w := doJSON(router, http.MethodDelete, "/api/tasks", session, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Deleted 4 tasks", resp.Message)
}
