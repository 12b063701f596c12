package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskpilot/taskpilot/internal/api/dto"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/ratelimit"
	"github.com/taskpilot/taskpilot/internal/service"
)

// ==============================================
// SERVICE INTERFACE (for testing)
// ==============================================

type TaskServiceInterface interface {
	ListTasks(ctx context.Context, userID int, q service.ListQuery) (*dto.ListTasksResponse, error)
	GetTask(ctx context.Context, userID, taskID int) (*dto.TaskDTO, error)
	AddTask(ctx context.Context, userID int, req dto.AddTaskRequest) (int, error)
	UpdateTask(ctx context.Context, userID, taskID int, req dto.UpdateTaskRequest) error
	DeleteTask(ctx context.Context, userID, taskID int) error
	DeleteAllTasks(ctx context.Context, userID int) (int64, error)
}

// Per-IP admission limit for task reads.
const (
	TaskReadRateLimit  = 100
	TaskReadRateWindow = 60 * time.Second
)

// ==============================================
// TASK HANDLER
// ==============================================

type TaskHandler struct {
	service TaskServiceInterface
	tokens  *auth.TokenService
	limiter ratelimit.Store
}

func NewTaskHandler(service TaskServiceInterface, tokens *auth.TokenService, limiter ratelimit.Store) *TaskHandler {
	return &TaskHandler{service: service, tokens: tokens, limiter: limiter}
}

func (h *TaskHandler) RegisterRoutes(router *gin.Engine) {
	tasks := router.Group("/api/tasks", RequireSession(h.tokens))

	readLimit := RateLimit(h.limiter, "tasks-read", TaskReadRateLimit, TaskReadRateWindow)
	tasks.GET("", readLimit, h.GetTasks)
	tasks.GET("/:id", readLimit, h.GetTask)
	tasks.POST("", h.AddTask)
	tasks.PUT("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
	tasks.DELETE("", h.DeleteAllTasks)
}

// ==============================================
// READ ENDPOINTS
// ==============================================

func (h *TaskHandler) GetTasks(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "", "Invalid limit", "", "limit must be an integer")
			return
		}
		limit = n
	}

	q := service.ListQuery{
		Completion: c.Query("completion"),
		Title:      c.Query("title"),
		After:      c.Query("after"),
		Before:     c.Query("before"),
		Cursor:     c.Query("cursor"),
		Limit:      limit,
	}

	resp, err := h.service.ListTasks(c.Request.Context(), sessionUserID(c), q)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTaskNotFound):
			notFound(c, "No Task found")
		case errors.Is(err, models.ErrInvalidDatetime):
			badRequest(c, "InvalidDatetime", "Invalid datetime format", "use YYYY-MM-DD or an ISO 8601 timestamp", nil)
		case errors.Is(err, models.ErrInvalidCursor):
			badRequest(c, "InvalidCursor", "Invalid cursor", "the cursor is malformed or does not reference a task id", nil)
		default:
			log.Printf("[HANDLER] list tasks failed: %v", err)
			internalError(c, "Failed to list tasks")
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := pathTaskID(c)
	if !ok {
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), sessionUserID(c), taskID)
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			notFound(c, "No Task found")
			return
		}
		log.Printf("[HANDLER] get task failed: %v", err)
		internalError(c, "Failed to get task")
		return
	}

	c.JSON(http.StatusOK, task)
}

// ==============================================
// WRITE ENDPOINTS
// ==============================================

func (h *TaskHandler) AddTask(c *gin.Context) {
	var req dto.AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindingError(c, err)
		return
	}

	taskID, err := h.service.AddTask(c.Request.Context(), sessionUserID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			forbidden(c, "Forbidden, not authorized to access other data")
		case errors.Is(err, models.ErrTaskQuota):
			forbidden(c, fmt.Sprintf("Task limit reached (%d)", models.MaxTasksPerUser))
		default:
			log.Printf("[HANDLER] add task failed: %v", err)
			internalError(c, "Failed to add task")
		}
		return
	}

	c.JSON(http.StatusCreated, dto.AddTaskResponse{Message: "Task added", TaskID: taskID})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	taskID, ok := pathTaskID(c)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindingError(c, err)
		return
	}
	if req.Empty() {
		badRequest(c, "", "Nothing to update", "provide at least one of title, description or completion", nil)
		return
	}

	if err := h.service.UpdateTask(c.Request.Context(), sessionUserID(c), taskID, req); err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			notFound(c, "No Task found")
			return
		}
		log.Printf("[HANDLER] update task failed: %v", err)
		internalError(c, "Failed to update task")
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Task updated successfully"})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, ok := pathTaskID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), sessionUserID(c), taskID); err != nil {
		switch {
		case errors.Is(err, models.ErrTaskNotFound):
			notFound(c, "No Task found")
		case errors.Is(err, models.ErrForbidden):
			forbidden(c, "Forbidden, not authorized to access other data")
		default:
			log.Printf("[HANDLER] delete task failed: %v", err)
			internalError(c, "Failed to delete task")
		}
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Task deleted"})
}

func (h *TaskHandler) DeleteAllTasks(c *gin.Context) {
	deleted, err := h.service.DeleteAllTasks(c.Request.Context(), sessionUserID(c))
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			notFound(c, "No Task found")
			return
		}
		log.Printf("[HANDLER] delete all tasks failed: %v", err)
		internalError(c, "Failed to delete tasks")
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{
		Message: fmt.Sprintf("Deleted %d tasks", deleted),
	})
}

// ==============================================
// HELPER FUNCTIONS
// ==============================================

func pathTaskID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "", "Invalid task id", "", "task id must be a positive integer")
		return 0, false
	}
	return id, true
}
