package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/taskpilot/taskpilot/internal/api/dto"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/repository"
)

// ==============================================
// REPOSITORY INTERFACE (for testing)
// ==============================================

type TaskRepositoryInterface interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskForUser(ctx context.Context, taskID, userID int) (*models.Task, error)
	GetTaskByID(ctx context.Context, taskID int) (*models.Task, error)
	ListTasks(ctx context.Context, userID int, filter models.TaskFilter) ([]models.Task, error)
	CountForUser(ctx context.Context, userID int) (int, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, taskID int) error
	DeleteAllForUser(ctx context.Context, userID int) (int64, error)
}

// ==============================================
// PAGINATION CONSTANTS
// ==============================================

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ==============================================
// SERVICE
// ==============================================

type TaskService struct {
	repo TaskRepositoryInterface
}

func NewTaskService(repo TaskRepositoryInterface) *TaskService {
	return &TaskService{repo: repo}
}

// ==============================================
// LIST (filters + cursor pagination)
// ==============================================

// ListQuery carries the raw query-string values; parsing and
// normalization happen here so handlers stay thin.
type ListQuery struct {
	Completion string
	Title      string
	After      string
	Before     string
	Cursor     string
	Limit      int
}

func (s *TaskService) ListTasks(ctx context.Context, userID int, q ListQuery) (*dto.ListTasksResponse, error) {
	filter, pageSize, err := s.buildFilter(q)
	if err != nil {
		return nil, err
	}

	// +1 row to learn whether a further page exists
	filter.Limit = pageSize + 1

	results, err := s.repo.ListTasks(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if len(results) == 0 {
		log.Printf("[TASKS] no tasks found for user_id=%d", userID)
		return nil, models.ErrTaskNotFound
	}

	hasMore := len(results) > pageSize
	tasks := results
	if hasMore {
		tasks = results[:pageSize]
	}

	var nextCursor *string
	if hasMore && len(tasks) > 0 {
		cursor := EncodeCursor(tasks[len(tasks)-1].ID)
		nextCursor = &cursor
	}

	resp := &dto.ListTasksResponse{
		Data: make([]dto.TaskDTO, 0, len(tasks)),
		Pagination: dto.PaginationDTO{
			NextCursor:    nextCursor,
			HasMore:       hasMore,
			Limit:         pageSize,
			TotalReturned: len(tasks),
		},
		Meta: dto.MetaDTO{Version: "1.0"},
	}
	for i := range tasks {
		resp.Data = append(resp.Data, taskToDTO(&tasks[i]))
	}

	return resp, nil
}

func (s *TaskService) buildFilter(q ListQuery) (models.TaskFilter, int, error) {
	var filter models.TaskFilter

	if q.Completion != "" {
		switch strings.ToLower(q.Completion) {
		case "true", "1", "yes":
			v := true
			filter.Completion = &v
		case "false", "0", "no":
			v := false
			filter.Completion = &v
		}
	}

	filter.Title = q.Title

	if q.After != "" {
		t, err := parseQueryDate(q.After, false)
		if err != nil {
			return filter, 0, models.ErrInvalidDatetime
		}
		filter.After = &t
	}
	if q.Before != "" {
		t, err := parseQueryDate(q.Before, true)
		if err != nil {
			return filter, 0, models.ErrInvalidDatetime
		}
		filter.Before = &t
	}

	if q.Cursor != "" {
		afterID, err := DecodeCursor(q.Cursor)
		if err != nil {
			return filter, 0, models.ErrInvalidCursor
		}
		filter.AfterID = afterID
	}

	pageSize := q.Limit
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return filter, pageSize, nil
}

// ==============================================
// SINGLE TASK
// ==============================================

func (s *TaskService) GetTask(ctx context.Context, userID, taskID int) (*dto.TaskDTO, error) {
	task, err := s.repo.GetTaskForUser(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, models.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	d := taskToDTO(task)
	return &d, nil
}

// ==============================================
// CREATE
// ==============================================

func (s *TaskService) AddTask(ctx context.Context, userID int, req dto.AddTaskRequest) (int, error) {
	// the subject id comes from the session token; a client-supplied
	// user_id is a cross-account attempt
	if req.UserID != 0 {
		log.Printf("[TASKS] client supplied user_id in payload, user_id=%d", userID)
		return 0, models.ErrForbidden
	}

	count, err := s.repo.CountForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	if count >= models.MaxTasksPerUser {
		return 0, models.ErrTaskQuota
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		UserID:      userID,
	}
	if req.Completion != nil {
		task.Completion = *req.Completion
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}

	log.Printf("[TASKS] task added: task_id=%d user_id=%d", task.ID, userID)
	return task.ID, nil
}

// ==============================================
// UPDATE
// ==============================================

func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID int, req dto.UpdateTaskRequest) error {
	task, err := s.repo.GetTaskForUser(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return models.ErrTaskNotFound
		}
		return fmt.Errorf("failed to get task: %w", err)
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Completion != nil {
		task.Completion = *req.Completion
	}

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// ==============================================
// DELETE
// ==============================================

// DeleteTask distinguishes a missing task (404) from someone else's
// task (403), so the lookup is unscoped here.
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID int) error {
	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return models.ErrTaskNotFound
		}
		return fmt.Errorf("failed to get task: %w", err)
	}

	if task.UserID != userID {
		log.Printf("[TASKS] ownership mismatch: task_id=%d owner=%d caller=%d", taskID, task.UserID, userID)
		return models.ErrForbidden
	}

	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

func (s *TaskService) DeleteAllTasks(ctx context.Context, userID int) (int64, error) {
	deleted, err := s.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}
	if deleted == 0 {
		return 0, models.ErrTaskNotFound
	}

	return deleted, nil
}

// ==============================================
// CURSOR CODEC
// ==============================================

// EncodeCursor wraps the last-seen task id in an opaque base64 cursor.
func EncodeCursor(taskID int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(taskID)))
}

// DecodeCursor recovers the task id from a cursor.
func DecodeCursor(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("failed to decode cursor: %w", err)
	}

	id, err := strconv.Atoi(string(raw))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("cursor is not a task id")
	}

	return id, nil
}

// ==============================================
// HELPER FUNCTIONS
// ==============================================

// parseQueryDate accepts a date-only value (expanded to the start or
// end of the day, UTC) or a full timestamp; naive timestamps are
// assumed UTC.
func parseQueryDate(value string, endOfDay bool) (time.Time, error) {
	if len(value) == len("2006-01-02") {
		t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	t, err := time.ParseInLocation("2006-01-02T15:04:05", value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func taskToDTO(task *models.Task) dto.TaskDTO {
	return dto.TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completion:  task.Completion,
		CreatedAt:   task.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
