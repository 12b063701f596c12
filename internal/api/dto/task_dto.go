package dto

// ==============================================
// TASK REQUEST DTOs
// ==============================================

// AddTaskRequest carries UserID only to detect clients that try to set
// it; the owner always comes from the session token.
type AddTaskRequest struct {
	Title       string `json:"title" binding:"required,max=60"`
	Description string `json:"description" binding:"required"`
	Completion  *bool  `json:"completion"`
	UserID      int    `json:"user_id"`
}

// UpdateTaskRequest uses pointers so an absent field is distinguishable
// from a zero value and leaves the stored column untouched.
type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=60"`
	Description *string `json:"description"`
	Completion  *bool   `json:"completion"`
}

// Empty reports whether the update carries nothing to change.
func (r *UpdateTaskRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Completion == nil
}

// ==============================================
// TASK RESPONSE DTOs
// ==============================================

type TaskDTO struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completion  bool   `json:"completion"`
	CreatedAt   string `json:"created_at"` // UTC, RFC3339 seconds precision
}

type PaginationDTO struct {
	NextCursor    *string `json:"next_cursor"`
	HasMore       bool    `json:"has_more"`
	Limit         int     `json:"limit"`
	TotalReturned int     `json:"total_returned"`
}

type MetaDTO struct {
	Version string `json:"version"`
}

type ListTasksResponse struct {
	Data       []TaskDTO     `json:"data"`
	Pagination PaginationDTO `json:"pagination"`
	Meta       MetaDTO       `json:"meta"`
}

type AddTaskResponse struct {
	Message string `json:"message"`
	TaskID  int    `json:"task_id"`
}
