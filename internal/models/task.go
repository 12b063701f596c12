package models

import (
	"time"
)

// ==============================================
// TASK MODEL
// ==============================================

// MaxTasksPerUser caps how many open tasks one account may hold.
const MaxTasksPerUser = 1000

type Task struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Completion  bool      `db:"completion"`
	UserID      int       `db:"user_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// TaskFilter narrows a task listing. Nil fields are not applied.
// AfterID implements forward-only cursor pagination over ascending ids.
type TaskFilter struct {
	Completion *bool
	Title      string
	After      *time.Time
	Before     *time.Time
	AfterID    int
	Limit      int
}
