package tasks

import "time"

// List is a named collection of tasks owned by exactly one user.
type List struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task belongs to exactly one list.
type Task struct {
	ID        string    `json:"id"`
	ListID    string    `json:"listId"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskUpdate is a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Title     *string
	Completed *bool
}
