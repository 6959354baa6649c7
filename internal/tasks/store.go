package tasks

import (
	"context"
	"time"
)

// CreateListInput carries everything needed to persist a new list.
type CreateListInput struct {
	UserID string
	Title  string
	Now    time.Time
}

// CreateTaskInput carries everything needed to persist a new task.
type CreateTaskInput struct {
	ListID string
	Title  string
	Now    time.Time
}

// Store persists lists and tasks.
//
// All list operations are scoped by owner: a (listID, userID) pair that
// does not match returns ErrNotFound, never a permission error. Task
// operations are scoped by list; the HTTP layer resolves list ownership
// first.
type Store interface {
	CreateList(ctx context.Context, in CreateListInput) (List, error)
	ListsByUser(ctx context.Context, userID string) ([]List, error)
	GetList(ctx context.Context, listID, userID string) (List, error)
	UpdateListTitle(ctx context.Context, listID, userID, title string) (List, error)
	// DeleteList removes the list and all of its tasks.
	DeleteList(ctx context.Context, listID, userID string) error

	CreateTask(ctx context.Context, in CreateTaskInput) (Task, error)
	TasksByList(ctx context.Context, listID string) ([]Task, error)
	GetTask(ctx context.Context, taskID, listID string) (Task, error)
	UpdateTask(ctx context.Context, taskID, listID string, upd TaskUpdate) (Task, error)
	DeleteTask(ctx context.Context, taskID, listID string) error
}
