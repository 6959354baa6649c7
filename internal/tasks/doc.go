// Package tasks implements per-user task lists: list and task CRUD,
// scoped so that a user can only ever see or touch their own lists.
package tasks
