package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasknest/internal/identity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it.
// List deletion relies on the tasks.list_id foreign key cascading, so
// removing a list and its tasks stays a single statement.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("tasks: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateList(ctx context.Context, in CreateListInput) (List, error) {
	const op = "tasks.CreateList"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := identity.NewID(now)
	if err != nil {
		return List{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO lists (id, user_id, title, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, in.UserID, in.Title, now)
	if err != nil {
		return List{}, fmt.Errorf("%s: %w", op, err)
	}

	return List{ID: id, UserID: in.UserID, Title: in.Title, CreatedAt: now}, nil
}

func (s *PostgresStore) ListsByUser(ctx context.Context, userID string) ([]List, error) {
	const op = "tasks.ListsByUser"

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, created_at
		FROM lists
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]List, 0)
	for rows.Next() {
		var l List
		if err := rows.Scan(&l.ID, &l.UserID, &l.Title, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) GetList(ctx context.Context, listID, userID string) (List, error) {
	const op = "tasks.GetList"

	var l List
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, created_at
		FROM lists
		WHERE id = $1 AND user_id = $2
	`, listID, userID).Scan(&l.ID, &l.UserID, &l.Title, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return List{}, ErrNotFound
		}
		return List{}, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

func (s *PostgresStore) UpdateListTitle(ctx context.Context, listID, userID, title string) (List, error) {
	const op = "tasks.UpdateListTitle"

	var l List
	err := s.pool.QueryRow(ctx, `
		UPDATE lists
		SET title = $3
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, created_at
	`, listID, userID, title).Scan(&l.ID, &l.UserID, &l.Title, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return List{}, ErrNotFound
		}
		return List{}, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

func (s *PostgresStore) DeleteList(ctx context.Context, listID, userID string) error {
	const op = "tasks.DeleteList"

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM lists
		WHERE id = $1 AND user_id = $2
	`, listID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, in CreateTaskInput) (Task, error) {
	const op = "tasks.CreateTask"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := identity.NewID(now)
	if err != nil {
		return Task{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tasks (id, list_id, title, completed, created_at)
		VALUES ($1, $2, $3, false, $4)
	`, id, in.ListID, in.Title, now)
	if err != nil {
		return Task{}, fmt.Errorf("%s: %w", op, err)
	}

	return Task{ID: id, ListID: in.ListID, Title: in.Title, Completed: false, CreatedAt: now}, nil
}

func (s *PostgresStore) TasksByList(ctx context.Context, listID string) ([]Task, error) {
	const op = "tasks.TasksByList"

	rows, err := s.pool.Query(ctx, `
		SELECT id, list_id, title, completed, created_at
		FROM tasks
		WHERE list_id = $1
		ORDER BY created_at, id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ListID, &t.Title, &t.Completed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID, listID string) (Task, error) {
	const op = "tasks.GetTask"

	var t Task
	err := s.pool.QueryRow(ctx, `
		SELECT id, list_id, title, completed, created_at
		FROM tasks
		WHERE id = $1 AND list_id = $2
	`, taskID, listID).Scan(&t.ID, &t.ListID, &t.Title, &t.Completed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, taskID, listID string, upd TaskUpdate) (Task, error) {
	const op = "tasks.UpdateTask"

	var t Task
	err := s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    completed = COALESCE($4, completed)
		WHERE id = $1 AND list_id = $2
		RETURNING id, list_id, title, completed, created_at
	`, taskID, listID, upd.Title, upd.Completed).Scan(&t.ID, &t.ListID, &t.Title, &t.Completed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, taskID, listID string) error {
	const op = "tasks.DeleteTask"

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM tasks
		WHERE id = $1 AND list_id = $2
	`, taskID, listID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
