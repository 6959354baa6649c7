package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tasknest/internal/identity"
)

// MemoryStore is an in-memory Store used when no database is
// configured, and by tests. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	lists map[string]List
	tasks map[string]Task
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists: make(map[string]List),
		tasks: make(map[string]Task),
	}
}

func (s *MemoryStore) CreateList(ctx context.Context, in CreateListInput) (List, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := identity.NewID(now)
	if err != nil {
		return List{}, fmt.Errorf("tasks.CreateList: %w", err)
	}

	l := List{ID: id, UserID: in.UserID, Title: in.Title, CreatedAt: now}

	s.mu.Lock()
	s.lists[id] = l
	s.mu.Unlock()

	return l, nil
}

func (s *MemoryStore) ListsByUser(ctx context.Context, userID string) ([]List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]List, 0)
	for _, l := range s.lists {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sortLists(out)
	return out, nil
}

func (s *MemoryStore) GetList(ctx context.Context, listID, userID string) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok || l.UserID != userID {
		return List{}, ErrNotFound
	}
	return l, nil
}

func (s *MemoryStore) UpdateListTitle(ctx context.Context, listID, userID, title string) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok || l.UserID != userID {
		return List{}, ErrNotFound
	}
	l.Title = title
	s.lists[listID] = l
	return l, nil
}

func (s *MemoryStore) DeleteList(ctx context.Context, listID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok || l.UserID != userID {
		return ErrNotFound
	}
	delete(s.lists, listID)
	for id, t := range s.tasks {
		if t.ListID == listID {
			delete(s.tasks, id)
		}
	}
	return nil
}

func (s *MemoryStore) CreateTask(ctx context.Context, in CreateTaskInput) (Task, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := identity.NewID(now)
	if err != nil {
		return Task{}, fmt.Errorf("tasks.CreateTask: %w", err)
	}

	t := Task{ID: id, ListID: in.ListID, Title: in.Title, CreatedAt: now}

	s.mu.Lock()
	s.tasks[id] = t
	s.mu.Unlock()

	return t, nil
}

func (s *MemoryStore) TasksByList(ctx context.Context, listID string) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0)
	for _, t := range s.tasks {
		if t.ListID == listID {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out, nil
}

func (s *MemoryStore) GetTask(ctx context.Context, taskID, listID string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok || t.ListID != listID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, taskID, listID string, upd TaskUpdate) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok || t.ListID != listID {
		return Task{}, ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Completed != nil {
		t.Completed = *upd.Completed
	}
	s.tasks[taskID] = t
	return t, nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, taskID, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok || t.ListID != listID {
		return ErrNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

func sortLists(ls []List) {
	sort.Slice(ls, func(i, j int) bool {
		if !ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].CreatedAt.Before(ls[j].CreatedAt)
		}
		return ls[i].ID < ls[j].ID
	})
}

func sortTasks(ts []Task) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
