// Package cache implements the local cache source: a persistent snapshot of
// the task collection, stored in a JSON file, SQLite, Postgres or memory.
package cache

import (
	"context"
	"sync"

	"tasker/internal/service"
	"tasker/internal/taskerr"
)

// backend persists a whole snapshot. Implementations need not be safe for
// concurrent use; Store serializes access.
type backend interface {
	load(ctx context.Context) ([]service.Task, error)
	save(ctx context.Context, tasks []service.Task) error
	close() error
}

// Store implements service.Cache on top of a snapshot backend.
// Every mutation loads the full snapshot, changes it in memory and writes it
// back while holding the instance lock, so concurrent upserts are never lost.
type Store struct {
	mu     sync.RWMutex
	b      backend
	driver string
}

var _ service.Cache = (*Store)(nil)

func newStore(driver string, b backend) *Store {
	return &Store{b: b, driver: driver}
}

// Driver returns the name of the storage driver, e.g. "json" or "sqlite".
func (s *Store) Driver() string { return s.driver }

// List returns the complete snapshot.
func (s *Store) List(ctx context.Context) ([]service.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(ctx, "cache list")
}

// Get returns one task from the snapshot.
func (s *Store) Get(ctx context.Context, id string) (service.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks, err := s.read(ctx, "cache get")
	if err != nil {
		return service.Task{}, err
	}
	if t, ok := service.FindTask(tasks, id); ok {
		return t, nil
	}
	return service.Task{}, taskerr.Errorf(taskerr.NotFound, "cache get", "task not found: %s", id)
}

// Create upserts task into the snapshot.
func (s *Store) Create(ctx context.Context, task service.Task) (service.Task, error) {
	return task, s.upsert(ctx, "cache create", task)
}

// Update upserts task into the snapshot.
func (s *Store) Update(ctx context.Context, task service.Task) (service.Task, error) {
	return task, s.upsert(ctx, "cache update", task)
}

// Delete removes a task from the snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "cache delete"
	return s.mutate(ctx, op, func(tasks []service.Task) ([]service.Task, error) {
		for i, t := range tasks {
			if t.ID == id {
				return append(tasks[:i], tasks[i+1:]...), nil
			}
		}
		return nil, taskerr.Errorf(taskerr.NotFound, op, "task not found: %s", id)
	})
}

// Replace overwrites the snapshot with tasks.
func (s *Store) Replace(ctx context.Context, tasks []service.Task) error {
	const op = "cache replace"
	for _, t := range tasks {
		if t.ID == "" {
			return taskerr.New(taskerr.Invalid, op, "task without id")
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return taskerr.FromStorage(op, err)
	}
	return taskerr.FromStorage(op, s.b.save(ctx, dedupe(tasks)))
}

// Close releases the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.close()
}

func (s *Store) upsert(ctx context.Context, op string, task service.Task) error {
	if task.ID == "" {
		return taskerr.New(taskerr.Invalid, op, "task without id")
	}
	return s.mutate(ctx, op, func(tasks []service.Task) ([]service.Task, error) {
		for i, t := range tasks {
			if t.ID == task.ID {
				tasks[i] = task
				return tasks, nil
			}
		}
		return append(tasks, task), nil
	})
}

// mutate runs one read-modify-write cycle as a single critical section.
func (s *Store) mutate(ctx context.Context, op string, fn func([]service.Task) ([]service.Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read(ctx, op)
	if err != nil {
		return err
	}
	tasks, err = fn(tasks)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return taskerr.FromStorage(op, err)
	}
	return taskerr.FromStorage(op, s.b.save(ctx, tasks))
}

func (s *Store) read(ctx context.Context, op string) ([]service.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, taskerr.FromStorage(op, err)
	}
	tasks, err := s.b.load(ctx)
	if err != nil {
		return nil, taskerr.FromStorage(op, err)
	}
	return tasks, nil
}

// dedupe keeps the first position and the last value of each id.
func dedupe(tasks []service.Task) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	index := make(map[string]int, len(tasks))
	for _, t := range tasks {
		if i, ok := index[t.ID]; ok {
			out[i] = t
			continue
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}
