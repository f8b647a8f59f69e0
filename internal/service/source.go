package service

import "context"

// Source is a passive CRUD provider consulted by the repository.
// Implementations translate every failure into a *taskerr.Error before
// returning it.
type Source interface {
	// List returns the complete collection known to the source.
	List(ctx context.Context) ([]Task, error)

	// Get returns the task with the given id.
	Get(ctx context.Context, id string) (Task, error)

	// Create stores a new task. The id of draft is a hint; the returned task
	// carries the id the source actually assigned.
	Create(ctx context.Context, draft Task) (Task, error)

	// Update replaces an existing task.
	Update(ctx context.Context, task Task) (Task, error)

	// Delete removes a task.
	Delete(ctx context.Context, id string) error
}

// Cache is a Source backed by local persistent storage holding a snapshot of
// the collection. Create and Update are upserts. Each mutation is atomic per
// cache instance.
type Cache interface {
	Source

	// Replace overwrites the whole snapshot with tasks.
	Replace(ctx context.Context, tasks []Task) error

	// Close releases the underlying storage.
	Close() error
}
