package cache

import (
	"context"

	"tasker/internal/service"
)

// memoryBackend keeps the snapshot in process memory.
type memoryBackend struct {
	tasks []service.Task
}

// NewMemory returns a cache that lives only as long as the process.
func NewMemory() *Store {
	return newStore(DriverMemory, &memoryBackend{})
}

func (m *memoryBackend) load(context.Context) ([]service.Task, error) {
	return append([]service.Task(nil), m.tasks...), nil
}

func (m *memoryBackend) save(_ context.Context, tasks []service.Task) error {
	m.tasks = append([]service.Task(nil), tasks...)
	return nil
}

func (m *memoryBackend) close() error { return nil }
