// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tasker/internal/service"
	"tasker/internal/taskerr"
)

// FakeSource is an in-memory implementation of service.Source for testing.
// It behaves like a remote backend: it assigns its own ids on Create.
type FakeSource struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int
	calls  map[string]int

	// Error injection for testing
	ListErr   error
	GetErr    error
	CreateErr error
	UpdateErr error
	DeleteErr error

	// KeepDraftID makes Create honour the caller's id instead of assigning one.
	KeepDraftID bool

	// Gate, when set, is received from before every operation runs.
	Gate chan struct{}
}

// NewFakeSource creates an empty FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{calls: make(map[string]int)}
}

// AddTask seeds a task.
func (f *FakeSource) AddTask(id, title string) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{
		ID:        id,
		Title:     title,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, len(f.tasks), 0, time.UTC),
	}
	f.tasks = append(f.tasks, t)
	return t
}

// Calls returns how many times op ("list", "get", "create", "update",
// "delete") was invoked.
func (f *FakeSource) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Snapshot returns a copy of the stored tasks.
func (f *FakeSource) Snapshot() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Task(nil), f.tasks...)
}

func (f *FakeSource) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return taskerr.FromTransport("remote "+op, ctx.Err())
		}
	}
	return taskerr.FromTransport("remote "+op, ctx.Err())
}

// List implements service.Source.
func (f *FakeSource) List(ctx context.Context) ([]service.Task, error) {
	if err := f.enter(ctx, "list"); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Snapshot(), nil
}

// Get implements service.Source.
func (f *FakeSource) Get(ctx context.Context, id string) (service.Task, error) {
	if err := f.enter(ctx, "get"); err != nil {
		return service.Task{}, err
	}
	if f.GetErr != nil {
		return service.Task{}, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := service.FindTask(f.tasks, id); ok {
		return t, nil
	}
	return service.Task{}, taskerr.FromStatus("remote get", 404, "task not found: "+id)
}

// Create implements service.Source.
func (f *FakeSource) Create(ctx context.Context, draft service.Task) (service.Task, error) {
	if err := f.enter(ctx, "create"); err != nil {
		return service.Task{}, err
	}
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t := draft
	if !f.KeepDraftID || t.ID == "" {
		f.nextID++
		t.ID = fmt.Sprintf("srv-%d", f.nextID)
	}
	t.Completed = false
	f.tasks = append(f.tasks, t)
	return t, nil
}

// Update implements service.Source.
func (f *FakeSource) Update(ctx context.Context, task service.Task) (service.Task, error) {
	if err := f.enter(ctx, "update"); err != nil {
		return service.Task{}, err
	}
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == task.ID {
			task.CreatedAt = t.CreatedAt
			f.tasks[i] = task
			return task, nil
		}
	}
	return service.Task{}, taskerr.FromStatus("remote update", 404, "task not found: "+task.ID)
}

// Delete implements service.Source.
func (f *FakeSource) Delete(ctx context.Context, id string) error {
	if err := f.enter(ctx, "delete"); err != nil {
		return err
	}
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return taskerr.FromStatus("remote delete", 404, "task not found: "+id)
}

// Fail returns a classified error of the given kind, as a source would.
func Fail(kind taskerr.Kind) error {
	return taskerr.New(kind, "fake", "injected "+string(kind))
}
