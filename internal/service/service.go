// Package service defines the backend-agnostic contracts for task operations.
package service

import "context"

// Service is the caller-facing task contract.
// Task commands and the HTTP API only talk to this interface; they never
// import a backend or cache package directly.
//
// Every error returned by an implementation is a *taskerr.Error.
type Service interface {
	// GetTasks returns the full task collection.
	GetTasks(ctx context.Context) ([]Task, error)

	// GetTaskByID returns a single task.
	GetTaskByID(ctx context.Context, id string) (Task, error)

	// CreateTask creates a new, not completed task.
	// The returned task carries the authoritative id.
	CreateTask(ctx context.Context, title, description string) (Task, error)

	// UpdateTask replaces the mutable fields of an existing task.
	UpdateTask(ctx context.Context, task Task) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id string) error
}
