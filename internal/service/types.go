// Package service defines the backend-agnostic contracts for task operations.
package service

import (
	"strings"
	"time"
)

// Task represents a single task item.
type Task struct {
	ID          string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time // immutable after creation
}

// Equal reports whether all fields of t and o are equal.
// CreatedAt is compared as an instant, ignoring location and monotonic data.
func (t Task) Equal(o Task) bool {
	return t.ID == o.ID &&
		t.Title == o.Title &&
		t.Description == o.Description &&
		t.Completed == o.Completed &&
		t.CreatedAt.Equal(o.CreatedAt)
}

// Draft holds the caller-supplied fields of a task that does not exist yet.
type Draft struct {
	Title       string
	Description string
}

// Normalize trims the title and reports whether the draft is usable.
func (d Draft) Normalize() (Draft, bool) {
	d.Title = strings.TrimSpace(d.Title)
	return d, d.Title != ""
}

// FindTask returns the task with the given id from tasks.
func FindTask(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
