package commands

import (
	"context"

	"tasker/internal/service"
	"tasker/internal/taskerr"
)

// taskLookup resolves task references for one command invocation. Positions
// are resolved against a single list snapshot, fetched at most once, so
// "rm 1 2" removes the tasks the user saw as 1 and 2.
type taskLookup struct {
	svc   service.Service
	tasks []service.Task
	ready bool
}

func newTaskLookup(svc service.Service) *taskLookup {
	return &taskLookup{svc: svc}
}

// resolve returns the task a reference points at.
func (l *taskLookup) resolve(ctx context.Context, ref TaskRef) (service.Task, error) {
	if ref.ID != "" {
		return l.svc.GetTaskByID(ctx, ref.ID)
	}

	if !l.ready {
		tasks, err := l.svc.GetTasks(ctx)
		if err != nil {
			return service.Task{}, err
		}
		l.tasks = tasks
		l.ready = true
	}

	if ref.Num < 1 || ref.Num > len(l.tasks) {
		return service.Task{}, taskerr.Errorf(taskerr.NotFound, "resolve", "task number out of range: %d", ref.Num)
	}
	return l.tasks[ref.Num-1], nil
}

// resolveAll resolves refs in order, rejecting duplicates.
func (l *taskLookup) resolveAll(ctx context.Context, refs []TaskRef) ([]service.Task, error) {
	out := make([]service.Task, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		task, err := l.resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		if seen[task.ID] {
			return nil, taskerr.Errorf(taskerr.Invalid, "resolve", "task referenced twice: %s", ref)
		}
		seen[task.ID] = true
		out = append(out, task)
	}
	return out, nil
}
