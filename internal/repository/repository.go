// Package repository implements service.Service over a remote source and a
// local cache.
//
// Reads go to the remote first and fall back to the cache only when the
// remote failed with a connectivity-class kind (taskerr.Transient). Writes go
// to the remote only and are mirrored into the cache after the remote
// confirmed them. Cache mirroring is best-effort: its failures are logged and
// counted, never returned.
package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tasker/internal/logging"
	"tasker/internal/observability"
	"tasker/internal/service"
	"tasker/internal/taskerr"
)

// Repository is the resilient task repository. It holds no state of its own
// beyond its collaborators and is safe for concurrent use when they are.
type Repository struct {
	remote  service.Source
	cache   service.Cache
	log     *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
	newID   func() string
}

var _ service.Service = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger for policy decisions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.log = logging.OrDiscard(l) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithClock overrides the clock used for CreatedAt on new drafts.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDGenerator overrides the generator for draft id hints.
func WithIDGenerator(gen func() string) Option {
	return func(r *Repository) { r.newID = gen }
}

// New returns a repository reading from remote with cache as fallback.
func New(remote service.Source, cache service.Cache, opts ...Option) *Repository {
	r := &Repository{
		remote: remote,
		cache:  cache,
		log:    logging.Discard(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetTasks implements service.Service.
func (r *Repository) GetTasks(ctx context.Context) ([]service.Task, error) {
	const op = "list"
	if err := contextErr(ctx, op); err != nil {
		return nil, err
	}

	tasks, err := r.remote.List(ctx)
	r.observe(op, err)
	if err == nil {
		if ctx.Err() == nil {
			if cerr := r.cache.Replace(ctx, tasks); cerr != nil {
				r.cacheWriteFailed(op, cerr)
			}
		}
		return tasks, nil
	}

	if !r.mayFallBack(ctx, op, err) {
		return nil, r.remoteFailure(ctx, op, err)
	}
	cached, cerr := r.cache.List(ctx)
	if cerr != nil || len(cached) == 0 {
		r.log.Debug("cache cannot stand in", "op", op, "remote_err", err, "cache_err", cerr, "cached", len(cached))
		return nil, classified(op, err)
	}
	r.log.Debug("serving tasks from cache", "op", op, "kind", taskerr.KindOf(err), "count", len(cached))
	r.metrics.ObserveFallback(op)
	return cached, nil
}

// GetTaskByID implements service.Service.
func (r *Repository) GetTaskByID(ctx context.Context, id string) (service.Task, error) {
	const op = "get"
	if err := contextErr(ctx, op); err != nil {
		return service.Task{}, err
	}

	task, err := r.remote.Get(ctx, id)
	r.observe(op, err)
	if err == nil {
		r.mirrorUpsert(ctx, op, task)
		return task, nil
	}

	if !r.mayFallBack(ctx, op, err) {
		return service.Task{}, r.remoteFailure(ctx, op, err)
	}
	cached, cerr := r.cache.List(ctx)
	if cerr != nil || len(cached) == 0 {
		r.log.Debug("cache cannot stand in", "op", op, "id", id, "remote_err", err, "cache_err", cerr)
		return service.Task{}, classified(op, err)
	}
	r.metrics.ObserveFallback(op)
	if t, ok := service.FindTask(cached, id); ok {
		r.log.Debug("serving task from cache", "op", op, "id", id, "kind", taskerr.KindOf(err))
		return t, nil
	}
	r.log.Debug("task absent from cached snapshot", "op", op, "id", id)
	return service.Task{}, taskerr.Errorf(taskerr.NotFound, "cache get", "task %s not in cached snapshot", id)
}

// CreateTask implements service.Service.
func (r *Repository) CreateTask(ctx context.Context, title, description string) (service.Task, error) {
	const op = "create"
	draft, ok := service.Draft{Title: title, Description: description}.Normalize()
	if !ok {
		return service.Task{}, taskerr.New(taskerr.Invalid, op, "title must not be empty")
	}
	if err := contextErr(ctx, op); err != nil {
		return service.Task{}, err
	}

	created, err := r.remote.Create(ctx, service.Task{
		ID:          r.newID(),
		Title:       draft.Title,
		Description: draft.Description,
		CreatedAt:   r.now().UTC(),
	})
	r.observe(op, err)
	if err != nil {
		return service.Task{}, r.remoteFailure(ctx, op, err)
	}
	r.mirrorUpsert(ctx, op, created)
	return created, nil
}

// UpdateTask implements service.Service.
func (r *Repository) UpdateTask(ctx context.Context, task service.Task) (service.Task, error) {
	const op = "update"
	if strings.TrimSpace(task.ID) == "" {
		return service.Task{}, taskerr.New(taskerr.Invalid, op, "task id must not be empty")
	}
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return service.Task{}, taskerr.New(taskerr.Invalid, op, "title must not be empty")
	}
	if err := contextErr(ctx, op); err != nil {
		return service.Task{}, err
	}

	updated, err := r.remote.Update(ctx, task)
	r.observe(op, err)
	if err != nil {
		return service.Task{}, r.remoteFailure(ctx, op, err)
	}
	r.mirrorUpsert(ctx, op, updated)
	return updated, nil
}

// DeleteTask implements service.Service.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	const op = "delete"
	if strings.TrimSpace(id) == "" {
		return taskerr.New(taskerr.Invalid, op, "task id must not be empty")
	}
	if err := contextErr(ctx, op); err != nil {
		return err
	}

	err := r.remote.Delete(ctx, id)
	r.observe(op, err)
	if err != nil {
		return r.remoteFailure(ctx, op, err)
	}
	if ctx.Err() != nil {
		return nil
	}
	if cerr := r.cache.Delete(ctx, id); cerr != nil && !errors.Is(cerr, taskerr.NotFound) {
		r.cacheWriteFailed(op, cerr)
	}
	return nil
}

// mayFallBack reports whether a failed remote read may be answered from the
// cache.
func (r *Repository) mayFallBack(ctx context.Context, op string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	kind := taskerr.KindOf(err)
	if !taskerr.Transient(kind) {
		r.log.Debug("remote failure not eligible for fallback", "op", op, "kind", kind)
		return false
	}
	return true
}

// remoteFailure returns the error to surface for a failed remote call. When
// the caller's context ended, that takes precedence over whatever the
// transport reported.
func (r *Repository) remoteFailure(ctx context.Context, op string, err error) error {
	if cerr := contextErr(ctx, op); cerr != nil {
		return cerr
	}
	return classified(op, err)
}

// mirrorUpsert writes a confirmed task into the cache unless the caller has
// gone away.
func (r *Repository) mirrorUpsert(ctx context.Context, op string, task service.Task) {
	if ctx.Err() != nil {
		r.log.Debug("context done, skipping cache write", "op", op, "id", task.ID)
		return
	}
	if _, err := r.cache.Update(ctx, task); err != nil {
		r.cacheWriteFailed(op, err)
	}
}

func (r *Repository) cacheWriteFailed(op string, err error) {
	r.log.Warn("cache write failed", "op", op, "kind", taskerr.KindOf(err), "err", err)
	r.metrics.ObserveCacheWriteFailure(op)
}

func (r *Repository) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(taskerr.KindOf(err))
	}
	r.metrics.ObserveRemote(op, outcome)
}

func contextErr(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return taskerr.FromTransport(op, err)
	}
	return nil
}

// classified guarantees a *taskerr.Error even from a source that broke the
// contract.
func classified(op string, err error) error {
	return taskerr.FromTransport(op, err)
}
