package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tasker/internal/service"
	"tasker/internal/taskerr"
)

// snapshotVersion is written into every JSON snapshot.
const snapshotVersion = 1

// jsonBackend stores the snapshot as one JSON document on disk.
type jsonBackend struct {
	filename string
}

type jsonSnapshot struct {
	Version int          `json:"version"`
	SavedAt time.Time    `json:"saved_at"`
	Tasks   []jsonRecord `json:"tasks"`
}

type jsonRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewJSONFile returns a cache persisted in filename. The file and its
// directory are created on first write.
func NewJSONFile(filename string) (*Store, error) {
	if filename == "" {
		return nil, fmt.Errorf("json cache: empty filename")
	}
	return newStore(DriverJSON, &jsonBackend{filename: filename}), nil
}

func (j *jsonBackend) load(context.Context) ([]service.Task, error) {
	data, err := os.ReadFile(j.filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.filename, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var snap jsonSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", j.filename, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%s: unsupported snapshot version %d: %w", j.filename, snap.Version, taskerr.ErrMalformed)
	}

	tasks := make([]service.Task, 0, len(snap.Tasks))
	for i, r := range snap.Tasks {
		if r.ID == "" {
			return nil, fmt.Errorf("%s: task %d has no id: %w", j.filename, i, taskerr.ErrMalformed)
		}
		tasks = append(tasks, service.Task{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Completed:   r.Completed,
			CreatedAt:   r.CreatedAt,
		})
	}
	return tasks, nil
}

func (j *jsonBackend) save(_ context.Context, tasks []service.Task) error {
	snap := jsonSnapshot{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Tasks:   make([]jsonRecord, 0, len(tasks)),
	}
	for _, t := range tasks {
		snap.Tasks = append(snap.Tasks, jsonRecord{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
			CreatedAt:   t.CreatedAt,
		})
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(j.filename)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// Write to a sibling temp file and rename so readers never see a torn file.
	tmp, err := os.CreateTemp(dir, filepath.Base(j.filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, j.filename); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (j *jsonBackend) close() error { return nil }
