package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasker/internal/service"
)

// postgresBackend stores the snapshot in a PostgreSQL table.
type postgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the cache table exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initCacheSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return newStore(DriverPostgres, &postgresBackend{pool: pool}), nil
}

func initCacheSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cached_tasks (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cached_tasks_position ON cached_tasks (position);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init cache schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (p *postgresBackend) load(ctx context.Context) ([]service.Task, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, title, description, completed, created_at FROM cached_tasks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query cached tasks: %w", err)
	}
	defer rows.Close()

	var tasks []service.Task
	for rows.Next() {
		var t service.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cached task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached tasks: %w", err)
	}
	return tasks, nil
}

func (p *postgresBackend) save(ctx context.Context, tasks []service.Task) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM cached_tasks`); err != nil {
		return fmt.Errorf("clear cached tasks: %w", err)
	}

	batch := &pgx.Batch{}
	for i, t := range tasks {
		batch.Queue(
			`INSERT INTO cached_tasks (id, position, title, description, completed, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			t.ID, i, t.Title, t.Description, t.Completed, t.CreatedAt,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert cached tasks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *postgresBackend) close() error {
	p.pool.Close()
	return nil
}
