// Package sqlite is the SQLite-backed task store, used for local runs and
// tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/kb-agent/internal/taskstore"
)

// Store is a SQLite implementation of taskstore.Store.
type Store struct {
	db *sqlx.DB
}

var _ taskstore.Store = (*Store)(nil)

// taskRow is the table shape; depends_on is stored as a JSON array.
type taskRow struct {
	ID          string `db:"task_id"`
	Name        string `db:"task_name"`
	Description string `db:"task_description"`
	Deadline    string `db:"task_deadline"`
	Status      string `db:"task_status"`
	DependsOn   string `db:"depends_on"`
}

// updatableColumns whitelists the fields UpdateTask may touch.
var updatableColumns = map[string]bool{
	"task_name":        true,
	"task_description": true,
	"task_deadline":    true,
	"task_status":      true,
}

// New opens (or creates) the task database at dsn.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id TEXT PRIMARY KEY,
			task_name TEXT NOT NULL,
			task_description TEXT NOT NULL DEFAULT '',
			task_deadline TEXT NOT NULL DEFAULT '',
			task_status TEXT NOT NULL DEFAULT 'todo',
			depends_on TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(task_status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateTask(ctx context.Context, task *taskstore.Task) (string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT task_id FROM tasks`); err != nil {
		return "", fmt.Errorf("failed to scan task ids: %w", err)
	}
	id := taskstore.NextNumericID(ids)

	dependsOn, err := json.Marshal(emptyIfNil(task.DependsOn))
	if err != nil {
		return "", fmt.Errorf("failed to marshal depends_on: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (task_id, task_name, task_description, task_deadline, task_status, depends_on, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, task.Name, task.Description, task.Deadline, task.Status, string(dependsOn), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert task: %w", err)
	}

	task.ID = id
	return id, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*taskstore.Task, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row,
		`SELECT task_id, task_name, task_description, task_deadline, task_status, depends_on
		 FROM tasks WHERE task_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, taskstore.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return row.toTask()
}

func (s *Store) UpdateTask(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for column, value := range fields {
		if !updatableColumns[column] {
			return fmt.Errorf("field %q is not updatable", column)
		}
		setClauses = append(setClauses, column+" = ?")
		args = append(args, value)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(setClauses, ", ")+` WHERE task_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return taskstore.ErrTaskNotFound
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, status string) ([]*taskstore.Task, error) {
	query := `SELECT task_id, task_name, task_description, task_deadline, task_status, depends_on
	          FROM tasks`
	var args []any
	if status != "" {
		query += ` WHERE task_status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*taskstore.Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (r taskRow) toTask() (*taskstore.Task, error) {
	var dependsOn []string
	if err := json.Unmarshal([]byte(r.DependsOn), &dependsOn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal depends_on for task %s: %w", r.ID, err)
	}
	return &taskstore.Task{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Deadline:    r.Deadline,
		Status:      r.Status,
		DependsOn:   dependsOn,
	}, nil
}

func emptyIfNil(deps []string) []string {
	if deps == nil {
		return []string{}
	}
	return deps
}
