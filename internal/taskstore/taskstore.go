// Package taskstore defines the task collection interface and the Task
// document stored for every created task.
package taskstore

import (
	"context"
	"errors"
	"strconv"
)

// ErrTaskNotFound is returned by GetTask when no task has the given id.
var ErrTaskNotFound = errors.New("task not found")

// Task is a task document. IDs are store-assigned: the next numeric id in
// the collection, rendered as a string.
type Task struct {
	ID          string   `json:"task_id" db:"task_id" bson:"task_id"`
	Name        string   `json:"task_name" db:"task_name" bson:"task_name"`
	Description string   `json:"task_description" db:"task_description" bson:"task_description"`
	Deadline    string   `json:"task_deadline" db:"task_deadline" bson:"task_deadline"`
	Status      string   `json:"task_status" db:"task_status" bson:"task_status"`
	DependsOn   []string `json:"depends_on" bson:"depends_on"`
}

// Store is the task collection. Implementations assign ids in CreateTask;
// callers never supply one.
type Store interface {
	// CreateTask inserts the task and returns its assigned id.
	CreateTask(ctx context.Context, task *Task) (string, error)

	// GetTask returns the task with the given id, or ErrTaskNotFound.
	GetTask(ctx context.Context, id string) (*Task, error)

	// UpdateTask applies the given field values to an existing task.
	UpdateTask(ctx context.Context, id string, fields map[string]any) error

	// ListTasks returns all tasks, filtered by status when status is non-empty.
	ListTasks(ctx context.Context, status string) ([]*Task, error)

	// Close releases the underlying connection.
	Close() error
}

// NextNumericID returns the successor of the largest numeric id among the
// given ids. Non-numeric ids are skipped; an empty collection yields "1".
// Shared by store implementations so id assignment is uniform across drivers.
func NextNumericID(ids []string) string {
	maxID := 0
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if n > maxID {
			maxID = n
		}
	}
	return strconv.Itoa(maxID + 1)
}
