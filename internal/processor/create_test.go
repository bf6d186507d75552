package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/tjfontaine/kb-agent/internal/domain"
	"github.com/tjfontaine/kb-agent/internal/llm"
	"github.com/tjfontaine/kb-agent/internal/taskstore"
)

type stubParser struct {
	parsed *llm.ParsedTask
	err    error

	gotText string
	gotDate string
}

func (p *stubParser) Parse(ctx context.Context, inputText, currentDate string) (*llm.ParsedTask, error) {
	p.gotText = inputText
	p.gotDate = currentDate
	return p.parsed, p.err
}

type stubStore struct {
	nextID  string
	err     error
	created []*taskstore.Task
}

func (s *stubStore) CreateTask(ctx context.Context, task *taskstore.Task) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, task)
	return s.nextID, nil
}

func (s *stubStore) GetTask(ctx context.Context, id string) (*taskstore.Task, error) {
	return nil, taskstore.ErrTaskNotFound
}

func (s *stubStore) UpdateTask(ctx context.Context, id string, fields map[string]any) error {
	return taskstore.ErrTaskNotFound
}

func (s *stubStore) ListTasks(ctx context.Context, status string) ([]*taskstore.Task, error) {
	return nil, nil
}

func (s *stubStore) Close() error { return nil }

func TestCreateTask(t *testing.T) {
	parser := &stubParser{parsed: &llm.ParsedTask{
		TaskName:        "Write report",
		TaskDescription: "Write the quarterly report",
		TaskDeadline:    "2026-09-04",
	}}
	store := &stubStore{nextID: "7"}
	s := NewCreateTaskStrategy(parser, store, testLogger())

	resp := s.Execute(context.Background(), domain.TaskRequest{
		"input_text": "write the quarterly report by Friday",
	})

	if resp.Status != domain.StatusSuccess {
		t.Fatalf("status = %v: %s", resp.Status, resp.Message)
	}
	if resp.Message != "Task created successfully: 7" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Details["task_id"] != "7" {
		t.Errorf("task_id = %v", resp.Details["task_id"])
	}
	if resp.Details["task_name"] != "Write report" {
		t.Errorf("task_name = %v", resp.Details["task_name"])
	}
	if resp.Details["task_status"] != "todo" {
		t.Errorf("task_status = %v", resp.Details["task_status"])
	}

	if parser.gotText != "write the quarterly report by Friday" {
		t.Errorf("parser got text %q", parser.gotText)
	}
	if parser.gotDate == "" {
		t.Error("parser got empty current date")
	}

	if len(store.created) != 1 {
		t.Fatalf("store created %d tasks, want 1", len(store.created))
	}
	task := store.created[0]
	if task.Status != "todo" {
		t.Errorf("stored status = %q, want todo", task.Status)
	}
	if task.DependsOn == nil || len(task.DependsOn) != 0 {
		t.Errorf("stored depends_on = %v, want empty slice", task.DependsOn)
	}
	if task.Deadline != "2026-09-04" {
		t.Errorf("stored deadline = %q", task.Deadline)
	}
}

func TestCreateTaskMissingInput(t *testing.T) {
	s := NewCreateTaskStrategy(&stubParser{}, &stubStore{nextID: "1"}, testLogger())

	for _, req := range []domain.TaskRequest{
		{},
		{"input_text": ""},
		{"input_text": 42.0},
	} {
		resp := s.Execute(context.Background(), req)
		if resp.ErrorCode != domain.ErrorCodeMissingParameter {
			t.Errorf("error code = %v for %v, want MISSING_PARAMETER", resp.ErrorCode, req)
		}
	}
}

func TestCreateTaskUninitialized(t *testing.T) {
	s := NewCreateTaskStrategy(nil, nil, testLogger())

	resp := s.Execute(context.Background(), domain.TaskRequest{"input_text": "x"})
	if resp.ErrorCode != domain.ErrorCodeInitialization {
		t.Errorf("error code = %v, want INITIALIZATION_ERROR", resp.ErrorCode)
	}
	if resp.Message != "Database or LLM parser not initialized" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestCreateTaskParserFailure(t *testing.T) {
	parser := &stubParser{err: errors.New("model returned garbage")}
	s := NewCreateTaskStrategy(parser, &stubStore{nextID: "1"}, testLogger())

	resp := s.Execute(context.Background(), domain.TaskRequest{"input_text": "x"})
	if resp.ErrorCode != domain.ErrorCodeLLMParsing {
		t.Errorf("error code = %v, want LLM_PARSING_ERROR", resp.ErrorCode)
	}
	if resp.Message != "Failed to parse task input with LLM" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestCreateTaskStoreFailure(t *testing.T) {
	parser := &stubParser{parsed: &llm.ParsedTask{TaskName: "x"}}
	store := &stubStore{err: errors.New("connection reset")}
	s := NewCreateTaskStrategy(parser, store, testLogger())

	resp := s.Execute(context.Background(), domain.TaskRequest{"input_text": "x"})
	if resp.ErrorCode != domain.ErrorCodeDatabase {
		t.Errorf("error code = %v, want DATABASE_ERROR", resp.ErrorCode)
	}
	if resp.Message != "Failed to create task in database" {
		t.Errorf("message = %q", resp.Message)
	}
}
