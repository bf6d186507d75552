package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tjfontaine/kb-agent/internal/domain"
	"github.com/tjfontaine/kb-agent/internal/llm"
	"github.com/tjfontaine/kb-agent/internal/taskstore"
)

// TaskParser extracts structured task fields from free text. Implemented by
// *llm.TaskParser.
type TaskParser interface {
	Parse(ctx context.Context, inputText, currentDate string) (*llm.ParsedTask, error)
}

// CreateTaskStrategy parses free text into a task document and stores it.
// When either collaborator failed to initialize the strategy degrades to a
// fast INITIALIZATION_ERROR instead of attempting and failing later.
type CreateTaskStrategy struct {
	parser TaskParser
	store  taskstore.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewCreateTaskStrategy creates the task-creation strategy. parser and store
// may be nil when startup initialization failed.
func NewCreateTaskStrategy(parser TaskParser, store taskstore.Store, logger *slog.Logger) *CreateTaskStrategy {
	return &CreateTaskStrategy{
		parser: parser,
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

func (s *CreateTaskStrategy) Name() string { return domain.OpCreateTask }

func (s *CreateTaskStrategy) Execute(ctx context.Context, req domain.TaskRequest) domain.TaskResponse {
	text, _ := req["input_text"].(string)
	if text == "" {
		return domain.FailureFrom(domain.ErrMissingParameter("input_text"))
	}

	if s.parser == nil || s.store == nil {
		s.logger.Error("task store or LLM parser not initialized")
		return domain.Failure(domain.ErrorCodeInitialization, "Database or LLM parser not initialized")
	}

	currentDate := s.now().Format("2006-01-02")
	s.logger.Info("parsing task input with LLM", slog.String("current_date", currentDate))

	parsed, err := s.parser.Parse(ctx, text, currentDate)
	if err != nil || parsed == nil {
		if err != nil {
			s.logger.Error("failed to parse task input with LLM", slog.String("error", err.Error()))
		}
		return domain.Failure(domain.ErrorCodeLLMParsing, "Failed to parse task input with LLM")
	}

	task := &taskstore.Task{
		Name:        parsed.TaskName,
		Description: parsed.TaskDescription,
		Deadline:    parsed.TaskDeadline,
		Status:      "todo",
		DependsOn:   []string{},
	}

	taskID, err := s.store.CreateTask(ctx, task)
	if err != nil || taskID == "" {
		if err != nil {
			s.logger.Error("failed to create task", slog.String("error", err.Error()))
		}
		return domain.Failure(domain.ErrorCodeDatabase, "Failed to create task in database")
	}

	s.logger.Info("task created", slog.String("task_id", taskID), slog.String("task_name", task.Name))

	return domain.Success(fmt.Sprintf("Task created successfully: %s", taskID), map[string]any{
		"task_id":     taskID,
		"task_name":   task.Name,
		"task_status": task.Status,
	})
}
