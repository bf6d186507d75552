package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	maxNameLength        = 1000
	maxDescriptionLength = 1000
	maxDeadlineLength    = 200

	// Low temperature keeps extraction output consistent across retries.
	extractionTemperature = 0.2
)

const systemPrompt = "You are a task extraction assistant. Extract task information from any " +
	"input format (structured, unstructured, single words, phrases, sentences) and return only " +
	"valid JSON with fields: task_name, task_description, task_deadline. Always generate " +
	"meaningful values even for minimal inputs."

// ParsedTask is the structured result of extracting task fields from free text.
type ParsedTask struct {
	TaskName        string `json:"task_name"`
	TaskDescription string `json:"task_description"`
	TaskDeadline    string `json:"task_deadline"`
}

// TaskParser extracts structured task fields from natural-language input via
// the chat completions API. Any transport or parse failure is reported as an
// error; the caller decides what that means for the request.
type TaskParser struct {
	client *Client
	model  string
	logger *slog.Logger
}

// NewTaskParser creates a parser using the given client and model.
func NewTaskParser(client *Client, model string, logger *slog.Logger) *TaskParser {
	return &TaskParser{client: client, model: model, logger: logger}
}

// Parse extracts {task_name, task_description, task_deadline} from inputText.
// currentDate (YYYY-MM-DD) anchors relative deadline phrases like "next week".
func (p *TaskParser) Parse(ctx context.Context, inputText, currentDate string) (*ParsedTask, error) {
	inputText = strings.TrimSpace(inputText)
	if inputText == "" {
		return nil, errors.New("empty input text")
	}

	resp, err := p.client.CreateChatCompletion(ctx, &ChatCompletionRequest{
		Model: p.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: extractionPrompt(inputText, currentDate)},
		},
		Temperature: extractionTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	raw := stripCodeFences(resp.Choices[0].Message.Content)

	var task ParsedTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		p.logger.Error("failed to parse extraction response",
			slog.String("error", err.Error()),
			slog.String("response", truncate(raw, 200)))
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	if task.TaskName = truncate(strings.TrimSpace(task.TaskName), maxNameLength); task.TaskName == "" {
		task.TaskName = truncate(inputText, 100)
	}
	if task.TaskDescription = truncate(strings.TrimSpace(task.TaskDescription), maxDescriptionLength); task.TaskDescription == "" {
		task.TaskDescription = truncate(inputText, maxDescriptionLength)
	}
	task.TaskDeadline = truncate(strings.TrimSpace(task.TaskDeadline), maxDeadlineLength)

	return &task, nil
}

func extractionPrompt(inputText, currentDate string) string {
	return fmt.Sprintf(`Extract task information from the following input. Today's date is %s.
The input can be in ANY format: structured with labels, a plain English sentence, or a single word or phrase.

Extract and generate:
1. task_name: the main task or action, clear and descriptive. If the input is a single word or phrase, expand it to a proper task name.
2. task_description: the detailed description if one is given, otherwise a reasonable description of the task. Be descriptive but concise.
3. task_deadline: the deadline if mentioned in any form ("by Dec 15", "due next week", "tomorrow"). Normalize it to YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS, resolving relative dates against today's date. If no deadline is mentioned, return an empty string "".

Input text:
%s

Return ONLY a valid JSON object with these exact fields: task_name, task_description, task_deadline.
No markdown, no code blocks, no explanations - just pure JSON.`, currentDate, inputText)
}

// stripCodeFences unwraps a ```json ... ``` block if the model added one
// despite the instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return strings.Trim(s, `"'`)
	}

	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
