package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAgentErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      *AgentError
		wantCode ErrorCode
		wantMsg  string
	}{
		{
			name:     "missing field",
			err:      ErrMissingField("timestamp"),
			wantCode: ErrorCodeMissingField,
			wantMsg:  "Missing required field: 'timestamp'",
		},
		{
			name:     "invalid type",
			err:      ErrInvalidFieldType("task", "object"),
			wantCode: ErrorCodeInvalidType,
			wantMsg:  "Field 'task' must be a object",
		},
		{
			name:     "invalid message type",
			err:      ErrInvalidMessageType("status_update"),
			wantCode: ErrorCodeInvalidMessageType,
			wantMsg:  "Unsupported message type: 'status_update'",
		},
		{
			name:     "invalid agent",
			err:      ErrInvalidAgent("OtherAgent", "KnowledgeBaseBuilderAgent"),
			wantCode: ErrorCodeInvalidAgent,
			wantMsg:  "Agent name 'OtherAgent' does not match this agent 'KnowledgeBaseBuilderAgent'",
		},
		{
			name:     "missing parameter",
			err:      ErrMissingParameter("input_text"),
			wantCode: ErrorCodeMissingParameter,
			wantMsg:  "Missing required parameter: input_text",
		},
		{
			name:     "unsupported task",
			err:      ErrUnsupportedTask("delete_everything"),
			wantCode: ErrorCodeUnsupportedTask,
			wantMsg:  "Unsupported task: 'delete_everything'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestToAgentError(t *testing.T) {
	t.Run("passes through agent errors", func(t *testing.T) {
		original := ErrMissingField("input")
		wrapped := fmt.Errorf("dispatch failed: %w", original)

		got := ToAgentError(wrapped)
		if got != original {
			t.Errorf("ToAgentError() = %v, want original error", got)
		}
	})

	t.Run("wraps plain errors as PROCESSING_ERROR", func(t *testing.T) {
		got := ToAgentError(errors.New("connection reset"))
		if got.Code != ErrorCodeProcessing {
			t.Errorf("code = %v, want PROCESSING_ERROR", got.Code)
		}
		if got.Message != "connection reset" {
			t.Errorf("message = %q", got.Message)
		}
	})
}

func TestAgentErrorError(t *testing.T) {
	err := NewAgentError(ErrorCodeDatabase, "insert failed")
	if err.Error() != "DATABASE_ERROR: insert failed" {
		t.Errorf("Error() = %q", err.Error())
	}
}
