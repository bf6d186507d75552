package envelope

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tjfontaine/kb-agent/internal/domain"
)

func legacyRequest() *domain.NormalizedRequest {
	return &domain.NormalizedRequest{
		Variant:       domain.VariantLegacy,
		CorrelationID: "msg-001",
		Sender:        "OrchestratorAgent",
		Operation:     "update_wiki",
	}
}

func structuredRequest() *domain.NormalizedRequest {
	return &domain.NormalizedRequest{
		Variant:       domain.VariantStructured,
		CorrelationID: "req-001",
		Operation:     "update_wiki",
	}
}

func TestSuccessLegacy(t *testing.T) {
	f := NewFormatter(testAgentID)

	resp := domain.Success("Wiki updated successfully", map[string]any{
		"wiki_size":   42,
		"update_mode": "append",
	})

	reply, ok := f.Success(legacyRequest(), resp).(*LegacyReply)
	if !ok {
		t.Fatal("Success() did not return a legacy reply")
	}

	if reply.Type != "completion_report" {
		t.Errorf("type = %q, want completion_report", reply.Type)
	}
	if reply.Status != "SUCCESS" {
		t.Errorf("status = %q, want SUCCESS", reply.Status)
	}
	if reply.Sender != testAgentID {
		t.Errorf("sender = %q, want %q", reply.Sender, testAgentID)
	}
	if reply.Recipient != "OrchestratorAgent" {
		t.Errorf("recipient = %q, want OrchestratorAgent", reply.Recipient)
	}
	if reply.RelatedMessageID != "msg-001" {
		t.Errorf("related_message_id = %q, want msg-001", reply.RelatedMessageID)
	}
	if _, err := uuid.Parse(reply.MessageID); err != nil {
		t.Errorf("message_id %q is not a UUID: %v", reply.MessageID, err)
	}
	if reply.Results["message"] != "Wiki updated successfully" {
		t.Errorf("results.message = %v", reply.Results["message"])
	}
	if reply.Results["wiki_size"] != 42 {
		t.Errorf("results.wiki_size = %v, want 42", reply.Results["wiki_size"])
	}
}

func TestSuccessStructured(t *testing.T) {
	f := NewFormatter(testAgentID)

	resp := domain.Success("Task created successfully: 7", map[string]any{
		"task_id": "7",
	})

	reply, ok := f.Success(structuredRequest(), resp).(*StructuredReply)
	if !ok {
		t.Fatal("Success() did not return a structured reply")
	}

	if reply.RequestID != "req-001" {
		t.Errorf("request_id = %q, want req-001", reply.RequestID)
	}
	if reply.AgentName != testAgentID {
		t.Errorf("agent_name = %q, want %q", reply.AgentName, testAgentID)
	}
	if reply.Status != "success" {
		t.Errorf("status = %q, want success", reply.Status)
	}
	if reply.Error != nil {
		t.Errorf("error = %+v, want nil", reply.Error)
	}
	if reply.Output == nil {
		t.Fatal("output is nil")
	}
	if reply.Output.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", reply.Output.Confidence)
	}
	if reply.Output.Result != "Task created successfully: 7" {
		t.Errorf("result = %q", reply.Output.Result)
	}

	// error must serialize as an explicit null
	data, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	if !strings.Contains(string(data), `"error":null`) {
		t.Errorf("serialized reply missing error:null: %s", data)
	}
}

func TestHealthLegacy(t *testing.T) {
	f := NewFormatter(testAgentID)

	req := legacyRequest()
	req.Operation = domain.OpHealthCheck

	reply, ok := f.Health(req).(*LegacyReply)
	if !ok {
		t.Fatal("Health() did not return a legacy reply")
	}
	if reply.Type != "health_check_response" {
		t.Errorf("type = %q, want health_check_response", reply.Type)
	}
	if reply.Results["status"] != "I'm up and ready" {
		t.Errorf("results.status = %v", reply.Results["status"])
	}
}

func TestHealthStructured(t *testing.T) {
	f := NewFormatter(testAgentID)

	req := structuredRequest()
	req.Operation = domain.OpHealthCheck

	reply, ok := f.Health(req).(*StructuredReply)
	if !ok {
		t.Fatal("Health() did not return a structured reply")
	}
	if reply.Output == nil {
		t.Fatal("output is nil")
	}
	if reply.Output.Result != "I'm up and ready" {
		t.Errorf("result = %q", reply.Output.Result)
	}
	if reply.Output.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", reply.Output.Confidence)
	}
	details, ok := reply.Output.Details.(string)
	if !ok || !strings.HasPrefix(details, "Health check successful at ") {
		t.Errorf("details = %v", reply.Output.Details)
	}
}

func TestTaskErrorLegacy(t *testing.T) {
	f := NewFormatter(testAgentID)

	resp := domain.Failure(domain.ErrorCodeMissingParameter, "Missing required parameter: wiki_update_content")

	reply, ok := f.TaskError(legacyRequest(), resp).(*LegacyReply)
	if !ok {
		t.Fatal("TaskError() did not return a legacy reply")
	}
	if reply.Type != "error_report" {
		t.Errorf("type = %q, want error_report", reply.Type)
	}
	if reply.Status != "FAILURE" {
		t.Errorf("status = %q, want FAILURE", reply.Status)
	}
	if reply.Results["error_code"] != domain.ErrorCodeMissingParameter {
		t.Errorf("results.error_code = %v", reply.Results["error_code"])
	}
	if reply.RelatedMessageID != "msg-001" {
		t.Errorf("related_message_id = %q", reply.RelatedMessageID)
	}
}

func TestTaskErrorStructured(t *testing.T) {
	f := NewFormatter(testAgentID)

	resp := domain.Failure(domain.ErrorCodeLLMParsing, "Failed to parse task input with LLM")

	reply, ok := f.TaskError(structuredRequest(), resp).(*StructuredReply)
	if !ok {
		t.Fatal("TaskError() did not return a structured reply")
	}
	if reply.Status != "error" {
		t.Errorf("status = %q, want error", reply.Status)
	}
	if reply.Output != nil {
		t.Errorf("output = %+v, want nil", reply.Output)
	}
	if reply.Error == nil {
		t.Fatal("error is nil")
	}
	if reply.Error.Type != domain.ErrorCodeLLMParsing {
		t.Errorf("error.type = %v", reply.Error.Type)
	}
}

// A response without an explicit code falls back to PROCESSING_ERROR.
func TestTaskErrorDefaultCode(t *testing.T) {
	f := NewFormatter(testAgentID)

	resp := domain.TaskResponse{Status: domain.StatusError, Message: "boom"}

	reply := f.TaskError(structuredRequest(), resp).(*StructuredReply)
	if reply.Error.Type != domain.ErrorCodeProcessing {
		t.Errorf("error.type = %v, want PROCESSING_ERROR", reply.Error.Type)
	}
}

func TestValidationErrorReplies(t *testing.T) {
	f := NewFormatter(testAgentID)

	t.Run("structured with correlation id", func(t *testing.T) {
		verr := &ValidationError{
			Err:           domain.ErrMissingField("input"),
			Variant:       domain.VariantStructured,
			CorrelationID: "req-9",
		}

		reply := f.ValidationError(verr).(*StructuredReply)
		if reply.RequestID != "req-9" {
			t.Errorf("request_id = %q, want req-9", reply.RequestID)
		}
		if reply.AgentName != testAgentID {
			t.Errorf("agent_name = %q", reply.AgentName)
		}
		if reply.Error.Type != domain.ErrorCodeMissingField {
			t.Errorf("error.type = %v", reply.Error.Type)
		}
	})

	t.Run("structured without correlation id omits identity", func(t *testing.T) {
		verr := &ValidationError{
			Err:     domain.ErrInvalidFieldType("request_id", "string"),
			Variant: domain.VariantStructured,
		}

		reply := f.ValidationError(verr).(*StructuredReply)
		if reply.RequestID != "" || reply.AgentName != "" {
			t.Errorf("correlation fields set: request_id=%q agent_name=%q", reply.RequestID, reply.AgentName)
		}

		data, err := json.Marshal(reply)
		if err != nil {
			t.Fatalf("marshal reply: %v", err)
		}
		if strings.Contains(string(data), "request_id") {
			t.Errorf("serialized reply carries request_id: %s", data)
		}
	})

	t.Run("legacy", func(t *testing.T) {
		verr := &ValidationError{
			Err:           domain.ErrMissingField("timestamp"),
			Variant:       domain.VariantLegacy,
			CorrelationID: "msg-9",
			Sender:        "OrchestratorAgent",
		}

		reply := f.ValidationError(verr).(*LegacyReply)
		if reply.Type != "error_report" {
			t.Errorf("type = %q", reply.Type)
		}
		if reply.Recipient != "OrchestratorAgent" {
			t.Errorf("recipient = %q", reply.Recipient)
		}
		if reply.RelatedMessageID != "msg-9" {
			t.Errorf("related_message_id = %q", reply.RelatedMessageID)
		}
	})
}
