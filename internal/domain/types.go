package domain

import (
	"encoding/json"
	"time"
)

// Variant identifies which of the two wire protocols a message used.
type Variant string

const (
	// VariantLegacy is the task_assignment/health_check message format.
	VariantLegacy Variant = "legacy"

	// VariantStructured is the request_id/agent_name/intent message format.
	VariantStructured Variant = "structured_intent"
)

// Operation names shared by both protocols.
const (
	OpCreateTask  = "create_task"
	OpUpdateWiki  = "update_wiki"
	OpHealthCheck = "health_check"
)

// Status is the outcome of a task strategy.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// TaskRequest is the caller-supplied task payload. It has no fixed schema;
// it is whatever object arrives under task.parameters or is assembled from
// input.text and input.metadata.
type TaskRequest map[string]any

// NormalizedRequest is the validator's output: the envelope-independent view
// of a well-formed inbound message.
type NormalizedRequest struct {
	// Variant records which protocol the message used.
	Variant Variant

	// CorrelationID is the inbound message_id or request_id.
	CorrelationID string

	// Sender is the legacy sender field, used as the reply recipient.
	// Empty for structured-intent messages.
	Sender string

	// Operation is the task name or intent.
	Operation string

	// Request is the extracted task payload.
	Request TaskRequest
}

// TaskResponse is the result of running a task strategy. Details holds the
// operation-specific fields (task_id, wiki_size, ...) that sit alongside
// status and message in the serialized form.
type TaskResponse struct {
	Status    Status
	Message   string
	ErrorCode ErrorCode
	Details   map[string]any
}

// Success builds a success response with the given detail fields.
func Success(message string, details map[string]any) TaskResponse {
	return TaskResponse{Status: StatusSuccess, Message: message, Details: details}
}

// Failure builds an error response carrying the given code.
func Failure(code ErrorCode, message string) TaskResponse {
	return TaskResponse{Status: StatusError, Message: message, ErrorCode: code}
}

// FailureFrom builds an error response from an AgentError.
func FailureFrom(err *AgentError) TaskResponse {
	return Failure(err.Code, err.Message)
}

// MarshalJSON flattens Details next to status, message and error_code so the
// serialized object matches the wire shape cached entries round-trip through.
func (r TaskResponse) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Details)+3)
	for k, v := range r.Details {
		m[k] = v
	}
	m["status"] = r.Status
	m["message"] = r.Message
	if r.ErrorCode != "" {
		m["error_code"] = r.ErrorCode
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON: known fields are lifted out
// and everything else lands in Details.
func (r *TaskResponse) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	if s, ok := m["status"].(string); ok {
		r.Status = Status(s)
	}
	if msg, ok := m["message"].(string); ok {
		r.Message = msg
	}
	if code, ok := m["error_code"].(string); ok {
		r.ErrorCode = ErrorCode(code)
	}
	delete(m, "status")
	delete(m, "message")
	delete(m, "error_code")

	if len(m) > 0 {
		r.Details = m
	} else {
		r.Details = nil
	}
	return nil
}

// Timestamp renders t in the wire format used across both protocols:
// second-precision UTC with a literal Z suffix.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// Now returns the current time in wire format.
func Now() string {
	return Timestamp(time.Now())
}
