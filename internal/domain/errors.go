// Package domain provides the canonical types and error codes for the agent.
package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class in outbound error envelopes.
type ErrorCode string

const (
	// ErrorCodeInvalidJSON indicates the request body could not be decoded.
	ErrorCodeInvalidJSON ErrorCode = "INVALID_JSON"

	// ErrorCodeMissingField indicates a required envelope field is absent.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrorCodeInvalidType indicates an envelope field has the wrong JSON type.
	ErrorCodeInvalidType ErrorCode = "INVALID_TYPE"

	// ErrorCodeInvalidMessageType indicates an unrecognized legacy message type.
	ErrorCodeInvalidMessageType ErrorCode = "INVALID_MESSAGE_TYPE"

	// ErrorCodeInvalidAgent indicates the addressed agent is not this agent.
	ErrorCodeInvalidAgent ErrorCode = "INVALID_AGENT"

	// ErrorCodeInvalidFormat indicates the envelope matched neither protocol.
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// ErrorCodeMissingParameter indicates a required task parameter is absent.
	ErrorCodeMissingParameter ErrorCode = "MISSING_PARAMETER"

	// ErrorCodeLLMParsing indicates the language model could not extract task fields.
	ErrorCodeLLMParsing ErrorCode = "LLM_PARSING_ERROR"

	// ErrorCodeDatabase indicates the task store rejected or lost a write.
	ErrorCodeDatabase ErrorCode = "DATABASE_ERROR"

	// ErrorCodeLTMWriteFailed indicates the wiki content slot could not be written.
	ErrorCodeLTMWriteFailed ErrorCode = "LTM_WRITE_FAILED"

	// ErrorCodeInitialization indicates a required collaborator was unavailable at startup.
	ErrorCodeInitialization ErrorCode = "INITIALIZATION_ERROR"

	// ErrorCodeUnsupportedTask indicates a recognized legacy envelope with an unknown task name.
	ErrorCodeUnsupportedTask ErrorCode = "UNSUPPORTED_TASK"

	// ErrorCodeUnsupportedIntent indicates a recognized structured envelope with an unknown intent.
	ErrorCodeUnsupportedIntent ErrorCode = "UNSUPPORTED_INTENT"

	// ErrorCodeProcessing is the blanket fallback for unexpected strategy faults.
	ErrorCodeProcessing ErrorCode = "PROCESSING_ERROR"
)

// AgentError is the canonical error returned by validation and task
// processing. It carries a stable code rendered into outbound envelopes.
type AgentError struct {
	// Code is the stable error identifier.
	Code ErrorCode

	// Message is the human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAgentError creates a new agent error.
func NewAgentError(code ErrorCode, message string) *AgentError {
	return &AgentError{Code: code, Message: message}
}

// ToAgentError converts any error to an *AgentError. Errors that are not
// already AgentErrors become PROCESSING_ERROR.
func ToAgentError(err error) *AgentError {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr
	}
	return NewAgentError(ErrorCodeProcessing, err.Error())
}

// Convenience constructors for common errors

// ErrInvalidJSON creates an undecodable-body error carrying the parser's message.
func ErrInvalidJSON(cause error) *AgentError {
	return NewAgentError(ErrorCodeInvalidJSON, fmt.Sprintf("Invalid JSON format: %s", cause))
}

// ErrMissingField creates a missing-envelope-field error for the given field path.
func ErrMissingField(path string) *AgentError {
	return NewAgentError(ErrorCodeMissingField, fmt.Sprintf("Missing required field: '%s'", path))
}

// ErrInvalidFieldType creates a wrong-type error for the given field path.
func ErrInvalidFieldType(path, want string) *AgentError {
	return NewAgentError(ErrorCodeInvalidType, fmt.Sprintf("Field '%s' must be a %s", path, want))
}

// ErrInvalidMessageType creates an unknown-legacy-type error.
func ErrInvalidMessageType(messageType string) *AgentError {
	return NewAgentError(ErrorCodeInvalidMessageType,
		fmt.Sprintf("Unsupported message type: '%s'", messageType))
}

// ErrInvalidAgent creates an agent-name mismatch error.
func ErrInvalidAgent(got, want string) *AgentError {
	return NewAgentError(ErrorCodeInvalidAgent,
		fmt.Sprintf("Agent name '%s' does not match this agent '%s'", got, want))
}

// ErrMissingParameter creates a missing-task-parameter error.
func ErrMissingParameter(name string) *AgentError {
	return NewAgentError(ErrorCodeMissingParameter,
		fmt.Sprintf("Missing required parameter: %s", name))
}

// ErrUnsupportedTask creates an unknown-legacy-task error.
func ErrUnsupportedTask(name string) *AgentError {
	return NewAgentError(ErrorCodeUnsupportedTask, fmt.Sprintf("Unsupported task: '%s'", name))
}

// ErrUnsupportedIntent creates an unknown-intent error.
func ErrUnsupportedIntent(intent string) *AgentError {
	return NewAgentError(ErrorCodeUnsupportedIntent,
		fmt.Sprintf("Unsupported intent: '%s'. This agent supports 'create_task', 'update_wiki' and 'health_check'", intent))
}
