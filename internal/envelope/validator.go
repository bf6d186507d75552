// Package envelope implements the two inbound message protocols as a single
// tagged pipeline: one validator classifying and checking either shape, and
// one formatter rendering replies in whichever shape the request used.
//
// The two protocols are mutually exclusive. A message carrying request_id,
// agent_name and intent is structured-intent; everything else is evaluated
// against the legacy task_assignment/health_check shape.
package envelope

import (
	"encoding/json"

	"github.com/tjfontaine/kb-agent/internal/domain"
)

// ValidationError is a terminal validation failure plus the best-determined
// protocol variant, so the error reply can mirror the request's shape.
type ValidationError struct {
	Err *domain.AgentError

	// Variant is structured-intent if the three discriminator fields were
	// present, legacy otherwise (including undecodable bodies).
	Variant domain.Variant

	// CorrelationID is set only when a string message_id/request_id was
	// extracted before validation failed.
	CorrelationID string

	// Sender is the legacy sender, when one was extracted.
	Sender string
}

// Validator checks inbound messages against whichever protocol they use and
// extracts the normalized request. It is pure: the only state is the agent's
// own identifier, which structured-intent messages must address.
type Validator struct {
	agentID string
}

// NewValidator creates a validator for the agent with the given identifier.
func NewValidator(agentID string) *Validator {
	return &Validator{agentID: agentID}
}

// Validate decodes and validates a raw message body. Exactly one return
// value is non-nil.
func (v *Validator) Validate(raw []byte) (*domain.NormalizedRequest, *ValidationError) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ValidationError{Err: domain.ErrInvalidJSON(err), Variant: domain.VariantLegacy}
	}

	msg, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ValidationError{
			Err:     domain.NewAgentError(domain.ErrorCodeInvalidFormat, "Message must be a JSON object"),
			Variant: domain.VariantLegacy,
		}
	}

	if isStructured(msg) {
		return v.validateStructured(msg)
	}
	return v.validateLegacy(msg)
}

// isStructured reports whether the message carries the three structured-intent
// discriminator fields. Presence alone decides; types are checked afterwards.
func isStructured(msg map[string]any) bool {
	_, hasRequestID := msg["request_id"]
	_, hasAgentName := msg["agent_name"]
	_, hasIntent := msg["intent"]
	return hasRequestID && hasAgentName && hasIntent
}

// legacyRequiredFields are validated in this exact order; the first failing
// field wins.
var legacyRequiredFields = []string{"message_id", "sender", "recipient", "type", "timestamp"}

func (v *Validator) validateLegacy(msg map[string]any) (*domain.NormalizedRequest, *ValidationError) {
	correlationID, _ := msg["message_id"].(string)
	sender, _ := msg["sender"].(string)
	fail := func(err *domain.AgentError) (*domain.NormalizedRequest, *ValidationError) {
		return nil, &ValidationError{
			Err:           err,
			Variant:       domain.VariantLegacy,
			CorrelationID: correlationID,
			Sender:        sender,
		}
	}

	for _, field := range legacyRequiredFields {
		value, present := msg[field]
		if !present {
			return fail(domain.ErrMissingField(field))
		}
		if _, isString := value.(string); !isString {
			return fail(domain.ErrInvalidFieldType(field, "string"))
		}
	}

	messageType := msg["type"].(string)
	if messageType != "task_assignment" && messageType != "health_check" {
		return fail(domain.ErrInvalidMessageType(messageType))
	}

	if messageType == "health_check" {
		return &domain.NormalizedRequest{
			Variant:       domain.VariantLegacy,
			CorrelationID: correlationID,
			Sender:        sender,
			Operation:     domain.OpHealthCheck,
		}, nil
	}

	taskValue, present := msg["task"]
	if !present {
		return fail(domain.ErrMissingField("task"))
	}
	task, isMap := taskValue.(map[string]any)
	if !isMap {
		return fail(domain.ErrInvalidFieldType("task", "object"))
	}

	nameValue, present := task["name"]
	if !present {
		return fail(domain.ErrMissingField("task.name"))
	}
	name, isString := nameValue.(string)
	if !isString {
		return fail(domain.ErrInvalidFieldType("task.name", "string"))
	}

	paramsValue, present := task["parameters"]
	if !present {
		return fail(domain.ErrMissingField("task.parameters"))
	}
	params, isMap := paramsValue.(map[string]any)
	if !isMap {
		return fail(domain.ErrInvalidFieldType("task.parameters", "object"))
	}

	return &domain.NormalizedRequest{
		Variant:       domain.VariantLegacy,
		CorrelationID: correlationID,
		Sender:        sender,
		Operation:     name,
		Request:       domain.TaskRequest(params),
	}, nil
}

var structuredRequiredFields = []string{"request_id", "agent_name", "intent", "input", "context"}

func (v *Validator) validateStructured(msg map[string]any) (*domain.NormalizedRequest, *ValidationError) {
	correlationID, _ := msg["request_id"].(string)
	fail := func(err *domain.AgentError) (*domain.NormalizedRequest, *ValidationError) {
		return nil, &ValidationError{
			Err:           err,
			Variant:       domain.VariantStructured,
			CorrelationID: correlationID,
		}
	}

	for _, field := range structuredRequiredFields {
		if _, present := msg[field]; !present {
			return fail(domain.ErrMissingField(field))
		}
	}
	for _, field := range []string{"request_id", "agent_name", "intent"} {
		if _, isString := msg[field].(string); !isString {
			return fail(domain.ErrInvalidFieldType(field, "string"))
		}
	}

	intent := msg["intent"].(string)

	input, isMap := msg["input"].(map[string]any)
	if !isMap {
		return fail(domain.ErrInvalidFieldType("input", "object"))
	}

	// text is required for every intent except health_check
	textValue, hasText := input["text"]
	if intent != domain.OpHealthCheck && !hasText {
		return fail(domain.ErrMissingField("input.text"))
	}
	text := ""
	if hasText {
		var isString bool
		if text, isString = textValue.(string); !isString {
			return fail(domain.ErrInvalidFieldType("input.text", "string"))
		}
	}

	var metadata map[string]any
	if metaValue, hasMeta := input["metadata"]; hasMeta {
		var isMap bool
		if metadata, isMap = metaValue.(map[string]any); !isMap {
			return fail(domain.ErrInvalidFieldType("input.metadata", "object"))
		}
	}

	contextValue, isMap := msg["context"].(map[string]any)
	if !isMap {
		return fail(domain.ErrInvalidFieldType("context", "object"))
	}
	userIDValue, present := contextValue["user_id"]
	if !present {
		return fail(domain.ErrMissingField("context.user_id"))
	}
	if _, isString := userIDValue.(string); !isString {
		return fail(domain.ErrInvalidFieldType("context.user_id", "string"))
	}

	if agentName := msg["agent_name"].(string); agentName != v.agentID {
		return fail(domain.ErrInvalidAgent(agentName, v.agentID))
	}

	return &domain.NormalizedRequest{
		Variant:       domain.VariantStructured,
		CorrelationID: correlationID,
		Operation:     intent,
		Request:       structuredTaskRequest(intent, text, metadata),
	}, nil
}

// structuredTaskRequest maps input.text and input.metadata onto the parameter
// names the task strategies consume, mirroring the legacy task.parameters
// shape for the same operation.
func structuredTaskRequest(intent, text string, metadata map[string]any) domain.TaskRequest {
	switch intent {
	case domain.OpCreateTask:
		return domain.TaskRequest{"input_text": text}
	case domain.OpUpdateWiki:
		req := domain.TaskRequest{"wiki_update_content": text}
		if mode, ok := metadata["update_mode"]; ok {
			req["update_mode"] = mode
		}
		return req
	default:
		return nil
	}
}
