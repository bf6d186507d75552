package envelope

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tjfontaine/kb-agent/internal/domain"
)

// Legacy reply message types.
const (
	legacyTypeCompletion = "completion_report"
	legacyTypeHealth     = "health_check_response"
	legacyTypeError      = "error_report"
)

// healthStatus is the fixed human-readable health-check reply.
const healthStatus = "I'm up and ready"

// Structured-intent confidence values: task successes are reported at 0.95,
// health checks at 1.0.
const (
	successConfidence     = 0.95
	healthCheckConfidence = 1.0
)

// LegacyReply is the outbound legacy envelope.
type LegacyReply struct {
	MessageID        string         `json:"message_id"`
	Sender           string         `json:"sender"`
	Recipient        string         `json:"recipient"`
	Type             string         `json:"type"`
	RelatedMessageID string         `json:"related_message_id,omitempty"`
	Status           string         `json:"status"`
	Results          map[string]any `json:"results"`
	Timestamp        string         `json:"timestamp"`
}

// StructuredReply is the outbound structured-intent envelope. Output and
// Error are mutually exclusive; the absent one is serialized as null.
type StructuredReply struct {
	RequestID string            `json:"request_id,omitempty"`
	AgentName string            `json:"agent_name,omitempty"`
	Status    string            `json:"status"`
	Output    *StructuredOutput `json:"output"`
	Error     *StructuredError  `json:"error"`
}

// StructuredOutput carries the result of a successful structured-intent request.
type StructuredOutput struct {
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
	Details    any     `json:"details"`
}

// StructuredError carries a typed failure.
type StructuredError struct {
	Type    domain.ErrorCode `json:"type"`
	Message string           `json:"message"`
}

// Formatter renders outbound envelopes in the variant the inbound message
// used.
type Formatter struct {
	agentID string
}

// NewFormatter creates a formatter replying as the given agent.
func NewFormatter(agentID string) *Formatter {
	return &Formatter{agentID: agentID}
}

// Success renders the variant-matching success envelope for a completed task.
func (f *Formatter) Success(req *domain.NormalizedRequest, resp domain.TaskResponse) any {
	if req.Variant == domain.VariantLegacy {
		results := map[string]any{"message": resp.Message}
		for k, v := range resp.Details {
			results[k] = v
		}
		return f.legacyReply(legacyTypeCompletion, "SUCCESS", req, results)
	}

	return &StructuredReply{
		RequestID: req.CorrelationID,
		AgentName: f.agentID,
		Status:    string(domain.StatusSuccess),
		Output: &StructuredOutput{
			Result:     resp.Message,
			Confidence: successConfidence,
			Details:    resp.Details,
		},
	}
}

// Health renders the variant-matching health-check envelope. It carries a
// fresh timestamp and never reflects cache or strategy state.
func (f *Formatter) Health(req *domain.NormalizedRequest) any {
	now := domain.Now()

	if req.Variant == domain.VariantLegacy {
		return f.legacyReply(legacyTypeHealth, "SUCCESS", req, map[string]any{
			"status": healthStatus,
		})
	}

	requestID := req.CorrelationID
	if requestID == "" {
		requestID = "health-check"
	}
	return &StructuredReply{
		RequestID: requestID,
		AgentName: f.agentID,
		Status:    string(domain.StatusSuccess),
		Output: &StructuredOutput{
			Result:     healthStatus,
			Confidence: healthCheckConfidence,
			Details:    fmt.Sprintf("Health check successful at %s", now),
		},
	}
}

// TaskError renders the variant-matching envelope for a failed task strategy.
func (f *Formatter) TaskError(req *domain.NormalizedRequest, resp domain.TaskResponse) any {
	code := resp.ErrorCode
	if code == "" {
		code = domain.ErrorCodeProcessing
	}
	return f.errorReply(req.Variant, req.CorrelationID, req.Sender, code, resp.Message)
}

// ValidationError renders an error envelope for a request that never passed
// validation, in the best-determined variant.
func (f *Formatter) ValidationError(verr *ValidationError) any {
	return f.errorReply(verr.Variant, verr.CorrelationID, verr.Sender, verr.Err.Code, verr.Err.Message)
}

func (f *Formatter) errorReply(variant domain.Variant, correlationID, sender string, code domain.ErrorCode, message string) any {
	if variant == domain.VariantStructured {
		reply := &StructuredReply{
			Status: string(domain.StatusError),
			Error:  &StructuredError{Type: code, Message: message},
		}
		// Correlation fields only when an id was actually extracted.
		if correlationID != "" {
			reply.RequestID = correlationID
			reply.AgentName = f.agentID
		}
		return reply
	}

	return &LegacyReply{
		MessageID:        uuid.New().String(),
		Sender:           f.agentID,
		Recipient:        sender,
		Type:             legacyTypeError,
		RelatedMessageID: correlationID,
		Status:           "FAILURE",
		Results: map[string]any{
			"error_code": code,
			"message":    message,
		},
		Timestamp: domain.Now(),
	}
}

func (f *Formatter) legacyReply(msgType, status string, req *domain.NormalizedRequest, results map[string]any) *LegacyReply {
	return &LegacyReply{
		MessageID:        uuid.New().String(),
		Sender:           f.agentID,
		Recipient:        req.Sender,
		Type:             msgType,
		RelatedMessageID: req.CorrelationID,
		Status:           status,
		Results:          results,
		Timestamp:        domain.Now(),
	}
}
