package review

import "encoding/json"

// Copilot stream event types.
const (
	CopilotEventTrace          = "trace"
	CopilotEventEvidenceReveal = "evidence_reveal"
	CopilotEventMessageChunk   = "message_chunk"
	CopilotEventError          = "error"
)

// CopilotChatRequest is the body of POST /api/v1/copilot/chat/stream.
type CopilotChatRequest struct {
	CaseID string `json:"case_id"`
	Query  string `json:"query"`
}

// CopilotEvent is one NDJSON line of the copilot stream.
type CopilotEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
