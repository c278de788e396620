package models

// Stream event types emitted during one chat answer, in order: zero or one
// status, zero or more token, at most one fullContent, then exactly one of
// done or error. Nothing follows done or error.
const (
	EventStatus      = "status"
	EventToken       = "token"
	EventFullContent = "fullContent"
	EventError       = "error"
	EventDone        = "done"
)

// Stream error codes carried on error events so clients can distinguish a bad
// provider credential (re-prompt for a key) from a transient failure (retry).
const (
	StreamErrAPIKey = "apiKeyError"
	StreamErrStream = "streamError"
)

// StreamEvent is one tagged event in a chat answer stream.
type StreamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
