// Package chat drives streaming answer generation over retrieved context.
package chat

import "context"

// Message is a single chat message. Role is one of "system", "user", or
// "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Streamer produces a model answer incrementally. onToken is called once per
// generated token, in order; returning an error from it aborts generation.
// The full accumulated answer is returned on success.
type Streamer interface {
	Stream(ctx context.Context, messages []Message, onToken func(token string) error) (string, error)
}
