// Package chat provides the answer-generation client used after retrieval.
package chat

import "context"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer generates an answer from a list of chat messages.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
