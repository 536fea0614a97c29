package chat

import (
	"context"
	"sync/atomic"
)

// MockCompleter is a canned-answer completer for tests. Calls counts how
// many times Complete ran.
type MockCompleter struct {
	Answer string
	Err    error
	calls  atomic.Int64
}

// Complete returns the canned answer or error.
func (m *MockCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Answer == "" {
		return "mock answer", nil
	}
	return m.Answer, nil
}

// Calls returns the number of Complete invocations.
func (m *MockCompleter) Calls() int64 {
	return m.calls.Load()
}
