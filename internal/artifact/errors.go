package artifact

import (
	"fmt"
	"strings"
)

// IncompleteError reports an artifact with one or more essential files missing.
type IncompleteError struct {
	DocumentID string
	Missing    []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("artifact for %s incomplete: missing %s", e.DocumentID, strings.Join(e.Missing, ", "))
}

// CorruptError reports an artifact file that exists but cannot be parsed.
type CorruptError struct {
	DocumentID string
	File       string
	Err        error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("artifact for %s corrupt in %s: %v", e.DocumentID, e.File, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// ExhaustedError reports that every recovery strategy failed. Unwrap exposes
// the per-strategy errors so errors.As can still find IncompleteError or
// CorruptError underneath.
type ExhaustedError struct {
	DocumentID string
	Errs       []error
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("all recovery strategies failed for %s: %s", e.DocumentID, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() []error {
	return e.Errs
}
