// Package aiproj provides the core types shared by the configuration,
// history and runner packages: the normalized conversation message and the
// error taxonomy reported by every operation.
package aiproj

import (
	"fmt"
)

// ConfigurationError is returned when a required setting of a named
// configuration is missing. It is fatal for that configuration only.
type ConfigurationError struct {
	Config string // Configuration name (e.g., "TEST")
	Field  string // Environment variable that was missing (e.g., "PROJECT_ENDPOINT_TEST")
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s not found in environment variables", e.Field)
}

// SelectionError is reported when the requested configuration is not among
// the successfully resolved ones.
type SelectionError struct {
	Config    string
	Available []string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selected configuration '%s' is not available", e.Config)
}

// OperationError wraps any failure raised while running a single operation
// against a configuration.
type OperationError struct {
	Config    string
	Operation string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Operation, e.Config, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// RetrievalError wraps a transport or authentication failure raised while
// reading a thread's message history.
type RetrievalError struct {
	ThreadID string
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieving history for thread %s: %v", e.ThreadID, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
