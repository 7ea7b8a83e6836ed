package summarize

import "fmt"

// ParseError represents a model response that could not be turned into a summary.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ModelCallError reports that a topic could not be summarized after the retry.
type ModelCallError struct {
	Attempts int
	Cause    error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ModelCallError) Unwrap() error {
	return e.Cause
}
