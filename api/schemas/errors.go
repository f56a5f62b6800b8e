package schemas

import "fmt"

// Error taxonomy for the client core. Every failure is locally recoverable:
// reads preserve the previous state, mutations report and leave state
// untouched, validation rejects before any network call.

// FetchError wraps a failed read. The caller's cached state must be left
// exactly as it was.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RequestError wraps a rejected mutating call. No partial mutation may be
// observable after it is returned.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("request %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("request %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ValidationError is a local rejection issued before any network traffic.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a named input.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
