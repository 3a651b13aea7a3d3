package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrFormNotFound is returned when no definition exists for a form ID.
var ErrFormNotFound = errors.New("form not found")

// ErrFieldNotFound is returned when an event targets a field the session does not own.
var ErrFieldNotFound = errors.New("field not found")

// ErrUnknownEvent is returned for an event kind the loop does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// ConfigurationError is a developer-facing setup failure: malformed rule
// bindings, cascades, bad patterns, or a command payload that cannot be
// serialized. It is never recovered silently.
type ConfigurationError struct {
	Component string
	Reason    string
	Err       error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error in %s: %s", e.Component, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ValidationError is an expected per-field failure, shown inline next to the field.
type ValidationError struct {
	FieldID  string
	ErrorKey string
	Args     []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.FieldID, e.ErrorKey)
}

// ValidationErrors aggregates the failures of one submit.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	parts := make([]string, len(e))
	for i, err := range e {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(parts, "; "))
}

// TransientError reports a collaborator failure. The cycle that hit it leaves
// the session in its pre-event state, so the same event can be retried.
type TransientError struct {
	Collaborator string
	Err          error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err carries a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}
