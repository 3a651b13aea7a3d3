package domain

import "time"

// LoopState is a step of the form event cycle.
type LoopState string

const (
	StateIdle           LoopState = "IDLE"
	StateEventReceived  LoopState = "EVENT_RECEIVED"
	StateRulesEvaluated LoopState = "RULES_EVALUATED"
	StateTreeDiffed     LoopState = "TREE_DIFFED"
	StateCommandsBuilt  LoopState = "COMMANDS_BUILT"
	StateDispatched     LoopState = "DISPATCHED"
)

// EventKind is the user interaction an event carries.
type EventKind string

const (
	EventChange EventKind = "change"
	EventSubmit EventKind = "submit"
	EventCancel EventKind = "cancel"
)

// Event is a client-originated interaction with one field. Present is false
// for a null value.
type Event struct {
	Kind    EventKind `json:"kind"`
	FieldID string    `json:"field_id"`
	Value   string    `json:"value,omitempty"`
	Present bool      `json:"present"`
}

// FormSnapshot is the persistent state of one form instance.
type FormSnapshot struct {
	Fields    map[string]FieldSnapshot `json:"fields"`
	ErrorKey  string                   `json:"error_key,omitempty"`
	ErrorArgs []string                 `json:"error_args,omitempty"`
}

// SessionState is what a session store persists between requests.
type SessionState struct {
	ID           string       `json:"id"`
	FormID       string       `json:"form_id"`
	Locale       string       `json:"locale"`
	BusinessPath string       `json:"business_path,omitempty"`
	Form         FormSnapshot `json:"form"`
	Revision     int64        `json:"revision"`
	UpdatedAt    time.Time    `json:"updated_at"`
	// Sealed carries the encrypted state when the store seals snapshots;
	// Form is then empty.
	Sealed string `json:"sealed,omitempty"`
}
