package domain

import (
	"context"
	"time"
)

// CycleEvent describes one pass of the event loop.
type CycleEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id"`
	FormID    string        `json:"form_id"`
	Event     Event         `json:"event"`
	Outcome   string        `json:"outcome,omitempty"`
	Commands  []string      `json:"commands,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// Cycle outcomes reported in CycleEvent.Outcome.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeTransient = "transient"
	OutcomeConfig    = "config_error"
	OutcomeRejected  = "rejected"
)

// StateEvent is emitted on every loop state transition.
type StateEvent struct {
	SessionID string    `json:"session_id"`
	From      LoopState `json:"from"`
	To        LoopState `json:"to"`
}

// RuleEvent is emitted for each rule whose action was applied.
type RuleEvent struct {
	SessionID string   `json:"session_id"`
	TriggerID string   `json:"trigger_id"`
	Action    Action   `json:"action"`
	Targets   []string `json:"targets"`
	Pass      int      `json:"pass"`
}

// LifecycleHooks defines callbacks for loop observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnCycleStart  func(context.Context, *CycleEvent)
	OnStateChange func(context.Context, *StateEvent)
	OnRuleApplied func(context.Context, *RuleEvent)
	OnCycleEnd    func(context.Context, *CycleEvent)
}
