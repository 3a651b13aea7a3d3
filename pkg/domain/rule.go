package domain

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Action is the effect a matching rule has on its targets.
type Action string

const (
	ActionShow    Action = "SHOW"
	ActionHide    Action = "HIDE"
	ActionEnable  Action = "ENABLE"
	ActionDisable Action = "DISABLE"
)

// ParseAction accepts the action names case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionShow, ActionHide, ActionEnable, ActionDisable:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// DependencyRule binds a trigger field's value to a visibility or enablement
// effect on a set of target fields. The rule observes its trigger and targets
// and owns neither. It is immutable once built.
type DependencyRule struct {
	trigger Valuer
	matcher Matcher
	action  Action
	targets []Toggler
}

// NewDependencyRule validates the binding. Targets are de-duplicated and keep
// their first-listed order; a rule may not target its own trigger.
func NewDependencyRule(trigger Valuer, matcher Matcher, action Action, targets ...Toggler) (*DependencyRule, error) {
	if trigger == nil {
		return nil, &ConfigurationError{Component: "rule", Reason: "missing trigger"}
	}
	if _, err := ParseAction(string(action)); err != nil {
		return nil, &ConfigurationError{Component: "rule", Reason: fmt.Sprintf("trigger %q", trigger.FieldID()), Err: err}
	}
	if _, ok := matchFuncs[matcher.kind]; !ok {
		return nil, &ConfigurationError{Component: "rule", Reason: fmt.Sprintf("trigger %q has no matcher", trigger.FieldID())}
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	uniq := make([]Toggler, 0, len(targets))
	for _, t := range targets {
		if t == nil {
			return nil, &ConfigurationError{Component: "rule", Reason: fmt.Sprintf("trigger %q has a nil target", trigger.FieldID())}
		}
		if t.FieldID() == trigger.FieldID() {
			return nil, &ConfigurationError{Component: "rule", Reason: fmt.Sprintf("field %q targets itself", trigger.FieldID())}
		}
		if seen.Add(t.FieldID()) {
			uniq = append(uniq, t)
		}
	}
	if len(uniq) == 0 {
		return nil, &ConfigurationError{Component: "rule", Reason: fmt.Sprintf("trigger %q has no targets", trigger.FieldID())}
	}

	return &DependencyRule{
		trigger: trigger,
		matcher: matcher,
		action:  action,
		targets: uniq,
	}, nil
}

func (r *DependencyRule) Trigger() Valuer  { return r.trigger }
func (r *DependencyRule) Matcher() Matcher { return r.matcher }
func (r *DependencyRule) Action() Action   { return r.action }

// Targets returns the dependent fields. The slice must not be modified.
func (r *DependencyRule) Targets() []Toggler {
	return r.targets
}

// TargetIDs returns the dependent field IDs as a set.
func (r *DependencyRule) TargetIDs() mapset.Set[string] {
	ids := mapset.NewThreadUnsafeSet[string]()
	for _, t := range r.targets {
		ids.Add(t.FieldID())
	}
	return ids
}

// Triggers reports whether the rule fires for the given trigger value.
func (r *DependencyRule) Triggers(value string, present bool) bool {
	return r.matcher.Match(value, present)
}

// Apply computes the state the action gives a target.
func (a Action) Apply(visible, enabled bool) (bool, bool) {
	switch a {
	case ActionShow:
		visible = true
	case ActionHide:
		visible = false
	case ActionEnable:
		enabled = true
	case ActionDisable:
		enabled = false
	}
	return visible, enabled
}

func (r *DependencyRule) String() string {
	ids := make([]string, len(r.targets))
	for i, t := range r.targets {
		ids[i] = t.FieldID()
	}
	return fmt.Sprintf("%s %s when %s %s", r.action, strings.Join(ids, ","), r.trigger.FieldID(), r.matcher)
}
