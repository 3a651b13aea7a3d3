package rules

import (
	"fmt"

	"github.com/aretw0/formwire/pkg/domain"
)

// RuleSet is the ordered collection of dependency rules attached to one form.
// It performs no I/O: the same rules, trigger and value always produce the
// same evaluation.
type RuleSet struct {
	rules     []*domain.DependencyRule
	byTrigger map[string][]int
}

// New validates the rules against the tree they act on and fails fast with a
// *domain.ConfigurationError when a trigger or target is not part of root, or
// when the rules form a cycle or a cascade deeper than domain.MaxCascadeDepth.
func New(root *domain.ComponentNode, rules ...*domain.DependencyRule) (*RuleSet, error) {
	rs := &RuleSet{byTrigger: make(map[string][]int)}
	for i, r := range rules {
		if r == nil {
			return nil, &domain.ConfigurationError{Component: "ruleset", Reason: fmt.Sprintf("rule %d is nil", i)}
		}
		if err := requireNode(root, r.Trigger().FieldID(), "trigger"); err != nil {
			return nil, err
		}
		for _, t := range r.Targets() {
			if err := requireNode(root, t.FieldID(), "target"); err != nil {
				return nil, err
			}
		}
		rs.byTrigger[r.Trigger().FieldID()] = append(rs.byTrigger[r.Trigger().FieldID()], len(rs.rules))
		rs.rules = append(rs.rules, r)
	}
	if err := checkCascade(rs.rules); err != nil {
		return nil, err
	}
	return rs, nil
}

func requireNode(root *domain.ComponentNode, id, role string) error {
	if root == nil || root.Find(id) == nil {
		return &domain.ConfigurationError{
			Component: "ruleset",
			Reason:    fmt.Sprintf("%s %q is not part of the component tree", role, id),
		}
	}
	return nil
}

// Rules returns the rules in registration order. The slice must not be modified.
func (rs *RuleSet) Rules() []*domain.DependencyRule {
	return rs.rules
}

// Edges returns the trigger-to-target graph in registration order.
func (rs *RuleSet) Edges() []Edge {
	return edges(rs.rules)
}

// IsTrigger reports whether any rule is keyed on the field.
func (rs *RuleSet) IsTrigger(fieldID string) bool {
	return len(rs.byTrigger[fieldID]) > 0
}

// Change is the net state transition of one target.
type Change struct {
	Target         domain.Toggler
	Visible        bool
	Enabled        bool
	VisibleChanged bool
	EnabledChanged bool
}

// FieldID returns the target's id.
func (c Change) FieldID() string { return c.Target.FieldID() }

// Application records one matching rule and the pass it fired in: 0 for rules
// keyed on the changed field, 1 for the cascade pass.
type Application struct {
	Rule *domain.DependencyRule
	Pass int
}

// Evaluation is the outcome of re-evaluating the rule set after one change.
type Evaluation struct {
	// Changes lists targets whose visibility or enablement differs from the
	// state before evaluation, in the order they were first touched.
	Changes []Change
	Applied []Application
}

// ChangedIDs returns the ids of Changes.
func (e Evaluation) ChangedIDs() []string {
	ids := make([]string, len(e.Changes))
	for i, c := range e.Changes {
		ids[i] = c.FieldID()
	}
	return ids
}

type toggle struct {
	target           domain.Toggler
	visible, enabled bool
}

// overlay is the scratch state of one evaluation, so planning never touches
// the fields themselves.
type overlay struct {
	state map[string]*toggle
	order []string
}

func (o *overlay) get(t domain.Toggler) *toggle {
	if s, ok := o.state[t.FieldID()]; ok {
		return s
	}
	s := &toggle{target: t, visible: t.Visible(), enabled: t.Enabled()}
	o.state[t.FieldID()] = s
	o.order = append(o.order, t.FieldID())
	return s
}

func (o *overlay) changes() []Change {
	var out []Change
	for _, id := range o.order {
		s := o.state[id]
		c := Change{
			Target:         s.target,
			Visible:        s.visible,
			Enabled:        s.enabled,
			VisibleChanged: s.visible != s.target.Visible(),
			EnabledChanged: s.enabled != s.target.Enabled(),
		}
		if c.VisibleChanged || c.EnabledChanged {
			out = append(out, c)
		}
	}
	return out
}

// value is what a rule sees of its trigger under the overlay: a hidden or
// disabled trigger contributes null.
func (o *overlay) value(v domain.Valuer) (string, bool) {
	if s, ok := o.state[v.FieldID()]; ok {
		if !s.visible || !s.enabled {
			return "", false
		}
		return v.Value()
	}
	if t, ok := v.(domain.Toggler); ok && (!t.Visible() || !t.Enabled()) {
		return "", false
	}
	return v.Value()
}

// Plan computes the evaluation for a change of the given field without
// mutating any field. Rules keyed on the changed field run first in
// registration order; rules keyed on a field whose state those rules changed
// run in a single further pass. Within a pass the last applied rule wins.
func (rs *RuleSet) Plan(changed domain.Valuer) Evaluation {
	o := &overlay{state: make(map[string]*toggle)}
	var applied []Application

	run := func(idx int, pass int) {
		r := rs.rules[idx]
		value, present := o.value(r.Trigger())
		if !r.Triggers(value, present) {
			return
		}
		for _, t := range r.Targets() {
			s := o.get(t)
			s.visible, s.enabled = r.Action().Apply(s.visible, s.enabled)
		}
		applied = append(applied, Application{Rule: r, Pass: pass})
	}

	for _, idx := range rs.byTrigger[changed.FieldID()] {
		run(idx, 0)
	}

	cascaded := make(map[string]bool)
	for _, c := range o.changes() {
		if rs.IsTrigger(c.FieldID()) && c.FieldID() != changed.FieldID() {
			cascaded[c.FieldID()] = true
		}
	}
	if len(cascaded) > 0 {
		for idx, r := range rs.rules {
			if cascaded[r.Trigger().FieldID()] {
				run(idx, 1)
			}
		}
	}

	return Evaluation{Changes: o.changes(), Applied: applied}
}

// Apply writes the planned states onto the targets, which marks their nodes dirty.
func (e Evaluation) Apply() {
	for _, c := range e.Changes {
		c.Target.SetVisible(c.Visible)
		c.Target.SetEnabled(c.Enabled)
	}
}

// Evaluate plans and applies the rules for a change of the given field.
func (rs *RuleSet) Evaluate(changed domain.Valuer) Evaluation {
	ev := rs.Plan(changed)
	ev.Apply()
	return ev
}
