package dsl

import (
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
)

// RuleBuilder configures a dependency rule: When(trigger), a match, then an
// action on the targets.
type RuleBuilder struct {
	form *FormBuilder
	spec form.RuleSpec
}

// IsEmpty matches a present, empty trigger value.
func (r *RuleBuilder) IsEmpty() *RuleBuilder {
	r.spec.Match = string(domain.MatchEmpty)
	return r
}

// Matches matches when the whole trigger value matches pattern.
func (r *RuleBuilder) Matches(pattern string) *RuleBuilder {
	r.spec.Match = string(domain.MatchRegex)
	r.spec.Pattern = &pattern
	return r
}

// IsNull matches only a null trigger value.
func (r *RuleBuilder) IsNull() *RuleBuilder {
	r.spec.Match = string(domain.MatchRegex)
	r.spec.Pattern = nil
	return r
}

// Equals matches one exact trigger value.
func (r *RuleBuilder) Equals(literal string) *RuleBuilder {
	r.spec.Match = string(domain.MatchLiteral)
	r.spec.Literal = literal
	return r
}

// Show makes the targets visible when the rule matches.
func (r *RuleBuilder) Show(targets ...string) *FormBuilder {
	return r.then(domain.ActionShow, targets)
}

// Hide makes the targets invisible when the rule matches.
func (r *RuleBuilder) Hide(targets ...string) *FormBuilder {
	return r.then(domain.ActionHide, targets)
}

// Enable makes the targets editable when the rule matches.
func (r *RuleBuilder) Enable(targets ...string) *FormBuilder {
	return r.then(domain.ActionEnable, targets)
}

// Disable makes the targets read-only when the rule matches.
func (r *RuleBuilder) Disable(targets ...string) *FormBuilder {
	return r.then(domain.ActionDisable, targets)
}

func (r *RuleBuilder) then(action domain.Action, targets []string) *FormBuilder {
	r.spec.Action = string(action)
	r.spec.Targets = append([]string(nil), targets...)
	r.form.def.Rules = append(r.form.def.Rules, r.spec)
	return r.form
}
