package form

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aretw0/formwire/pkg/domain"
)

// ButtonsContainerID is the node grouping submit and cancel buttons.
const ButtonsContainerID = "buttons"

// Definition is the read-only description of a form, shared by every
// session that opens it.
type Definition struct {
	ID           string        `json:"id" yaml:"id" mapstructure:"id"`
	Title        string        `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	BusinessPath string        `json:"business_path,omitempty" yaml:"business_path,omitempty" mapstructure:"business_path"`
	OnSubmit     string        `json:"on_submit,omitempty" yaml:"on_submit,omitempty" mapstructure:"on_submit"`
	Assets       domain.Assets `json:"assets,omitempty" yaml:"assets,omitempty" mapstructure:"assets"`
	Fields       []FieldSpec   `json:"fields" yaml:"fields" mapstructure:"fields"`
	Rules        []RuleSpec    `json:"rules,omitempty" yaml:"rules,omitempty" mapstructure:"rules"`
}

// FieldSpec describes one form element.
type FieldSpec struct {
	ID        string           `json:"id" yaml:"id" mapstructure:"id"`
	Kind      domain.FieldKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Label     string           `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
	Example   string           `json:"example,omitempty" yaml:"example,omitempty" mapstructure:"example"`
	Value     *string          `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Mandatory bool             `json:"mandatory,omitempty" yaml:"mandatory,omitempty" mapstructure:"mandatory"`
	NotEmpty  string           `json:"not_empty,omitempty" yaml:"not_empty,omitempty" mapstructure:"not_empty"`
	MaxLength int              `json:"max_length,omitempty" yaml:"max_length,omitempty" mapstructure:"max_length"`
	Regex     *RegexSpec       `json:"regex,omitempty" yaml:"regex,omitempty" mapstructure:"regex"`
	Normalize string           `json:"normalize,omitempty" yaml:"normalize,omitempty" mapstructure:"normalize"`
	Hidden    bool             `json:"hidden,omitempty" yaml:"hidden,omitempty" mapstructure:"hidden"`
	Disabled  bool             `json:"disabled,omitempty" yaml:"disabled,omitempty" mapstructure:"disabled"`
	Assets    domain.Assets    `json:"assets,omitempty" yaml:"assets,omitempty" mapstructure:"assets"`
	// Clears lists fields reset to null whenever this field becomes empty.
	Clears   []string     `json:"clears,omitempty" yaml:"clears,omitempty" mapstructure:"clears"`
	Requires *RequireSpec `json:"requires,omitempty" yaml:"requires,omitempty" mapstructure:"requires"`
}

// RequireSpec makes a non-empty value depend on another field: while this
// field has a value and Field is empty, Field carries the Error annotation.
type RequireSpec struct {
	Field string `json:"field" yaml:"field" mapstructure:"field"`
	Error string `json:"error" yaml:"error" mapstructure:"error"`
}

// RegexSpec is a full-match constraint checked on submit.
type RegexSpec struct {
	Pattern string `json:"pattern" yaml:"pattern" mapstructure:"pattern"`
	Error   string `json:"error" yaml:"error" mapstructure:"error"`
}

// RuleSpec describes one dependency rule. Match is "empty", "regex" or
// "literal"; a regex rule without a pattern only matches a null value.
type RuleSpec struct {
	Trigger string   `json:"trigger" yaml:"trigger" mapstructure:"trigger"`
	Match   string   `json:"match" yaml:"match" mapstructure:"match"`
	Pattern *string  `json:"pattern,omitempty" yaml:"pattern,omitempty" mapstructure:"pattern"`
	Literal string   `json:"literal,omitempty" yaml:"literal,omitempty" mapstructure:"literal"`
	Action  string   `json:"action" yaml:"action" mapstructure:"action"`
	Targets []string `json:"targets" yaml:"targets" mapstructure:"targets"`
}

// Matcher builds the domain matcher of the rule.
func (r RuleSpec) Matcher() (domain.Matcher, error) {
	switch domain.MatchKind(r.Match) {
	case domain.MatchEmpty:
		return domain.EmptyMatcher(), nil
	case domain.MatchLiteral:
		return domain.LiteralMatcher(r.Literal), nil
	case domain.MatchRegex:
		return domain.RegexMatcher(r.Pattern)
	}
	return domain.Matcher{}, &domain.ConfigurationError{
		Component: "rule",
		Reason:    fmt.Sprintf("trigger %q has unknown match %q", r.Trigger, r.Match),
	}
}

// Validate checks the definition by instantiating it once.
func (d *Definition) Validate() error {
	_, err := d.Instantiate()
	return err
}

// Field returns the spec of the given field.
func (d *Definition) Field(id string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func (d *Definition) checkIDs() error {
	if d.ID == "" {
		return &domain.ConfigurationError{Component: "form", Reason: "missing id"}
	}
	seen := mapset.NewThreadUnsafeSet(d.ID, ButtonsContainerID)
	for i, f := range d.Fields {
		if f.ID == "" {
			return &domain.ConfigurationError{Component: "form " + d.ID, Reason: fmt.Sprintf("field %d has no id", i)}
		}
		if !seen.Add(f.ID) {
			return &domain.ConfigurationError{Component: "form " + d.ID, Reason: fmt.Sprintf("duplicate or reserved id %q", f.ID)}
		}
		switch f.Kind {
		case domain.FieldText, domain.FieldSubmit, domain.FieldCancel, domain.FieldStatic:
		default:
			return &domain.ConfigurationError{Component: "form " + d.ID, Reason: fmt.Sprintf("field %q has unknown kind %q", f.ID, f.Kind)}
		}
	}
	return nil
}
