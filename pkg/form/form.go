package form

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/rules"
)

// Form is the runtime instance of a Definition owned by one session.
type Form struct {
	def    *Definition
	node   *domain.ComponentNode
	fields map[string]*domain.Field
	order  []*domain.Field
	rules  *rules.RuleSet

	clears   map[string][]*domain.Field
	requires []requirement

	errorKey  string
	errorArgs []string
}

// Instantiate builds a fresh component tree, fields and rule set. It fails
// fast with a *domain.ConfigurationError on any inconsistency. The returned
// form's node is dirty, so its first collection is a full redraw.
func (d *Definition) Instantiate() (*Form, error) {
	if err := d.checkIDs(); err != nil {
		return nil, err
	}

	f := &Form{
		def:    d,
		node:   domain.NewComponentNode(d.ID, domain.NodeKindForm),
		fields: make(map[string]*domain.Field, len(d.Fields)),
		clears: make(map[string][]*domain.Field),
	}
	f.node.Assets = d.Assets

	var buttons *domain.ComponentNode
	for _, spec := range d.Fields {
		field, err := newField(spec)
		if err != nil {
			return nil, fmt.Errorf("form %s: %w", d.ID, err)
		}
		switch spec.Kind {
		case domain.FieldSubmit, domain.FieldCancel:
			if buttons == nil {
				buttons = domain.NewComponentNode(ButtonsContainerID, domain.NodeKindContainer)
			}
			buttons.Add(field.Node())
		default:
			f.node.Add(field.Node())
		}
		f.fields[spec.ID] = field
		f.order = append(f.order, field)
	}
	if buttons != nil {
		f.node.Add(buttons)
	}

	built := make([]*domain.DependencyRule, 0, len(d.Rules))
	for i, spec := range d.Rules {
		r, err := f.buildRule(spec)
		if err != nil {
			return nil, fmt.Errorf("form %s rule %d: %w", d.ID, i, err)
		}
		built = append(built, r)
	}
	rs, err := rules.New(f.node, built...)
	if err != nil {
		return nil, fmt.Errorf("form %s: %w", d.ID, err)
	}
	f.rules = rs
	if err := f.buildConstraints(); err != nil {
		return nil, fmt.Errorf("form %s: %w", d.ID, err)
	}
	f.settle()
	return f, nil
}

// requirement is a built RequireSpec.
type requirement struct {
	source, target *domain.Field
	key            string
}

func (f *Form) buildConstraints() error {
	text := func(owner, id, role string) (*domain.Field, error) {
		t, ok := f.fields[id]
		switch {
		case !ok:
			return nil, &domain.ConfigurationError{Component: "field " + owner, Reason: fmt.Sprintf("unknown %s %q", role, id)}
		case id == owner:
			return nil, &domain.ConfigurationError{Component: "field " + owner, Reason: fmt.Sprintf("%s refers to itself", role)}
		case t.Kind() != domain.FieldText:
			return nil, &domain.ConfigurationError{Component: "field " + owner, Reason: fmt.Sprintf("%s %q is not a text field", role, id)}
		}
		return t, nil
	}
	for _, spec := range f.def.Fields {
		if len(spec.Clears) > 0 && spec.Kind != domain.FieldText {
			return &domain.ConfigurationError{Component: "field " + spec.ID, Reason: "only text fields clear others"}
		}
		for _, id := range spec.Clears {
			t, err := text(spec.ID, id, "cleared field")
			if err != nil {
				return err
			}
			f.clears[spec.ID] = append(f.clears[spec.ID], t)
		}
		if spec.Requires == nil {
			continue
		}
		t, err := text(spec.ID, spec.Requires.Field, "required field")
		if err != nil {
			return err
		}
		if spec.Requires.Error == "" {
			return &domain.ConfigurationError{Component: "field " + spec.ID, Reason: "requirement has no error key"}
		}
		f.requires = append(f.requires, requirement{source: f.fields[spec.ID], target: t, key: spec.Requires.Error})
	}
	return nil
}

func newField(spec FieldSpec) (*domain.Field, error) {
	field := domain.NewField(spec.ID, spec.Kind)
	field.LabelKey = spec.Label
	field.ExampleKey = spec.Example
	field.Mandatory = spec.Mandatory
	field.NotEmptyKey = spec.NotEmpty
	field.MaxLength = spec.MaxLength
	field.Node().Assets = spec.Assets

	if spec.Regex != nil {
		key := spec.Regex.Error
		if key == "" {
			key = domain.KeyInvalidInput
		}
		if err := field.SetRegexCheck(spec.Regex.Pattern, key); err != nil {
			return nil, err
		}
	}
	n, err := LookupNormalizer(spec.Normalize)
	if err != nil {
		return nil, err
	}
	if n != nil {
		field.SetNormalizer(n)
	}
	if spec.Value != nil {
		field.SetValue(*spec.Value)
	}
	field.SetVisible(!spec.Hidden)
	field.SetEnabled(!spec.Disabled)
	return field, nil
}

func (f *Form) buildRule(spec RuleSpec) (*domain.DependencyRule, error) {
	trigger, ok := f.fields[spec.Trigger]
	if !ok {
		return nil, &domain.ConfigurationError{Component: "rule", Reason: fmt.Sprintf("unknown trigger %q", spec.Trigger)}
	}
	m, err := spec.Matcher()
	if err != nil {
		return nil, err
	}
	action, err := domain.ParseAction(spec.Action)
	if err != nil {
		return nil, &domain.ConfigurationError{Component: "rule", Reason: fmt.Sprintf("trigger %q", spec.Trigger), Err: err}
	}
	targets := make([]domain.Toggler, 0, len(spec.Targets))
	for _, id := range spec.Targets {
		t, ok := f.fields[id]
		if !ok {
			return nil, &domain.ConfigurationError{Component: "rule", Reason: fmt.Sprintf("unknown target %q", id)}
		}
		targets = append(targets, t)
	}
	return domain.NewDependencyRule(trigger, m, action, targets...)
}

// settle runs every trigger once so the initial visibility agrees with the
// initial values.
func (f *Form) settle() {
	done := mapset.NewThreadUnsafeSet[string]()
	for _, r := range f.rules.Rules() {
		id := r.Trigger().FieldID()
		if done.Add(id) {
			f.rules.Evaluate(f.fields[id])
		}
	}
}

// Propagate applies the effects of a value change of the given field. Its
// rules run first; when the field became empty the fields it clears are
// reset and their own rules run. Requirements are checked last. The
// evaluations are returned in the order they ran.
func (f *Form) Propagate(changed *domain.Field) []rules.Evaluation {
	evs := []rules.Evaluation{f.rules.Evaluate(changed)}
	if changed.IsEmpty() {
		for _, t := range f.clears[changed.FieldID()] {
			if !t.ClearValue() {
				continue
			}
			t.ClearError()
			if f.rules.IsTrigger(t.FieldID()) {
				evs = append(evs, f.rules.Evaluate(t))
			}
		}
	}
	f.checkRequirements()
	return evs
}

// checkRequirements annotates every required field left empty and clears
// annotations whose requirement is met again.
func (f *Form) checkRequirements() {
	for _, r := range f.requires {
		key, _ := r.target.Error()
		if r.violated() {
			r.target.SetError(r.key)
		} else if key == r.key {
			r.target.ClearError()
		}
	}
}

func (r requirement) violated() bool {
	v, ok := r.source.EffectiveValue()
	if !ok || v == "" {
		return false
	}
	return r.target.Visible() && r.target.Enabled() && r.target.IsEmpty()
}

func (f *Form) ID() string                  { return f.def.ID }
func (f *Form) Definition() *Definition     { return f.def }
func (f *Form) Node() *domain.ComponentNode { return f.node }
func (f *Form) Rules() *rules.RuleSet       { return f.rules }

// Field returns the field with the given id.
func (f *Form) Field(id string) (*domain.Field, bool) {
	field, ok := f.fields[id]
	return field, ok
}

// Fields returns the fields in definition order.
func (f *Form) Fields() []*domain.Field {
	return f.order
}

// GetValue returns a field's stored value; ok is false for a null value or an
// unknown field.
func (f *Form) GetValue(id string) (string, bool) {
	field, ok := f.fields[id]
	if !ok {
		return "", false
	}
	return field.Value()
}

// SetValue stores a value from the server side.
func (f *Form) SetValue(id, value string) error {
	field, ok := f.fields[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrFieldNotFound, id)
	}
	field.SetValue(value)
	return nil
}

// Values returns the effective values of the text fields. Hidden, disabled
// and null fields are omitted.
func (f *Form) Values() map[string]string {
	out := make(map[string]string)
	for _, field := range f.order {
		if field.Kind() != domain.FieldText {
			continue
		}
		if v, ok := field.EffectiveValue(); ok {
			out[field.FieldID()] = v
		}
	}
	return out
}

// Validate checks every visible, enabled text field, sets the error
// annotation of failing fields and clears it on the others.
func (f *Form) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	for _, field := range f.order {
		if !field.Visible() || !field.Enabled() {
			field.ClearError()
			continue
		}
		if err := field.Validate(); err != nil {
			field.SetError(err.ErrorKey, err.Args...)
			errs = append(errs, err)
			continue
		}
		field.ClearError()
	}
	failed := mapset.NewThreadUnsafeSet[string]()
	for _, err := range errs {
		failed.Add(err.FieldID)
	}
	for _, r := range f.requires {
		if r.violated() && !failed.Contains(r.target.FieldID()) {
			r.target.SetError(r.key)
			failed.Add(r.target.FieldID())
			errs = append(errs, &domain.ValidationError{FieldID: r.target.FieldID(), ErrorKey: r.key})
		}
	}
	return errs
}

// Error returns the form-level annotation.
func (f *Form) Error() (string, []string) {
	return f.errorKey, f.errorArgs
}

// SetError annotates the whole form, which redraws it.
func (f *Form) SetError(key string, args ...string) {
	f.errorKey, f.errorArgs = key, args
	f.node.MarkDirty()
}

// ClearError removes the form-level annotation.
func (f *Form) ClearError() {
	if f.errorKey == "" {
		return
	}
	f.errorKey, f.errorArgs = "", nil
	f.node.MarkDirty()
}

// Snapshot captures the state of every field and the form annotation.
func (f *Form) Snapshot() domain.FormSnapshot {
	s := domain.FormSnapshot{
		Fields:    make(map[string]domain.FieldSnapshot, len(f.order)),
		ErrorKey:  f.errorKey,
		ErrorArgs: append([]string(nil), f.errorArgs...),
	}
	for _, field := range f.order {
		s.Fields[field.FieldID()] = field.Snapshot()
	}
	return s
}

// Restore puts a snapshot back. Dirty marks are left untouched.
func (f *Form) Restore(s domain.FormSnapshot) error {
	for id, fs := range s.Fields {
		field, ok := f.fields[id]
		if !ok {
			return fmt.Errorf("restore form %s: %w: %s", f.def.ID, domain.ErrFieldNotFound, id)
		}
		field.Restore(fs)
	}
	f.errorKey = s.ErrorKey
	f.errorArgs = append([]string(nil), s.ErrorArgs...)
	return nil
}
