package dsl

import (
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
)

// FormBuilder provides a fluent API for configuring a form.
type FormBuilder struct {
	def *form.Definition
}

// Title sets the message key of the form title.
func (f *FormBuilder) Title(key string) *FormBuilder {
	f.def.Title = key
	return f
}

// Description sets the message key shown under the title.
func (f *FormBuilder) Description(key string) *FormBuilder {
	f.def.Description = key
	return f
}

// BusinessPath sets where the form lives, e.g. "[Admin:0][I18n:0]".
func (f *FormBuilder) BusinessPath(path string) *FormBuilder {
	f.def.BusinessPath = path
	return f
}

// OnSubmit names the registered handler called with the values of a valid
// form.
func (f *FormBuilder) OnSubmit(handler string) *FormBuilder {
	f.def.OnSubmit = handler
	return f
}

// JS adds scripts the whole form needs.
func (f *FormBuilder) JS(paths ...string) *FormBuilder {
	f.def.Assets.JS = append(f.def.Assets.JS, paths...)
	return f
}

// CSS adds stylesheets the whole form needs.
func (f *FormBuilder) CSS(paths ...string) *FormBuilder {
	f.def.Assets.CSS = append(f.def.Assets.CSS, paths...)
	return f
}

// Text adds a text input.
func (f *FormBuilder) Text(id string) *FieldBuilder {
	return f.add(id, domain.FieldText)
}

// Static adds a read-only element.
func (f *FormBuilder) Static(id string) *FieldBuilder {
	return f.add(id, domain.FieldStatic)
}

// Submit adds the submit button.
func (f *FormBuilder) Submit(id, label string) *FormBuilder {
	f.add(id, domain.FieldSubmit).Label(label)
	return f
}

// Cancel adds the cancel button.
func (f *FormBuilder) Cancel(id, label string) *FormBuilder {
	f.add(id, domain.FieldCancel).Label(label)
	return f
}

func (f *FormBuilder) add(id string, kind domain.FieldKind) *FieldBuilder {
	f.def.Fields = append(f.def.Fields, form.FieldSpec{ID: id, Kind: kind})
	return &FieldBuilder{form: f, idx: len(f.def.Fields) - 1}
}

// When starts a dependency rule triggered by changes of the given field.
func (f *FormBuilder) When(trigger string) *RuleBuilder {
	return &RuleBuilder{form: f, spec: form.RuleSpec{Trigger: trigger}}
}

// Definition returns the underlying definition.
func (f *FormBuilder) Definition() *form.Definition {
	return f.def
}
