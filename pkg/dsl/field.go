package dsl

import "github.com/aretw0/formwire/pkg/form"

// FieldBuilder configures one field. Every method returns the field builder
// except Done, which returns to the form.
type FieldBuilder struct {
	form *FormBuilder
	idx  int
}

// spec is looked up on each call because appending fields may move the slice.
func (b *FieldBuilder) spec() *form.FieldSpec {
	return &b.form.def.Fields[b.idx]
}

// Label sets the message key of the label.
func (b *FieldBuilder) Label(key string) *FieldBuilder {
	b.spec().Label = key
	return b
}

// Example sets the message key of the input hint.
func (b *FieldBuilder) Example(key string) *FieldBuilder {
	b.spec().Example = key
	return b
}

// Value sets the initial value. Without it the field starts null.
func (b *FieldBuilder) Value(v string) *FieldBuilder {
	b.spec().Value = &v
	return b
}

// Mandatory requires a non-empty value on submit.
func (b *FieldBuilder) Mandatory() *FieldBuilder {
	b.spec().Mandatory = true
	return b
}

// NotEmpty is Mandatory with a custom error key.
func (b *FieldBuilder) NotEmpty(errorKey string) *FieldBuilder {
	s := b.spec()
	s.Mandatory = true
	s.NotEmpty = errorKey
	return b
}

// MaxLength limits the value length in runes.
func (b *FieldBuilder) MaxLength(n int) *FieldBuilder {
	b.spec().MaxLength = n
	return b
}

// Regex requires the whole value to match pattern on submit.
func (b *FieldBuilder) Regex(pattern, errorKey string) *FieldBuilder {
	b.spec().Regex = &form.RegexSpec{Pattern: pattern, Error: errorKey}
	return b
}

// Normalize names the normaliser applied to changed values.
func (b *FieldBuilder) Normalize(name string) *FieldBuilder {
	b.spec().Normalize = name
	return b
}

// Hidden makes the field start invisible.
func (b *FieldBuilder) Hidden() *FieldBuilder {
	b.spec().Hidden = true
	return b
}

// Disabled makes the field start read-only.
func (b *FieldBuilder) Disabled() *FieldBuilder {
	b.spec().Disabled = true
	return b
}

// JS adds scripts loaded when the field is drawn.
func (b *FieldBuilder) JS(paths ...string) *FieldBuilder {
	s := b.spec()
	s.Assets.JS = append(s.Assets.JS, paths...)
	return b
}

// CSS adds stylesheets loaded when the field is drawn.
func (b *FieldBuilder) CSS(paths ...string) *FieldBuilder {
	s := b.spec()
	s.Assets.CSS = append(s.Assets.CSS, paths...)
	return b
}

// Clears resets the given fields to null whenever this field is emptied.
func (b *FieldBuilder) Clears(ids ...string) *FieldBuilder {
	s := b.spec()
	s.Clears = append(s.Clears, ids...)
	return b
}

// Requires annotates field with errorKey while this field has a value and
// field is empty.
func (b *FieldBuilder) Requires(field, errorKey string) *FieldBuilder {
	b.spec().Requires = &form.RequireSpec{Field: field, Error: errorKey}
	return b
}

// Done returns to the form builder.
func (b *FieldBuilder) Done() *FormBuilder {
	return b.form
}
