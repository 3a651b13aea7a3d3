package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// FieldKind defines how a field takes part in the event loop.
type FieldKind string

const (
	// FieldText holds a user-editable value and emits change events.
	FieldText FieldKind = "text"
	// FieldSubmit validates the form and runs its submit handler.
	FieldSubmit FieldKind = "submit"
	// FieldCancel aborts the form without touching state.
	FieldCancel FieldKind = "cancel"
	// FieldStatic is display-only content.
	FieldStatic FieldKind = "static"
)

// Valuer is what a dependency rule reads from its trigger.
type Valuer interface {
	FieldID() string
	// Value returns the current value; ok is false for a null value.
	Value() (value string, ok bool)
	IsEmpty() bool
}

// Toggler is what a dependency rule writes on its targets.
type Toggler interface {
	FieldID() string
	Visible() bool
	Enabled() bool
	// SetVisible and SetEnabled report whether the state changed.
	SetVisible(bool) bool
	SetEnabled(bool) bool
}

// Field is a form element bound to one ComponentNode. Every setter that
// changes externally visible state marks the node dirty.
type Field struct {
	LabelKey    string
	ExampleKey  string
	Mandatory   bool
	NotEmptyKey string
	MaxLength   int

	id   string
	kind FieldKind
	node *ComponentNode

	checkPattern string
	checkKey     string
	check        *regexp2.Regexp
	normalize    func(string) string

	value     string
	hasValue  bool
	visible   bool
	enabled   bool
	errorKey  string
	errorArgs []string
}

var (
	_ Valuer  = (*Field)(nil)
	_ Toggler = (*Field)(nil)
)

// NewField creates a visible, enabled field with a null value.
func NewField(id string, kind FieldKind) *Field {
	return &Field{
		id:      id,
		kind:    kind,
		node:    NewComponentNode(id, NodeKindField),
		visible: true,
		enabled: true,
	}
}

func (f *Field) FieldID() string      { return f.id }
func (f *Field) Kind() FieldKind      { return f.kind }
func (f *Field) Node() *ComponentNode { return f.node }
func (f *Field) Visible() bool        { return f.visible }
func (f *Field) Enabled() bool        { return f.enabled }

// SetRegexCheck installs a full-match check reported with errorKey on failure.
func (f *Field) SetRegexCheck(pattern, errorKey string) error {
	re, err := CompileFullMatch(pattern)
	if err != nil {
		return err
	}
	f.checkPattern = pattern
	f.checkKey = errorKey
	f.check = re
	return nil
}

// RegexCheck returns the installed check, if any.
func (f *Field) RegexCheck() (pattern, errorKey string, ok bool) {
	return f.checkPattern, f.checkKey, f.check != nil
}

// SetNormalizer installs a function applied to client input.
func (f *Field) SetNormalizer(fn func(string) string) {
	f.normalize = fn
}

// Value returns the current value; ok is false while the value is null.
func (f *Field) Value() (string, bool) {
	return f.value, f.hasValue
}

// IsEmpty reports a null or empty value.
func (f *Field) IsEmpty() bool {
	return !f.hasValue || f.value == ""
}

// EffectiveValue is the value the form submits: hidden or disabled fields
// contribute null.
func (f *Field) EffectiveValue() (string, bool) {
	if !f.visible || !f.enabled {
		return "", false
	}
	return f.Value()
}

// SetValue changes the value from the server side.
func (f *Field) SetValue(v string) bool {
	if f.hasValue && f.value == v {
		return false
	}
	f.value, f.hasValue = v, true
	f.node.MarkDirty()
	return true
}

// ClearValue resets the value to null.
func (f *Field) ClearValue() bool {
	if !f.hasValue {
		return false
	}
	f.value, f.hasValue = "", false
	f.node.MarkDirty()
	return true
}

// ApplyInput stores a value typed by the user. The client already shows what
// was typed, so the node is only dirtied when normalization rewrote it.
// It reports whether the stored value changed.
func (f *Field) ApplyInput(raw string, present bool) bool {
	if !present {
		return f.ClearValue()
	}
	v := raw
	if f.normalize != nil {
		v = f.normalize(raw)
	}
	changed := !f.hasValue || f.value != v
	f.value, f.hasValue = v, true
	if v != raw {
		f.node.MarkDirty()
	}
	return changed
}

func (f *Field) SetVisible(visible bool) bool {
	if f.visible == visible {
		return false
	}
	f.visible = visible
	f.node.MarkDirty()
	return true
}

func (f *Field) SetEnabled(enabled bool) bool {
	if f.enabled == enabled {
		return false
	}
	f.enabled = enabled
	f.node.MarkDirty()
	return true
}

// Error returns the error annotation shown next to the field.
func (f *Field) Error() (key string, args []string) {
	return f.errorKey, f.errorArgs
}

// HasError reports whether the field carries an error annotation.
func (f *Field) HasError() bool {
	return f.errorKey != ""
}

func (f *Field) SetError(key string, args ...string) bool {
	if f.errorKey == key && equalStrings(f.errorArgs, args) {
		return false
	}
	f.errorKey, f.errorArgs = key, args
	f.node.MarkDirty()
	return true
}

func (f *Field) ClearError() bool {
	if f.errorKey == "" {
		return false
	}
	f.errorKey, f.errorArgs = "", nil
	f.node.MarkDirty()
	return true
}

// Validate checks the field's constraints against its current value.
// Only text fields carry constraints.
func (f *Field) Validate() *ValidationError {
	if f.kind != FieldText {
		return nil
	}
	v, _ := f.Value()
	blank := strings.TrimSpace(v) == ""
	if blank && (f.Mandatory || f.NotEmptyKey != "") {
		key := f.NotEmptyKey
		if key == "" {
			key = KeyMandatory
		}
		return &ValidationError{FieldID: f.id, ErrorKey: key}
	}
	if f.MaxLength > 0 && utf8.RuneCountInString(v) > f.MaxLength {
		return &ValidationError{FieldID: f.id, ErrorKey: KeyTooLong, Args: []string{strconv.Itoa(f.MaxLength)}}
	}
	if f.check != nil && v != "" {
		ok, err := f.check.MatchString(v)
		if err != nil || !ok {
			return &ValidationError{FieldID: f.id, ErrorKey: f.checkKey}
		}
	}
	return nil
}

// FieldSnapshot is the persistent state of a field.
type FieldSnapshot struct {
	Value     string   `json:"value"`
	HasValue  bool     `json:"has_value"`
	Visible   bool     `json:"visible"`
	Enabled   bool     `json:"enabled"`
	ErrorKey  string   `json:"error_key,omitempty"`
	ErrorArgs []string `json:"error_args,omitempty"`
	// Masked is set by stores that do not keep the value. Value then holds
	// a placeholder, never user input.
	Masked bool `json:"masked,omitempty"`
}

// Snapshot captures the field state.
func (f *Field) Snapshot() FieldSnapshot {
	return FieldSnapshot{
		Value:     f.value,
		HasValue:  f.hasValue,
		Visible:   f.visible,
		Enabled:   f.enabled,
		ErrorKey:  f.errorKey,
		ErrorArgs: append([]string(nil), f.errorArgs...),
	}
}

// Restore puts a captured state back without touching dirty marks.
func (f *Field) Restore(s FieldSnapshot) {
	f.value, f.hasValue = s.Value, s.HasValue
	f.visible, f.enabled = s.Visible, s.Enabled
	f.errorKey = s.ErrorKey
	f.errorArgs = append([]string(nil), s.ErrorArgs...)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
