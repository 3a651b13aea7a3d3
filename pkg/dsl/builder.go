package dsl

import (
	"fmt"

	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/form"
)

// Builder collects form definitions.
type Builder struct {
	order []string
	forms map[string]*FormBuilder
}

// New creates a new builder.
func New() *Builder {
	return &Builder{
		forms: make(map[string]*FormBuilder),
	}
}

// Form starts a form definition.
// If the form already exists, it returns the existing builder.
func (b *Builder) Form(id string) *FormBuilder {
	if fb, ok := b.forms[id]; ok {
		return fb
	}
	fb := &FormBuilder{def: &form.Definition{ID: id}}
	b.forms[id] = fb
	b.order = append(b.order, id)
	return fb
}

// Build validates every form and compiles them into a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	defs := make([]*form.Definition, 0, len(b.order))
	for _, id := range b.order {
		defs = append(defs, b.forms[id].Definition())
	}

	loader, err := memory.NewLoader(defs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}
