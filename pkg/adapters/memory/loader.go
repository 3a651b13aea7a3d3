package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
)

// Loader implements ports.DefinitionLoader over definitions built in code.
type Loader struct {
	defs map[string]*form.Definition
}

// NewLoader validates the definitions and indexes them by id. It fails on
// the first invalid or duplicate definition.
func NewLoader(defs ...*form.Definition) (*Loader, error) {
	l := &Loader{defs: make(map[string]*form.Definition, len(defs))}
	for _, d := range defs {
		if d == nil {
			return nil, fmt.Errorf("nil form definition")
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := l.defs[d.ID]; dup {
			return nil, &domain.ConfigurationError{Component: "loader", Reason: fmt.Sprintf("duplicate form %q", d.ID)}
		}
		l.defs[d.ID] = d
	}
	return l, nil
}

// Load returns the shared definition. Callers must not modify it.
func (l *Loader) Load(id string) (*form.Definition, error) {
	d, ok := l.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFormNotFound, id)
	}
	return d, nil
}

// List returns all form IDs.
func (l *Loader) List() ([]string, error) {
	keys := make([]string, 0, len(l.defs))
	for k := range l.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
