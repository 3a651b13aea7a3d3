package middleware

import (
	"context"
	"fmt"
	"maps"

	"github.com/dlclark/regexp2"

	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/ports"
)

// Mask replaces the value of a masked field in the store.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp2.Regexp
}

// NewPIIMiddleware creates a middleware that masks the stored values of
// fields whose ID matches one of the patterns. The stored field is flagged
// as masked, and a session rebuilt from it has a null value there, so only
// use it for fields the user can enter again.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp2.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp2.Compile(p, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("pii pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	// The engine keeps using state after the save, so mask a copy.
	cloned := *state
	cloned.Form.Fields = maps.Clone(state.Form.Fields)
	for id, f := range cloned.Form.Fields {
		if f.HasValue && f.Value != "" && m.sensitive(id) {
			f.Value, f.Masked = Mask, true
			cloned.Form.Fields[id] = f
		}
	}
	return m.next.Save(ctx, sessionID, &cloned)
}

func (m *piiMiddleware) sensitive(fieldID string) bool {
	for _, p := range m.patterns {
		if ok, _ := p.MatchString(fieldID); ok {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
