package session

import (
	"fmt"
	"maps"
	"time"

	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
)

// PageNodeID is the root of every session tree.
const PageNodeID = "page"

// Session is the UI state owned by one logged-in user: exactly one component
// tree rooted at a page node holding one form. It is never shared between
// sessions and is only touched while its Manager lock is held.
type Session struct {
	ID     string
	Locale string

	form     *form.Form
	page     *domain.ComponentNode
	revision int64
	lastUsed time.Time
}

// New opens a fresh instance of the definition. The whole page is dirty, so
// the first cycle renders it completely.
func New(id string, def *form.Definition, locale string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	f, err := def.Instantiate()
	if err != nil {
		return nil, err
	}
	page := domain.NewComponentNode(PageNodeID, domain.NodeKindPage)
	page.Add(f.Node())
	return &Session{
		ID:     id,
		Locale: locale,
		form:   f,
		page:   page,
	}, nil
}

// Rehydrate rebuilds a session from persisted state. The persisted state is
// what the client last received, so the tree starts clean.
func Rehydrate(def *form.Definition, state *domain.SessionState) (*Session, error) {
	if def.ID != state.FormID {
		return nil, fmt.Errorf("rehydrate %s: form %q does not match %q", state.ID, def.ID, state.FormID)
	}
	s, err := New(state.ID, def, state.Locale)
	if err != nil {
		return nil, err
	}
	if err := s.form.Restore(unmasked(state.Form)); err != nil {
		return nil, err
	}
	domain.CollectDirty(s.page)
	s.revision = state.Revision
	s.lastUsed = state.UpdatedAt
	return s, nil
}

// unmasked turns the fields a store masked back into null values.
func unmasked(snap domain.FormSnapshot) domain.FormSnapshot {
	out := snap
	out.Fields = maps.Clone(snap.Fields)
	for id, fs := range out.Fields {
		if fs.Masked {
			fs.Value, fs.HasValue, fs.Masked = "", false, false
			out.Fields[id] = fs
		}
	}
	return out
}

func (s *Session) Form() *form.Form           { return s.form }
func (s *Session) Root() *domain.ComponentNode { return s.page }
func (s *Session) Revision() int64             { return s.revision }

// BusinessPath is the bookmarkable location of the session's form.
func (s *Session) BusinessPath() string {
	return s.form.Definition().BusinessPath
}

// State captures what a SessionStore persists.
func (s *Session) State() *domain.SessionState {
	return &domain.SessionState{
		ID:           s.ID,
		FormID:       s.form.ID(),
		Locale:       s.Locale,
		BusinessPath: s.BusinessPath(),
		Form:         s.form.Snapshot(),
		Revision:     s.revision,
		UpdatedAt:    s.lastUsed,
	}
}

// Field looks up a field of the session's form by id.
func (s *Session) Field(id string) (*domain.Field, error) {
	f, ok := s.form.Field(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFieldNotFound, id)
	}
	return f, nil
}

// Checkpoint captures the session so a failed cycle can be undone.
type Checkpoint struct {
	form  domain.FormSnapshot
	marks domain.Marks
}

// Checkpoint records the form state and the dirty marks of the tree.
func (s *Session) Checkpoint() Checkpoint {
	return Checkpoint{form: s.form.Snapshot(), marks: domain.SaveMarks(s.page)}
}

// Rollback restores a checkpoint taken on this session.
func (s *Session) Rollback(c Checkpoint) error {
	if err := s.form.Restore(c.form); err != nil {
		return err
	}
	c.marks.Restore()
	return nil
}
