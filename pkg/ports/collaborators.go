package ports

import (
	"context"

	"github.com/aretw0/formwire/pkg/domain"
)

// RenderRequest describes one node whose markup must be produced.
type RenderRequest struct {
	SessionID string
	FormID    string
	Locale    string
	Node      *domain.ComponentNode
	// Fields holds the state of every field in the node's subtree.
	Fields map[string]domain.FieldSnapshot
	// Error is the translated annotation of the node, if any.
	Error string
}

// Renderer produces the markup of a node and returns an opaque token the
// client uses to fetch or identify it.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (markupToken string, err error)
}

// RedirectResolver turns a business path such as "[RepositoryEntry:42]" into
// the URL the browser is sent to.
type RedirectResolver interface {
	Resolve(ctx context.Context, businessPath string) (url string, err error)
}

// Translator resolves message keys to user-facing text. Unknown keys resolve
// to themselves.
type Translator interface {
	Translate(locale, key string, args ...string) string
}

// SubmitRequest carries the effective values of a valid form.
type SubmitRequest struct {
	SessionID string
	FormID    string
	Locale    string
	Values    map[string]string
}

// SubmitResult tells the kernel where to go after a submit.
type SubmitResult struct {
	// BusinessPath is resolved to the redirect target.
	BusinessPath string
	// ExternalURL, when set, sends the browser outside the application instead.
	ExternalURL string
	// ErrorKey reports a business failure; the form stays open and shows it.
	ErrorKey  string
	ErrorArgs []string
}

// SubmitHandler is the business collaborator behind a form. A returned error
// is treated as a transient failure: the session is rolled back and the
// submit may be retried.
type SubmitHandler interface {
	Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error)
}

// SubmitHandlerFunc adapts a function to SubmitHandler.
type SubmitHandlerFunc func(ctx context.Context, req SubmitRequest) (SubmitResult, error)

func (f SubmitHandlerFunc) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	return f(ctx, req)
}

// FieldValues is the field-value source of a form instance.
type FieldValues interface {
	GetValue(fieldID string) (string, bool)
	SetValue(fieldID, value string) error
}
