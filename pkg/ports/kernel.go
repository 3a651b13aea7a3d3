package ports

import (
	"context"

	"github.com/aretw0/formwire/pkg/domain"
)

// Kernel is the surface the transport adapters (HTTP, MCP) drive. It is
// implemented by formwire.Kernel.
type Kernel interface {
	// Open starts a session on a form and returns its ID with the commands
	// for the initial render.
	Open(ctx context.Context, formID, locale string) (sessionID string, payload []byte, err error)

	// SubmitEvent processes one interaction with a field. A nil newValue is
	// a null value.
	SubmitEvent(ctx context.Context, sessionID, fieldID string, newValue *string) ([]byte, error)

	// Snapshot returns the field states of a session without changing it.
	Snapshot(ctx context.Context, sessionID string) (domain.FormSnapshot, error)

	// Close tears the session down.
	Close(ctx context.Context, sessionID string) error

	// Forms lists the available form IDs.
	Forms() ([]string, error)

	// Translate resolves a message key for a locale.
	Translate(locale, key string, args ...string) string
}
