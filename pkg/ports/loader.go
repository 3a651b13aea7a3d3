package ports

import "github.com/aretw0/formwire/pkg/form"

// DefinitionLoader defines how the kernel retrieves form definitions.
// Definitions are read once at startup and shared by every session.
type DefinitionLoader interface {
	// Load returns the definition with the given form ID, or an error
	// wrapping domain.ErrFormNotFound.
	Load(id string) (*form.Definition, error)

	// List returns the IDs of all available forms, sorted.
	List() ([]string, error)
}
