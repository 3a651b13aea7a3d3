package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/formwire/pkg/domain"
)

// Kind enumerates the partial-update instructions understood by the client.
type Kind string

const (
	KindRedrawSubtree    Kind = "REDRAW_SUBTREE"
	KindParentRedirect   Kind = "REPLACE_ROOT_VIA_REDIRECT"
	KindPrepareClient    Kind = "PREPARE_CLIENT"
	KindResolveAssets    Kind = "RESOLVE_ASSET_DEPENDENCIES"
	KindExternalRedirect Kind = "EXTERNAL_REDIRECT"
)

// IsRedirect reports whether the kind ends the response.
func (k Kind) IsRedirect() bool {
	return k == KindParentRedirect || k == KindExternalRedirect
}

// Command is one serialized instruction. The payload is encoded when the
// command is built, so a Command that exists is always valid on the wire.
// Use the New* constructors; the zero value is rejected by Dispatch.
type Command struct {
	kind    Kind
	payload json.RawMessage
}

// RedrawPayload replaces the markup of one node. Error carries the translated
// annotation shown next to a field.
type RedrawPayload struct {
	NodeID      string         `json:"nodeId"`
	MarkupToken string         `json:"markupToken"`
	Error       string         `json:"error,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// RedirectPayload replaces the whole page.
type RedirectPayload struct {
	URL string `json:"url"`
}

// ExternalRedirectPayload sends the browser to a resource outside the application.
type ExternalRedirectPayload struct {
	URL      string `json:"url"`
	External bool   `json:"external"`
}

// PrepareClientPayload resets the client's unsaved-changes guard and updates
// its bookmarkable location.
type PrepareClientPayload struct {
	BusinessPath string `json:"businessPath"`
}

// AssetsPayload lists scripts and stylesheets to load before redraws run.
type AssetsPayload struct {
	JS  []string `json:"js"`
	CSS []string `json:"css"`
}

func newCommand(kind Kind, payload any) (Command, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Command{}, &domain.ConfigurationError{
			Component: "command",
			Reason:    fmt.Sprintf("%s payload is not serializable", kind),
			Err:       err,
		}
	}
	return Command{kind: kind, payload: raw}, nil
}

// NewRedraw builds a REDRAW_SUBTREE command. The node id is required.
func NewRedraw(p RedrawPayload) (Command, error) {
	if p.NodeID == "" {
		return Command{}, &domain.ConfigurationError{Component: "command", Reason: "redraw without node id"}
	}
	return newCommand(KindRedrawSubtree, p)
}

// NewParentRedirect builds a REPLACE_ROOT_VIA_REDIRECT command. An empty url
// is sent as "" rather than omitted.
func NewParentRedirect(url string) (Command, error) {
	return newCommand(KindParentRedirect, RedirectPayload{URL: url})
}

// NewExternalRedirect builds an EXTERNAL_REDIRECT command.
func NewExternalRedirect(url string) (Command, error) {
	return newCommand(KindExternalRedirect, ExternalRedirectPayload{URL: url, External: true})
}

// NewPrepareClient builds a PREPARE_CLIENT command for the given business path.
func NewPrepareClient(businessPath string) (Command, error) {
	return newCommand(KindPrepareClient, PrepareClientPayload{BusinessPath: businessPath})
}

// NewResolveAssets builds a RESOLVE_ASSET_DEPENDENCIES command. Nil lists are
// sent as empty arrays.
func NewResolveAssets(a domain.Assets) (Command, error) {
	p := AssetsPayload{JS: a.JS, CSS: a.CSS}
	if p.JS == nil {
		p.JS = []string{}
	}
	if p.CSS == nil {
		p.CSS = []string{}
	}
	return newCommand(KindResolveAssets, p)
}

func (c Command) Kind() Kind { return c.kind }

// Payload returns the encoded payload.
func (c Command) Payload() json.RawMessage { return c.payload }

// IsZero reports a command that was not built by a constructor.
func (c Command) IsZero() bool { return c.kind == "" || len(c.payload) == 0 }

type wireCommand struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func (c Command) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return nil, fmt.Errorf("zero command")
	}
	return json.Marshal(wireCommand{Kind: c.kind, Payload: c.payload})
}

// UnmarshalJSON decodes one wire object, for clients and tests.
func (c *Command) UnmarshalJSON(data []byte) error {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.kind, c.payload = w.Kind, w.Payload
	return nil
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s", c.kind, c.payload)
}
