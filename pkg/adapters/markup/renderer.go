package markup

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/formwire/pkg/ports"
)

// Renderer produces content-addressed markup tokens: the token changes
// exactly when what the node would render changes. It stands in for an HTML
// renderer in tests, the CLI and agent sessions.
type Renderer struct {
	prefix string
}

var _ ports.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer whose tokens start with prefix ("m" if empty).
func NewRenderer(prefix string) *Renderer {
	if prefix == "" {
		prefix = "m"
	}
	return &Renderer{prefix: prefix}
}

// Render hashes the node identity, its child order, the locale, its error
// annotation and the state of every field below it.
func (r *Renderer) Render(ctx context.Context, req ports.RenderRequest) (string, error) {
	if req.Node == nil {
		return "", fmt.Errorf("render: nil node")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d := xxhash.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = d.WriteString(p)
			_, _ = d.Write([]byte{0})
		}
	}

	write(req.FormID, req.Node.ID, req.Node.Kind, req.Locale, req.Error)
	for _, c := range req.Node.Children() {
		write("child", c.ID)
	}

	ids := make([]string, 0, len(req.Fields))
	for id := range req.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		f := req.Fields[id]
		write(id, f.Value,
			strconv.FormatBool(f.HasValue),
			strconv.FormatBool(f.Visible),
			strconv.FormatBool(f.Enabled),
			f.ErrorKey,
		)
		write(f.ErrorArgs...)
	}

	return fmt.Sprintf("%s-%s-%016x", r.prefix, req.Node.ID, d.Sum64()), nil
}
