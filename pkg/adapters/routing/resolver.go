package routing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/ports"
)

var segment = regexp2.MustCompile(`\[([A-Za-z][A-Za-z0-9_.]*):([^\[\]]*)\]`, regexp2.None)

// Resolver maps business paths such as "[RepositoryEntry:42][CourseNode:7]"
// onto "<base>/url/RepositoryEntry/42/CourseNode/7".
type Resolver struct {
	base string
}

var _ ports.RedirectResolver = (*Resolver)(nil)

// NewResolver creates a resolver rooted at baseURL, which must be absolute
// or empty (relative redirects).
func NewResolver(baseURL string) (*Resolver, error) {
	base := strings.TrimSuffix(baseURL, "/")
	if base != "" {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid base url %q", baseURL)
		}
	}
	return &Resolver{base: base}, nil
}

// Segment is one "[Type:id]" element of a business path.
type Segment struct {
	Type string
	ID   string
}

// Parse splits a business path into its segments. The path must consist of
// segments only.
func Parse(businessPath string) ([]Segment, error) {
	var out []Segment
	pos := 0 // match positions count runes
	m, err := segment.FindStringMatch(businessPath)
	for err == nil && m != nil && m.Index == pos {
		g := m.Groups()
		out = append(out, Segment{Type: g[1].String(), ID: g[2].String()})
		pos = m.Index + m.Length
		m, err = segment.FindNextMatch(m)
	}
	if err != nil || pos != utf8.RuneCountInString(businessPath) {
		return nil, &domain.ConfigurationError{
			Component: "routing",
			Reason:    fmt.Sprintf("malformed business path %q", businessPath),
			Err:       err,
		}
	}
	return out, nil
}

// Resolve returns the redirect URL of a business path. The empty path
// resolves to the application root.
func (r *Resolver) Resolve(ctx context.Context, businessPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	segs, err := Parse(businessPath)
	if err != nil {
		return "", err
	}
	if len(segs) == 0 {
		return r.base + "/", nil
	}
	var b strings.Builder
	b.WriteString(r.base)
	b.WriteString("/url")
	for _, s := range segs {
		b.WriteString("/")
		b.WriteString(url.PathEscape(s.Type))
		b.WriteString("/")
		b.WriteString(url.PathEscape(s.ID))
	}
	return b.String(), nil
}
