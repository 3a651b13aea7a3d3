// Package loam reads form definitions written as Markdown documents: the
// front matter holds the definition and the body becomes its description.
package loam

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/formwire/pkg/adapters/file"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
)

// Metadata is the decoded front matter of a document.
type Metadata = map[string]any

// Loader adapts a Loam repository to form definitions.
type Loader struct {
	Repo *loam.TypedRepository[Metadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[Metadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only repository on dir.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
		loam.WithVersioning(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[Metadata](repo)), nil
}

// Entry is one Markdown document and the definition decoded from it.
type Entry struct {
	Path       string
	Definition *form.Definition
	Err        error
}

// Entries decodes every Markdown document of the repository, sorted by
// path. Documents without front matter are not forms and are skipped.
func (l *Loader) Entries(ctx context.Context) ([]Entry, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		if !isMarkdown(doc.ID) || len(doc.Data) == 0 {
			continue
		}
		def, err := decode(doc.ID, doc.Data, doc.Content)
		entries = append(entries, Entry{Path: filepath.ToSlash(doc.ID), Definition: def, Err: err})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Definitions returns the definition of every form document. Any document
// that fails to decode fails the whole call.
func (l *Loader) Definitions(ctx context.Context) ([]*form.Definition, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}
	defs := make([]*form.Definition, 0, len(entries))
	var errs []error
	for _, e := range entries {
		if e.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Path, e.Err))
			continue
		}
		defs = append(defs, e.Definition)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return defs, nil
}

func decode(docID string, meta Metadata, body string) (*form.Definition, error) {
	def, err := file.Decode(meta)
	if err != nil {
		return nil, &domain.ConfigurationError{Component: "form document", Reason: "invalid front matter", Err: err}
	}
	if def.ID == "" {
		def.ID = trimExtension(docID)
	}
	if def.Description == "" {
		def.Description = strings.TrimSpace(body)
	}
	return def, nil
}

// isMarkdown reports whether a document ID names a Markdown file. IDs
// without an extension belong to loam's default format, Markdown.
func isMarkdown(id string) bool {
	ext := filepath.Ext(id)
	return ext == "" || strings.EqualFold(ext, ".md")
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}
