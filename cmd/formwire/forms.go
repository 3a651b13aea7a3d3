package main

import (
	"context"
	"fmt"

	"github.com/aretw0/formwire/pkg/adapters/file"
	loamadapter "github.com/aretw0/formwire/pkg/adapters/loam"
	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/form"
)

// readForms loads the YAML form files below dir together with the Markdown
// form documents, if there are any.
func readForms(ctx context.Context, dir string) (*memory.Loader, error) {
	defs, err := file.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries, err := markdownForms(ctx, dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Err != nil {
			return nil, fmt.Errorf("%s: %w", e.Path, e.Err)
		}
		defs = append(defs, e.Definition)
	}
	return memory.NewLoader(defs...)
}

// markdownForms opens a loam repository on dir only when it holds Markdown
// files.
func markdownForms(ctx context.Context, dir string) ([]loamadapter.Entry, error) {
	paths, err := file.Find(dir, ".md")
	if err != nil || len(paths) == 0 {
		return nil, err
	}
	l, err := loamadapter.Open(dir)
	if err != nil {
		return nil, err
	}
	return l.Entries(ctx)
}

func definitionIDs(defs []*form.Definition) []string {
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	return ids
}
