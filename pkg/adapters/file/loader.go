package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/form"
)

// Parse decodes every YAML document in data into a form definition.
// Documents are decoded into generic maps first and then into the typed
// definition, so scalars are converted where unambiguous ("max_length: '2'")
// and unknown keys are rejected.
func Parse(data []byte) ([]*form.Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var defs []*form.Definition
	for i := 0; ; i++ {
		var raw map[string]any
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.ConfigurationError{Component: "form file", Reason: fmt.Sprintf("document %d is not valid YAML", i), Err: err}
		}
		if raw == nil {
			continue
		}
		def, err := Decode(raw)
		if err != nil {
			return nil, &domain.ConfigurationError{Component: "form file", Reason: fmt.Sprintf("document %d", i), Err: err}
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Decode converts a generic map, as produced by a YAML or front matter
// parser, into a definition. Unknown keys are rejected.
func Decode(raw map[string]any) (*form.Definition, error) {
	var def form.Definition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &def,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return &def, nil
}

// Files returns every .yaml and .yml file below dir, in lexical path order.
func Files(dir string) ([]string, error) {
	return Find(dir, ".yaml", ".yml")
}

// Find returns every file below dir with one of the extensions, in lexical
// path order.
func Find(dir string, exts ...string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && slices.Contains(exts, filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan forms directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ParseFile parses the definitions of a single file.
func ParseFile(path string) ([]*form.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file: %w", err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ReadDir parses every form file below dir.
func ReadDir(dir string) ([]*form.Definition, error) {
	paths, err := Files(dir)
	if err != nil {
		return nil, err
	}
	var defs []*form.Definition
	for _, p := range paths {
		parsed, err := ParseFile(p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, parsed...)
	}
	return defs, nil
}

// NewLoader reads and validates every definition below dir.
func NewLoader(dir string) (*memory.Loader, error) {
	defs, err := ReadDir(dir)
	if err != nil {
		return nil, err
	}
	return memory.NewLoader(defs...)
}
