package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/formwire/internal/presentation/tui"
	"github.com/aretw0/formwire/pkg/adapters/file"
	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/form"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the form definitions for consistency",
	Long: `Parses every form file and Markdown form document and reports unknown
keys, bad patterns, rules pointing at missing fields, rule cycles and
duplicate form IDs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir := cfg.Forms
		if len(args) > 0 {
			dir = args[0]
		}
		checks, err := validateDir(dir)
		if err != nil {
			return err
		}
		if tui.PrintReport(cmd.OutOrStdout(), checks) > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// validateDir checks every file on its own, then the set as a whole for
// duplicate IDs.
func validateDir(dir string) ([]tui.Check, error) {
	paths, err := file.Files(dir)
	if err != nil {
		return nil, err
	}
	entries, err := markdownForms(context.Background(), dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 && len(entries) == 0 {
		return nil, fmt.Errorf("no form files found in %s", dir)
	}

	checks := make([]tui.Check, 0, len(paths)+len(entries))
	var all []*form.Definition
	for _, p := range paths {
		c := tui.Check{Path: p}
		defs, err := file.ParseFile(p)
		if err == nil {
			err = validateDefinitions(defs)
		}
		if err != nil {
			c.Err = err
		} else {
			c.Forms = definitionIDs(defs)
			all = append(all, defs...)
		}
		checks = append(checks, c)
	}
	for _, e := range entries {
		c := tui.Check{Path: filepath.Join(dir, filepath.FromSlash(e.Path)), Err: e.Err}
		if c.Err == nil {
			c.Err = validateDefinitions([]*form.Definition{e.Definition})
		}
		if c.Err == nil {
			c.Forms = []string{e.Definition.ID}
			all = append(all, e.Definition)
		}
		checks = append(checks, c)
	}

	if _, err := memory.NewLoader(all...); err != nil {
		checks = append(checks, tui.Check{Path: dir, Err: err})
	}
	return checks, nil
}

func validateDefinitions(defs []*form.Definition) error {
	var errs []error
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.ID, err))
		}
	}
	return errors.Join(errs...)
}
