package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/formwire/internal/presentation/tui"
)

var describeCmd = &cobra.Command{
	Use:   "describe <form-id>",
	Short: "Print a readable summary of a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		loader, err := readForms(cmd.Context(), cfg.Forms)
		if err != nil {
			return err
		}
		def, err := loader.Load(args[0])
		if err != nil {
			return err
		}
		bundle, err := loadBundle(cfg)
		if err != nil {
			return err
		}
		locale, _ := cmd.Flags().GetString("locale")
		if locale == "" {
			locale = cfg.Locale
		}
		return tui.WriteMarkdown(cmd.OutOrStdout(), tui.Describe(def, bundle, locale))
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().String("locale", "", "Locale of the labels (defaults to the configured locale)")
}
