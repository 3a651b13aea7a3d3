package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/formwire/internal/cli"
)

var fillCmd = &cobra.Command{
	Use:   "fill <form-id>",
	Short: "Fill in a form from the terminal",
	Long: `Opens a session and prompts for each visible field, sending the same events a
browser would. Useful to try out dependency rules and submit handlers.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		locale, _ := cmd.Flags().GetString("locale")
		if locale == "" {
			locale = cfg.Locale
		}

		url, err := cli.NewFiller(a.kernel, os.Stdin, cmd.OutOrStdout(), locale).Run(cmd.Context(), args[0])
		if errors.Is(err, cli.ErrCancelled) {
			fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "submitted, redirect to %s\n", url)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fillCmd)
	fillCmd.Flags().String("locale", "", "Locale of the prompts (defaults to the configured locale)")
}
