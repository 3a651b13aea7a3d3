package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/formwire/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "formwire",
	Short: "formwire serves server-driven forms",
	Long: `formwire keeps the state of every open form on the server and answers each
browser interaction with the minimal list of commands needed to update the page.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "formwire.yaml", "Configuration file")
	rootCmd.PersistentFlags().String("forms", "", "Directory containing the form definitions (overrides config)")
	rootCmd.PersistentFlags().String("messages", "", "Directory containing the message catalogs (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (overrides config)")
}

// loadConfig reads the configuration file and applies the flag overrides.
// The file is optional unless --config was given explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, !cmd.Flags().Changed("config"))
	if err != nil {
		return cfg, err
	}
	if v, _ := cmd.Flags().GetString("forms"); v != "" {
		cfg.Forms = v
	}
	if v, _ := cmd.Flags().GetString("messages"); v != "" {
		cfg.Messages = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, cfg.Validate()
}
