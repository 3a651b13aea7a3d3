package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/formwire"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of formwire",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "formwire version %s\n", strings.TrimSpace(formwire.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
