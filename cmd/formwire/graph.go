package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/formwire/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <form-id>",
	Short: "Export the dependency rules of a form as a diagram",
	Long:  `Outputs a Mermaid diagram (graph LR) with one node per field and one edge per dependency rule.`,
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
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
