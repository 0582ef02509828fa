package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jg-phare/opencode-teams/pkg/spawn"
)

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the built-in teammate role templates",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, t := range spawn.ListTemplates() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", t.Name, t.Description)
			}
		},
	}
}
