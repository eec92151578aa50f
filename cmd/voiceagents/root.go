package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "voiceagents",
		Short:         "Voice agent relay server and admin CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAgentsCommand())
	return rootCmd
}
