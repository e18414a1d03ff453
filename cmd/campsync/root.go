package main

import (
	"github.com/spf13/cobra"
)

var version = "0.3.0"

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "campsync",
		Short:         "Campaign workflow synchronization console",
		Long:          "campsync keeps a live view of the five-stage campaign pipeline by folding the workflow backend's event stream into a consistent snapshot.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (yaml)")

	root.AddCommand(newRunCommand(&configPath))
	root.AddCommand(newMockCommand())
	return root
}
