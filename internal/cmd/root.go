package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// NewRoot constructs the root logmule command with all subcommands
// registered.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "logmule",
		Short:        "Store-and-forward log shipping agent",
		Long:         "logmule ships log events from hosts with intermittent connectivity:\nimmediate sends on a good link, a durable local buffer otherwise, and\nbulk flushes when the link comes back.",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "logmule.yaml", "path to config file")

	root.AddCommand(newRunCommand())
	root.AddCommand(newFlushCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the logmule version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("logmule", version)
		},
	}
}
