// Package cli holds the nyan-bot command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command. Running it bare starts the bot.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nyan-bot",
		Short:         "Discord chat bot that answers in the nyan style",
		Long:          "Answers slash command questions with an LLM, one request at a time, optionally ending every sentence with a marker.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewStylizeCommand())

	return cmd
}
