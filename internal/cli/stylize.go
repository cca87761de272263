package cli

import (
	"fmt"
	"io"
	"strings"

	"nyan-bot/pkg/stylize"

	"github.com/spf13/cobra"
)

// NewStylizeCommand creates the stylize command, which applies the sentence
// marker to text from the arguments or, when none are given, from stdin.
func NewStylizeCommand() *cobra.Command {
	var marker string

	cmd := &cobra.Command{
		Use:   "stylize [text...]",
		Short: "Print text with the marker inserted before sentence punctuation",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				in, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(in)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), stylize.New(marker).Transform(strings.TrimRight(text, "\n")))
			return err
		},
	}

	cmd.Flags().StringVarP(&marker, "marker", "m", stylize.DefaultMarker, "text inserted before each sentence ending")

	return cmd
}
