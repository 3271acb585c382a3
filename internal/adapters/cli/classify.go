package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divinegpt/divinegpt/internal/core/usecase"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text]",
		Short: "Print whether a message is conversational or needs retrieval",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "retrieval"
			if usecase.IsConversational(strings.Join(args, " ")) {
				path = "conversational"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}
