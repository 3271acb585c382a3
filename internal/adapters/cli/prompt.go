package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/usecase"
)

func newPromptCommand(load ServicesFactory) *cobra.Command {
	var (
		userType string
		corpus   string
		summary  string
		topK     int
	)

	cmd := &cobra.Command{
		Use:   "prompt [query]",
		Short: "Render the prompt that would be sent to the generator, without generating",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			services, err := load(ctx)
			if err != nil {
				return err
			}

			in := usecase.PromptInput{
				Query:           strings.Join(args, " "),
				UserType:        string(domain.NormalizeUserType(userType)),
				PreviousSummary: summary,
			}
			var prompt string
			if usecase.IsConversational(in.Query) {
				prompt = services.Prompts.BuildSimplePrompt(in)
			} else {
				passages, err := services.Retriever.Retrieve(ctx, in.Query, domain.NormalizeCorpusSelector(corpus), topK)
				if err != nil {
					return fmt.Errorf("retrieve: %w", err)
				}
				in.Passages = passages
				prompt = services.Prompts.BuildRAGPrompt(in)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return err
		},
	}

	cmd.Flags().StringVarP(&userType, "user-type", "u", string(domain.UserTypeNeutral), "tone: genz, mature or neutral")
	cmd.Flags().StringVarP(&corpus, "corpus", "c", string(domain.CorpusGita), "corpus to search, or all")
	cmd.Flags().StringVar(&summary, "summary", "", "new_summary from the previous turn")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "passages per corpus")
	return cmd
}
