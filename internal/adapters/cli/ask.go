package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

func newAskCommand(load ServicesFactory) *cobra.Command {
	var (
		userType string
		corpus   string
		summary  string
		topK     int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask for guidance and print the structured answer",
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

			result, err := services.Answers.Answer(ctx, domain.AnswerRequest{
				Query:           strings.Join(args, " "),
				UserType:        userType,
				Corpus:          corpus,
				PreviousSummary: summary,
				TopK:            topK,
			})
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, result)
			}

			answer := result.Answer
			if answer.Shloka != "" {
				fmt.Fprintf(out, "%s\n\n", answer.Shloka)
			}
			if answer.Meaning != "" {
				fmt.Fprintf(out, "Meaning: %s\n", answer.Meaning)
			}
			if answer.ShlokaSummary != "" {
				fmt.Fprintf(out, "Summary: %s\n", answer.ShlokaSummary)
			}
			fmt.Fprintf(out, "\n%s\n\n", answer.Response)
			fmt.Fprintf(out, "Reflect: %s\n", answer.Reflection)
			fmt.Fprintf(out, "Emotion: %s\n", answer.Emotion)
			if answer.NewSummary != "" {
				fmt.Fprintf(out, "Next summary: %s\n", answer.NewSummary)
			}
			for _, passage := range result.Passages {
				fmt.Fprintf(out, "  [%s %s] %.3f\n", passage.Corpus, passage.Locator, passage.Score)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userType, "user-type", "u", string(domain.UserTypeNeutral), "tone: genz, mature or neutral")
	cmd.Flags().StringVarP(&corpus, "corpus", "c", string(domain.CorpusGita), "corpus to search, or all")
	cmd.Flags().StringVar(&summary, "summary", "", "new_summary from the previous turn")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "passages per corpus")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
