package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/divinegpt/divinegpt/internal/infrastructure/dataset"
)

func newIndexCommand(load ServicesFactory) *cobra.Command {
	var corpusID string

	cmd := &cobra.Command{
		Use:   "index [file]",
		Short: "Embed a CSV or XLSX verse table and index it into a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			services, err := load(ctx)
			if err != nil {
				return err
			}
			corpus, ok := services.Catalog.Lookup(corpusID)
			if !ok {
				return fmt.Errorf("unknown corpus %q", corpusID)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open dataset: %w", err)
			}
			defer f.Close()

			verses, skipped, err := dataset.ParseReader(f, filepath.Base(args[0]), corpus)
			if err != nil {
				return fmt.Errorf("parse dataset: %w", err)
			}
			if len(verses) == 0 {
				return fmt.Errorf("dataset %s has no usable verses (%d rows skipped)", args[0], skipped)
			}
			if err := services.Indexer.Index(ctx, corpus, verses); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d verses into %s (%d rows skipped)\n", len(verses), corpus.ID, skipped)
			return err
		},
	}

	cmd.Flags().StringVarP(&corpusID, "corpus", "c", "", "target corpus id")
	_ = cmd.MarkFlagRequired("corpus")
	return cmd
}
