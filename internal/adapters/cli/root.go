// Package cli implements divinectl, the operator command line for the
// guidance core.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/divinegpt/divinegpt/internal/core/ports"
	"github.com/divinegpt/divinegpt/internal/core/usecase"
)

// Services is what the commands need from a wired guidance core.
type Services struct {
	Answers   ports.AnswerService
	Retriever *usecase.Retriever
	Prompts   *usecase.PromptBuilder
	Catalog   ports.CorpusCatalog
	Indexer   *usecase.VerseIndexer
}

// ServicesFactory builds Services on first use, so commands that need no
// backend (classify) never connect to one.
type ServicesFactory func(ctx context.Context) (*Services, error)

var errNoServices = errors.New("services not configured")

func NewRootCommand(factory ServicesFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "divinectl",
		Short:         "Operate the DivineGPT guidance core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	load := func(ctx context.Context) (*Services, error) {
		if factory == nil {
			return nil, errNoServices
		}
		services, err := factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("init services: %w", err)
		}
		return services, nil
	}

	root.AddCommand(
		newAskCommand(load),
		newClassifyCommand(),
		newIndexCommand(load),
		newPromptCommand(load),
	)
	return root
}

func writeJSON(w io.Writer, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
