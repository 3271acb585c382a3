package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

type ProcessDatasetUseCase struct {
	repo    ports.DatasetRepository
	catalog ports.CorpusCatalog
	parser  ports.VerseParser
	indexer *VerseIndexer
}

func NewProcessDatasetUseCase(
	repo ports.DatasetRepository,
	catalog ports.CorpusCatalog,
	parser ports.VerseParser,
	embedder ports.Embedder,
	indexer ports.PassageIndexer,
) *ProcessDatasetUseCase {
	return &ProcessDatasetUseCase{
		repo:    repo,
		catalog: catalog,
		parser:  parser,
		indexer: NewVerseIndexer(embedder, indexer),
	}
}

func (uc *ProcessDatasetUseCase) ProcessByID(ctx context.Context, datasetID string) error {
	if err := uc.markStatus(ctx, datasetID, domain.DatasetStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	verseCount, skipped, err := uc.processPipeline(ctx, datasetID)
	if err != nil {
		if failErr := uc.markFailed(ctx, datasetID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveCounts(ctx, datasetID, verseCount, skipped); err != nil {
		if failErr := uc.markFailed(ctx, datasetID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save verse counts: %w", err)
	}

	if err := uc.markStatus(ctx, datasetID, domain.DatasetStatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDatasetUseCase) processPipeline(ctx context.Context, datasetID string) (int, int, error) {
	dataset, err := uc.repo.GetByID(ctx, datasetID)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch dataset by id: %w", err)
	}

	corpus, ok := uc.catalog.Lookup(dataset.Corpus)
	if !ok {
		return 0, 0, domain.WrapError(domain.ErrCorpusNotFound, "process dataset", fmt.Errorf("corpus %q", dataset.Corpus))
	}

	verses, skipped, err := uc.parser.Parse(ctx, dataset, corpus)
	if err != nil {
		return 0, 0, fmt.Errorf("parse dataset: %w", err)
	}
	if len(verses) == 0 {
		return 0, skipped, domain.WrapError(domain.ErrInvalidInput, "parse dataset", errors.New("dataset has no usable verses"))
	}

	if err := uc.indexer.Index(ctx, corpus, verses); err != nil {
		return 0, skipped, err
	}
	return len(verses), skipped, nil
}

func (uc *ProcessDatasetUseCase) markStatus(ctx context.Context, datasetID string, status domain.DatasetStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, datasetID, status, errMessage)
}

func (uc *ProcessDatasetUseCase) markFailed(ctx context.Context, datasetID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, datasetID, domain.DatasetStatusFailed, processErr.Error())
}
