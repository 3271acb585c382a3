package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

var supportedDatasetExtensions = map[string]struct{}{
	".csv":  {},
	".xlsx": {},
}

type IngestDatasetUseCase struct {
	repo    ports.DatasetRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	catalog ports.CorpusCatalog
}

func NewIngestDatasetUseCase(
	repo ports.DatasetRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	catalog ports.CorpusCatalog,
) *IngestDatasetUseCase {
	return &IngestDatasetUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		catalog: catalog,
	}
}

func (uc *IngestDatasetUseCase) Upload(
	ctx context.Context,
	corpusID, filename, mimeType string,
	body io.Reader,
) (*domain.Dataset, error) {
	corpus, ok := uc.catalog.Lookup(strings.ToLower(strings.TrimSpace(corpusID)))
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload dataset", fmt.Errorf("unknown corpus %q", corpusID))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := supportedDatasetExtensions[ext]; !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedInput, "upload dataset", errors.New("dataset must be .csv or .xlsx"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	dataset := &domain.Dataset{
		ID:          id,
		Corpus:      corpus.ID,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.DatasetStatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, dataset); err != nil {
		return nil, fmt.Errorf("create dataset metadata: %w", err)
	}

	if err := uc.queue.PublishDatasetUploaded(ctx, dataset.ID); err != nil {
		return nil, fmt.Errorf("publish dataset event: %w", err)
	}

	return dataset, nil
}

func (uc *IngestDatasetUseCase) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	return uc.repo.GetByID(ctx, id)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "dataset.csv"
	}
	return base
}
