package ports

import (
	"context"
	"io"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

// AnswerService is the single inbound contract of the guidance core.
type AnswerService interface {
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.AnswerResult, error)
}

// DatasetIngestor is the inbound contract for verse dataset uploads.
type DatasetIngestor interface {
	Upload(ctx context.Context, corpus, filename, mimeType string, body io.Reader) (*domain.Dataset, error)
}

// DatasetReader is the inbound read model for dataset import state.
type DatasetReader interface {
	GetByID(ctx context.Context, id string) (*domain.Dataset, error)
}

// DatasetProcessor is the inbound contract for asynchronous dataset indexing.
type DatasetProcessor interface {
	ProcessByID(ctx context.Context, datasetID string) error
}

// CorpusCatalog lists the corpora known to this deployment, in search order.
type CorpusCatalog interface {
	Corpora() []domain.Corpus
	Lookup(id string) (domain.Corpus, bool)
}
