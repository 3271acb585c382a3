package ports

import (
	"context"
	"io"
	"time"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

// Embedder builds vectors for query text and dataset verses.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// PassageStore performs similarity search inside one corpus. Results are ordered
// by descending score. A missing corpus is reported as domain.ErrCorpusNotFound.
type PassageStore interface {
	Search(ctx context.Context, queryVector []float32, corpus domain.Corpus, limit int) ([]domain.Passage, error)
}

// PassageIndexer writes embedded verses into a corpus.
type PassageIndexer interface {
	IndexVerses(ctx context.Context, corpus domain.Corpus, verses []domain.Verse, vectors [][]float32) error
}

// Generator turns a prompt into raw, untrusted text.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// DatasetRepository persists dataset import state.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *domain.Dataset) error
	GetByID(ctx context.Context, id string) (*domain.Dataset, error)
	UpdateStatus(ctx context.Context, id string, status domain.DatasetStatus, errMessage string) error
	SaveCounts(ctx context.Context, id string, verseCount, skippedCount int) error
}

// ObjectStorage stores uploaded dataset files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes dataset ingestion events.
type MessageQueue interface {
	PublishDatasetUploaded(ctx context.Context, datasetID string) error
	SubscribeDatasetUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// VerseParser turns a stored dataset file into verse rows.
type VerseParser interface {
	Parse(ctx context.Context, dataset *domain.Dataset, corpus domain.Corpus) ([]domain.Verse, int, error)
}

// AnswerObservation describes one finished Answer call for metrics.
type AnswerObservation struct {
	Path          string
	Corpus        string
	RecoveryStage string
	Fallback      bool
	Passages      int
	Duration      time.Duration
}

// AnswerObserver receives answer outcomes. Implementations must not block.
type AnswerObserver interface {
	ObserveAnswer(obs AnswerObservation)
}
