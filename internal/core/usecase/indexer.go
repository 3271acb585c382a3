package usecase

import (
	"context"
	"fmt"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

const defaultEmbedBatchSize = 32

// VerseIndexer embeds verses in batches and writes them into a corpus.
type VerseIndexer struct {
	embedder  ports.Embedder
	indexer   ports.PassageIndexer
	batchSize int
}

func NewVerseIndexer(embedder ports.Embedder, indexer ports.PassageIndexer) *VerseIndexer {
	return &VerseIndexer{
		embedder:  embedder,
		indexer:   indexer,
		batchSize: defaultEmbedBatchSize,
	}
}

func (v *VerseIndexer) Index(ctx context.Context, corpus domain.Corpus, verses []domain.Verse) error {
	for start := 0; start < len(verses); start += v.batchSize {
		end := min(start+v.batchSize, len(verses))
		if err := v.indexBatch(ctx, corpus, verses[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (v *VerseIndexer) indexBatch(ctx context.Context, corpus domain.Corpus, verses []domain.Verse) error {
	texts := make([]string, 0, len(verses))
	for _, verse := range verses {
		texts = append(texts, verse.EmbeddingText())
	}

	vectors, err := v.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed verses: %w", err)
	}
	if len(vectors) != len(verses) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed verses",
			fmt.Errorf("vectors/verses mismatch: %d/%d", len(vectors), len(verses)),
		)
	}

	if err := v.indexer.IndexVerses(ctx, corpus, verses, vectors); err != nil {
		return fmt.Errorf("index verses in vector db: %w", err)
	}
	return nil
}
