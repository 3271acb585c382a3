package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

type entry struct {
	passage domain.Passage
	vector  []float32
}

// Store keeps verses in process memory and ranks them by cosine similarity.
// It serves local runs and the CLI where no Qdrant is available.
type Store struct {
	mu      sync.RWMutex
	corpora map[string]map[string]entry
}

func NewStore() *Store {
	return &Store{corpora: make(map[string]map[string]entry)}
}

func (s *Store) IndexVerses(_ context.Context, corpus domain.Corpus, verses []domain.Verse, vectors [][]float32) error {
	if len(verses) != len(vectors) {
		return fmt.Errorf("verses/vectors mismatch: %d/%d", len(verses), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.corpora[corpus.Collection]
	if !ok {
		entries = make(map[string]entry)
		s.corpora[corpus.Collection] = entries
	}
	for i, verse := range verses {
		key := verse.ID
		if key == "" {
			key = verse.Locator.String()
		}
		entries[key] = entry{
			passage: domain.Passage{
				ID:               verse.ID,
				Corpus:           corpus.ID,
				Locator:          verse.Locator,
				Text:             verse.Text,
				Transliteration:  verse.Transliteration,
				Translation:      verse.Translation,
				HindiTranslation: verse.HindiTranslation,
				WordMeaning:      verse.WordMeaning,
			},
			vector: vectors[i],
		}
	}
	return nil
}

func (s *Store) Search(_ context.Context, queryVector []float32, corpus domain.Corpus, limit int) ([]domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.corpora[corpus.Collection]
	if !ok {
		return nil, domain.WrapError(domain.ErrCorpusNotFound, "memory search", errors.New(corpus.Collection))
	}

	results := make([]domain.Passage, 0, len(entries))
	for _, e := range entries {
		passage := e.passage
		passage.Score = cosineSimilarity(queryVector, e.vector)
		results = append(results, passage)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Locator.String() < results[j].Locator.String()
		}
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len reports how many verses a corpus holds.
func (s *Store) Len(corpus domain.Corpus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.corpora[corpus.Collection])
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
