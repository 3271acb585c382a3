package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

const defaultTopK = 3

type Retriever struct {
	embedder ports.Embedder
	store    ports.PassageStore
	catalog  ports.CorpusCatalog
}

func NewRetriever(embedder ports.Embedder, store ports.PassageStore, catalog ports.CorpusCatalog) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		catalog:  catalog,
	}
}

// Retrieve returns each selected corpus's own top-K passages, concatenated in
// catalog order. There is no ranking across corpora.
func (r *Retriever) Retrieve(
	ctx context.Context,
	queryText string,
	selector domain.CorpusSelector,
	topK int,
) ([]domain.Passage, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	corpora := r.selectCorpora(selector)
	if len(corpora) == 0 {
		return []domain.Passage{}, nil
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}
	if len(queryVector) == 0 {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", errors.New("empty embedding"))
	}

	perCorpus := make([][]domain.Passage, len(corpora))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, corpus := range corpora {
		group.Go(func() error {
			passages, err := r.store.Search(groupCtx, queryVector, corpus, topK)
			if err != nil {
				if domain.IsKind(err, domain.ErrCorpusNotFound) {
					return nil
				}
				return domain.WrapError(domain.ErrRetrievalUnavailable, fmt.Sprintf("search corpus %s", corpus.ID), err)
			}
			perCorpus[i] = trimPassages(orderByScore(passages), topK)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Passage, 0, len(corpora)*topK)
	for _, passages := range perCorpus {
		out = append(out, passages...)
	}
	return out, nil
}

func (r *Retriever) selectCorpora(selector domain.CorpusSelector) []domain.Corpus {
	if selector == domain.CorpusAll {
		return r.catalog.Corpora()
	}
	corpus, ok := r.catalog.Lookup(string(selector))
	if !ok {
		return nil
	}
	return []domain.Corpus{corpus}
}

func trimPassages(passages []domain.Passage, limit int) []domain.Passage {
	if limit <= 0 || len(passages) <= limit {
		return passages
	}
	return passages[:limit]
}

func orderByScore(passages []domain.Passage) []domain.Passage {
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
	return passages
}
