package usecase

import (
	"context"
	"sync"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

type staticCatalog struct {
	corpora []domain.Corpus
}

func (c staticCatalog) Corpora() []domain.Corpus { return c.corpora }

func (c staticCatalog) Lookup(id string) (domain.Corpus, bool) {
	for _, corpus := range c.corpora {
		if corpus.ID == id {
			return corpus, true
		}
	}
	return domain.Corpus{}, false
}

func testCatalog() staticCatalog {
	return staticCatalog{corpora: []domain.Corpus{
		{ID: "gita", DisplayName: "Bhagavad Gita", Collection: "divinegpt-gita"},
		{ID: "ramayana", DisplayName: "Valmiki Ramayana", Collection: "divinegpt-ramayana", HasBooks: true},
	}}
}

type embedderFake struct {
	mu         sync.Mutex
	queryCalls int
	texts      []string
	vectors    [][]float32
	err        error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, texts...)
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i + 1), 0.5}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *embedderFake) QueryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls
}

type passageStoreFake struct {
	mu      sync.Mutex
	results map[string][]domain.Passage
	errs    map[string]error
	limits  map[string]int
	calls   int
	block   bool
}

func (f *passageStoreFake) Search(ctx context.Context, _ []float32, corpus domain.Corpus, limit int) ([]domain.Passage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.block {
		f.mu.Unlock()
		<-ctx.Done()
		f.mu.Lock()
		return nil, ctx.Err()
	}
	if f.limits == nil {
		f.limits = make(map[string]int)
	}
	f.limits[corpus.ID] = limit
	if err := f.errs[corpus.ID]; err != nil {
		return nil, err
	}
	passages := f.results[corpus.ID]
	out := make([]domain.Passage, len(passages))
	copy(out, passages)
	return out, nil
}

func (f *passageStoreFake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type generatorFake struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   bool
	prompts []string
}

func (f *generatorFake) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	reply, err, block := f.reply, f.err, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply, err
}

func gitaPassage(chapter, verse int, score float64) domain.Passage {
	return domain.Passage{
		ID:              "gita-" + domain.Locator{Chapter: chapter, Verse: verse}.String(),
		Corpus:          "gita",
		Locator:         domain.Locator{Chapter: chapter, Verse: verse},
		Text:            "shloka text",
		Transliteration: "transliteration",
		Translation:     "The wise grieve neither for the living nor for the dead. They stay steady.",
		Score:           score,
	}
}

func ramayanaPassage(chapter, verse int, score float64) domain.Passage {
	return domain.Passage{
		Corpus:      "ramayana",
		Locator:     domain.Locator{Book: "Ayodhya Kanda", Chapter: chapter, Verse: verse},
		Text:        "ramayana text",
		Translation: "Rama accepted exile with a calm mind.",
		Score:       score,
	}
}
