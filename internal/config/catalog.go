package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

// Catalog is the ordered set of corpora this deployment serves.
type Catalog struct {
	corpora []domain.Corpus
	byID    map[string]domain.Corpus
}

type catalogFile struct {
	Corpora []domain.Corpus `yaml:"corpora"`
}

func DefaultCatalog() *Catalog {
	catalog, _ := NewCatalog([]domain.Corpus{
		{ID: "gita", DisplayName: "Bhagavad Gita", Collection: "divinegpt-gita"},
		{ID: "ramayana", DisplayName: "Valmiki Ramayana", Collection: "divinegpt-ramayana", HasBooks: true},
	})
	return catalog
}

func NewCatalog(corpora []domain.Corpus) (*Catalog, error) {
	if len(corpora) == 0 {
		return nil, errors.New("corpus catalog is empty")
	}
	c := &Catalog{byID: make(map[string]domain.Corpus, len(corpora))}
	for _, corpus := range corpora {
		corpus.ID = strings.ToLower(strings.TrimSpace(corpus.ID))
		switch {
		case corpus.ID == "":
			return nil, errors.New("corpus id is required")
		case corpus.ID == string(domain.CorpusAll):
			return nil, fmt.Errorf("corpus id %q is reserved", corpus.ID)
		}
		if _, dup := c.byID[corpus.ID]; dup {
			return nil, fmt.Errorf("duplicate corpus id %q", corpus.ID)
		}
		if strings.TrimSpace(corpus.DisplayName) == "" {
			corpus.DisplayName = corpus.ID
		}
		if strings.TrimSpace(corpus.Collection) == "" {
			corpus.Collection = "divinegpt-" + corpus.ID
		}
		c.corpora = append(c.corpora, corpus)
		c.byID[corpus.ID] = corpus
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog. An empty path or a missing file yields
// the built-in gita and ramayana corpora.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultCatalog(), nil
		}
		return nil, fmt.Errorf("read corpus catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode corpus catalog: %w", err)
	}
	catalog, err := NewCatalog(file.Corpora)
	if err != nil {
		return nil, fmt.Errorf("corpus catalog %s: %w", path, err)
	}
	return catalog, nil
}

func (c *Catalog) Corpora() []domain.Corpus {
	out := make([]domain.Corpus, len(c.corpora))
	copy(out, c.corpora)
	return out
}

func (c *Catalog) Lookup(id string) (domain.Corpus, bool) {
	corpus, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	return corpus, ok
}
