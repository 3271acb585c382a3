package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

func TestDefaultCatalogOrder(t *testing.T) {
	catalog := DefaultCatalog()

	corpora := catalog.Corpora()
	require.Len(t, corpora, 2)
	require.Equal(t, "gita", corpora[0].ID)
	require.Equal(t, "ramayana", corpora[1].ID)
	require.True(t, corpora[1].HasBooks)

	corpus, ok := catalog.Lookup(" Gita ")
	require.True(t, ok)
	require.Equal(t, "divinegpt-gita", corpus.Collection)
}

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpora.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
corpora:
  - id: ramayana
    display_name: Valmiki Ramayana
    has_books: true
  - id: Gita
    display_name: Bhagavad Gita
    collection: gita-v2
`), 0o644))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Equal(t, []domain.Corpus{
		{ID: "ramayana", DisplayName: "Valmiki Ramayana", Collection: "divinegpt-ramayana", HasBooks: true},
		{ID: "gita", DisplayName: "Bhagavad Gita", Collection: "gita-v2"},
	}, catalog.Corpora())
}

func TestLoadCatalogMissingFileUsesDefaults(t *testing.T) {
	catalog, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Len(t, catalog.Corpora(), 2)
}

func TestNewCatalogRejectsInvalidEntries(t *testing.T) {
	_, err := NewCatalog(nil)
	require.Error(t, err)

	_, err = NewCatalog([]domain.Corpus{{ID: "all"}})
	require.ErrorContains(t, err, "reserved")

	_, err = NewCatalog([]domain.Corpus{{ID: "gita"}, {ID: "GITA"}})
	require.ErrorContains(t, err, "duplicate")
}

func TestCorporaReturnsCopy(t *testing.T) {
	catalog := DefaultCatalog()
	corpora := catalog.Corpora()
	corpora[0].ID = "mutated"

	_, ok := catalog.Lookup("gita")
	require.True(t, ok)
	require.Equal(t, "gita", catalog.Corpora()[0].ID)
}
