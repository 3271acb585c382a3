package domain

import "time"

type DatasetStatus string

const (
	DatasetStatusUploaded   DatasetStatus = "uploaded"
	DatasetStatusProcessing DatasetStatus = "processing"
	DatasetStatusReady      DatasetStatus = "ready"
	DatasetStatusFailed     DatasetStatus = "failed"
)

// Dataset is one uploaded verse table waiting to be indexed into a corpus.
type Dataset struct {
	ID           string        `json:"id"`
	Corpus       string        `json:"corpus"`
	Filename     string        `json:"filename"`
	MimeType     string        `json:"mime_type"`
	StoragePath  string        `json:"storage_path"`
	Status       DatasetStatus `json:"status"`
	VerseCount   int           `json:"verse_count"`
	SkippedCount int           `json:"skipped_count"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Verse is a dataset row before it is embedded and indexed.
type Verse struct {
	ID               string
	Locator          Locator
	Text             string
	Transliteration  string
	Translation      string
	HindiTranslation string
	WordMeaning      string
}

// EmbeddingText picks the text whose vector represents the verse in search.
func (v Verse) EmbeddingText() string {
	if v.Translation != "" {
		return v.Translation
	}
	return v.Text
}
