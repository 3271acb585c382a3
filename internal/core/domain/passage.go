package domain

import (
	"fmt"
	"strings"
)

// Locator addresses a verse. Book is empty for corpora without books (the Gita).
type Locator struct {
	Book    string `json:"book,omitempty"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
}

func (l Locator) String() string {
	if strings.TrimSpace(l.Book) == "" {
		return fmt.Sprintf("%d.%d", l.Chapter, l.Verse)
	}
	return fmt.Sprintf("%s %d.%d", l.Book, l.Chapter, l.Verse)
}

type Passage struct {
	ID               string  `json:"id,omitempty"`
	Corpus           string  `json:"corpus"`
	Locator          Locator `json:"locator"`
	Text             string  `json:"shloka"`
	Transliteration  string  `json:"transliteration,omitempty"`
	Translation      string  `json:"eng_meaning,omitempty"`
	HindiTranslation string  `json:"hin_meaning,omitempty"`
	WordMeaning      string  `json:"word_meaning,omitempty"`
	Score            float64 `json:"score"`
}

// Corpus describes one independently indexed scripture collection.
type Corpus struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Collection  string `json:"collection" yaml:"collection"`
	HasBooks    bool   `json:"has_books" yaml:"has_books"`
}
