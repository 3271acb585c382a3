package qdrant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// pointID is stable per corpus and locator, so re-importing a dataset
// overwrites verses instead of duplicating them.
func pointID(corpus domain.Corpus, verse domain.Verse) string {
	key := corpus.ID + "/" + verse.Locator.String()
	if verse.ID != "" {
		key = corpus.ID + "/" + verse.ID
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func versePayload(corpus domain.Corpus, verse domain.Verse) map[string]any {
	payload := map[string]any{
		"id":              verse.ID,
		"corpus":          corpus.ID,
		"chapter":         verse.Locator.Chapter,
		"verse":           verse.Locator.Verse,
		"shloka":          verse.Text,
		"transliteration": verse.Transliteration,
		"eng_meaning":     verse.Translation,
		"hin_meaning":     verse.HindiTranslation,
		"word_meaning":    verse.WordMeaning,
	}
	if verse.Locator.Book != "" {
		payload["book"] = verse.Locator.Book
	}
	return payload
}

func passageFromPayload(corpus domain.Corpus, payload map[string]any) domain.Passage {
	return domain.Passage{
		ID:     getStringPayload(payload, "id"),
		Corpus: corpus.ID,
		Locator: domain.Locator{
			Book:    getStringPayload(payload, "book"),
			Chapter: getIntPayload(payload, "chapter"),
			Verse:   getIntPayload(payload, "verse"),
		},
		Text:             getStringPayload(payload, "shloka"),
		Transliteration:  getStringPayload(payload, "transliteration"),
		Translation:      getStringPayload(payload, "eng_meaning"),
		HindiTranslation: getStringPayload(payload, "hin_meaning"),
		WordMeaning:      getStringPayload(payload, "word_meaning"),
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
