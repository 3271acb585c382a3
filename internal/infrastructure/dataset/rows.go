package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

type column int

const (
	colID column = iota
	colBook
	colChapter
	colVerse
	colShloka
	colTransliteration
	colHinMeaning
	colEngMeaning
	colWordMeaning
)

// headerAliases maps normalized header cells to columns. The canonical
// spelling is the one used by the Gita dataset (ID, Chapter, Verse, ...).
var headerAliases = map[string]column{
	"id":              colID,
	"book":            colBook,
	"kanda":           colBook,
	"chapter":         colChapter,
	"sarga":           colChapter,
	"verse":           colVerse,
	"shloka_number":   colVerse,
	"shloka":          colShloka,
	"sanskrit":        colShloka,
	"transliteration": colTransliteration,
	"hinmeaning":      colHinMeaning,
	"hin_meaning":     colHinMeaning,
	"hindi":           colHinMeaning,
	"engmeaning":      colEngMeaning,
	"eng_meaning":     colEngMeaning,
	"english":         colEngMeaning,
	"translation":     colEngMeaning,
	"wordmeaning":     colWordMeaning,
	"word_meaning":    colWordMeaning,
}

var errMissingColumns = errors.New("dataset header must contain Chapter, Verse, Shloka and EngMeaning columns")

type headerIndex map[column]int

func parseHeader(cells []string) (headerIndex, error) {
	index := make(headerIndex)
	for i, cell := range cells {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if col, ok := headerAliases[key]; ok {
			if _, seen := index[col]; !seen {
				index[col] = i
			}
		}
	}
	for _, required := range []column{colChapter, colVerse, colShloka, colEngMeaning} {
		if _, ok := index[required]; !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse header", errMissingColumns)
		}
	}
	return index, nil
}

func (h headerIndex) cell(row []string, col column) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// rowsToVerses converts data rows, skipping rows without a shloka or an
// English meaning and rows with unreadable locators.
func rowsToVerses(header headerIndex, rows [][]string, corpus domain.Corpus) ([]domain.Verse, int) {
	verses := make([]domain.Verse, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		verse, err := rowToVerse(header, row, corpus)
		if err != nil {
			skipped++
			continue
		}
		verses = append(verses, verse)
	}
	return verses, skipped
}

func rowToVerse(header headerIndex, row []string, corpus domain.Corpus) (domain.Verse, error) {
	shloka := header.cell(row, colShloka)
	meaning := header.cell(row, colEngMeaning)
	if shloka == "" || meaning == "" {
		return domain.Verse{}, errors.New("missing shloka or meaning")
	}

	chapter, err := parseNumber(header.cell(row, colChapter))
	if err != nil {
		return domain.Verse{}, fmt.Errorf("chapter: %w", err)
	}
	verseNumber, err := parseNumber(header.cell(row, colVerse))
	if err != nil {
		return domain.Verse{}, fmt.Errorf("verse: %w", err)
	}

	locator := domain.Locator{Chapter: chapter, Verse: verseNumber}
	if corpus.HasBooks {
		locator.Book = header.cell(row, colBook)
	}

	id := header.cell(row, colID)
	if id == "" {
		id = locator.String()
	}

	return domain.Verse{
		ID:               id,
		Locator:          locator,
		Text:             shloka,
		Transliteration:  header.cell(row, colTransliteration),
		Translation:      meaning,
		HindiTranslation: header.cell(row, colHinMeaning),
		WordMeaning:      header.cell(row, colWordMeaning),
	}, nil
}

// parseNumber accepts spreadsheet renderings such as "2", "2.0" and " 47 ".
func parseNumber(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not a whole number: %q", raw)
	}
	return int(f), nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
