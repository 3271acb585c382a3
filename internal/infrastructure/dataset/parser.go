package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

// Parser reads stored CSV and XLSX verse tables.
type Parser struct {
	storage ports.ObjectStorage
}

func NewParser(storage ports.ObjectStorage) *Parser {
	return &Parser{storage: storage}
}

func (p *Parser) Parse(ctx context.Context, dataset *domain.Dataset, corpus domain.Corpus) ([]domain.Verse, int, error) {
	reader, err := p.storage.Open(ctx, dataset.StoragePath)
	if err != nil {
		return nil, 0, fmt.Errorf("open dataset: %w", err)
	}
	defer reader.Close()

	return ParseReader(reader, dataset.Filename, corpus)
}

// ParseReader parses a CSV or XLSX table; the format follows the filename
// extension.
func ParseReader(r io.Reader, filename string, corpus domain.Corpus) ([]domain.Verse, int, error) {
	rows, err := readRows(r, filename)
	if err != nil {
		return nil, 0, err
	}
	return ParseRows(rows, corpus)
}

// ParseRows turns a header row plus data rows into verses.
func ParseRows(rows [][]string, corpus domain.Corpus) ([]domain.Verse, int, error) {
	if len(rows) == 0 {
		return nil, 0, domain.WrapError(domain.ErrInvalidInput, "parse dataset", errors.New("dataset is empty"))
	}
	header, err := parseHeader(rows[0])
	if err != nil {
		return nil, 0, err
	}
	verses, skipped := rowsToVerses(header, rows[1:], corpus)
	return verses, skipped, nil
}

func readRows(r io.Reader, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedInput, "read dataset", fmt.Errorf("unsupported file %q", filename))
	}
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read csv", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open xlsx", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read xlsx", errors.New("workbook has no sheets"))
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read xlsx", err)
	}
	return rows, nil
}
