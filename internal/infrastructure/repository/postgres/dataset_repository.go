package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

type DatasetRepository struct {
	db *sql.DB
}

func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DatasetRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	corpus TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	verse_count INTEGER NOT NULL DEFAULT 0,
	skipped_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_datasets_corpus ON datasets(corpus);
CREATE INDEX IF NOT EXISTS idx_datasets_status ON datasets(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DatasetRepository) Create(ctx context.Context, dataset *domain.Dataset) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO datasets (
	id, corpus, filename, mime_type, storage_path, status, verse_count, skipped_count, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		dataset.ID, dataset.Corpus, dataset.Filename, dataset.MimeType, dataset.StoragePath, string(dataset.Status),
		dataset.VerseCount, dataset.SkippedCount, dataset.Error, dataset.CreatedAt, dataset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (r *DatasetRepository) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, corpus, filename, mime_type, storage_path, status, verse_count, skipped_count, COALESCE(error_message, ''), created_at, updated_at
FROM datasets
WHERE id = $1
`, id)

	var dataset domain.Dataset
	var status string
	err := row.Scan(
		&dataset.ID, &dataset.Corpus, &dataset.Filename, &dataset.MimeType, &dataset.StoragePath, &status,
		&dataset.VerseCount, &dataset.SkippedCount, &dataset.Error, &dataset.CreatedAt, &dataset.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDatasetNotFound, "get dataset", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	dataset.Status = domain.DatasetStatus(status)
	return &dataset, nil
}

func (r *DatasetRepository) UpdateStatus(ctx context.Context, id string, status domain.DatasetStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE datasets
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update dataset status: %w", err)
	}
	return requireAffected(res, "update dataset status", id)
}

func (r *DatasetRepository) SaveCounts(ctx context.Context, id string, verseCount, skippedCount int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE datasets
SET verse_count = $2, skipped_count = $3, updated_at = $4
WHERE id = $1
`, id, verseCount, skippedCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save dataset counts: %w", err)
	}
	return requireAffected(res, "save dataset counts", id)
}

func requireAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDatasetNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}
