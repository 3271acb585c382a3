package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.Dataset
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, dataset *domain.Dataset) error {
	if f.err != nil {
		return f.err
	}
	copyDataset := *dataset
	f.created = &copyDataset
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.Dataset, error) {
	if f.created == nil {
		return nil, domain.ErrDatasetNotFound
	}
	return f.created, nil
}

func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.DatasetStatus, string) error {
	return errors.New("not implemented")
}

func (f *ingestRepoFake) SaveCounts(context.Context, string, int, int) error {
	return errors.New("not implemented")
}

type ingestStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *ingestStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *ingestStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type ingestQueueFake struct {
	datasetID string
	err       error
}

func (f *ingestQueueFake) PublishDatasetUploaded(_ context.Context, datasetID string) error {
	if f.err != nil {
		return f.err
	}
	f.datasetID = datasetID
	return nil
}

func (f *ingestQueueFake) SubscribeDatasetUploaded(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestIngestUploadSuccess(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestDatasetUseCase(repo, storage, queue, testCatalog())

	dataset, err := uc.Upload(context.Background(), "Gita", "gita verses.csv", "text/csv", bytes.NewBufferString("chapter,verse"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if dataset.ID == "" {
		t.Fatalf("expected dataset id")
	}
	if dataset.Corpus != "gita" {
		t.Fatalf("expected corpus gita, got %s", dataset.Corpus)
	}
	if dataset.Status != domain.DatasetStatusUploaded {
		t.Fatalf("expected status uploaded, got %s", dataset.Status)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if queue.datasetID != dataset.ID {
		t.Fatalf("expected queued dataset id %s, got %s", dataset.ID, queue.datasetID)
	}
	if !strings.HasSuffix(storage.savedKey, "_gita_verses.csv") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "chapter,verse" {
		t.Fatalf("unexpected saved body %q", storage.savedBody)
	}
}

func TestIngestUploadRejectsUnknownCorpus(t *testing.T) {
	uc := NewIngestDatasetUseCase(&ingestRepoFake{}, &ingestStorageFake{}, &ingestQueueFake{}, testCatalog())

	_, err := uc.Upload(context.Background(), "quran", "verses.csv", "text/csv", bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestIngestUploadRejectsUnsupportedExtension(t *testing.T) {
	storage := &ingestStorageFake{}
	uc := NewIngestDatasetUseCase(&ingestRepoFake{}, storage, &ingestQueueFake{}, testCatalog())

	_, err := uc.Upload(context.Background(), "gita", "verses.pdf", "application/pdf", bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrUnsupportedInput) {
		t.Fatalf("expected unsupported input, got %v", err)
	}
	if storage.savedKey != "" {
		t.Fatalf("unsupported upload must not be stored")
	}
}

func TestIngestUploadQueueError(t *testing.T) {
	uc := NewIngestDatasetUseCase(&ingestRepoFake{}, &ingestStorageFake{}, &ingestQueueFake{err: errors.New("queue down")}, testCatalog())

	_, err := uc.Upload(context.Background(), "gita", "verses.xlsx", "", bytes.NewBufferString("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish dataset event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}
