package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

func TestEventRoundTrip(t *testing.T) {
	payload, err := encodeEvent(" ds-1 ", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	id, err := decodeEvent(payload)
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if id != "ds-1" {
		t.Fatalf("expected ds-1, got %q", id)
	}
}

func TestDecodeEventAcceptsBareID(t *testing.T) {
	id, err := decodeEvent([]byte("ds-legacy\n"))
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if id != "ds-legacy" {
		t.Fatalf("expected ds-legacy, got %q", id)
	}
}

func TestDecodeEventRejectsInvalidPayloads(t *testing.T) {
	for _, payload := range []string{"", "   ", `{"dataset_id":""}`, `{"dataset_id":`} {
		if _, err := decodeEvent([]byte(payload)); err == nil {
			t.Fatalf("expected error for payload %q", payload)
		}
	}
}

func TestEncodeEventRejectsEmptyID(t *testing.T) {
	if _, err := encodeEvent("  ", time.Now()); err == nil {
		t.Fatalf("expected error for empty dataset id")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if class := classifyNATSError(nats.ErrNoServers); !class.Retryable || !class.RecordFailure {
		t.Fatalf("expected no-servers to be retryable, got %+v", class)
	}
	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("expected cancel to be ignored, got %+v", class)
	}
	if class := classifyNATSError(errors.New("bad subject")); class.Retryable {
		t.Fatalf("expected generic error to be permanent, got %+v", class)
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded(nats.ErrTimeout)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	plain := errors.New("bad subject")
	if got := wrapTemporaryIfNeeded(plain); got != plain {
		t.Fatalf("expected permanent error unchanged, got %v", got)
	}
}
