package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

// MarkerGenerator reports upstream failures in-band, prefixed with the
// reserved generation error marker. Deadline and cancellation errors are
// still returned so callers can tell a timeout apart.
type MarkerGenerator struct {
	next ports.Generator
}

func NewMarkerGenerator(next ports.Generator) *MarkerGenerator {
	return &MarkerGenerator{next: next}
}

func (g *MarkerGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := g.next.Complete(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "", err
	}
	return domain.GenerationErrorMarker + " " + strings.TrimSpace(err.Error()), nil
}
