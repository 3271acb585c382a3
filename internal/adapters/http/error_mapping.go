package httpadapter

import (
	"net/http"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDatasetNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrUnsupportedInput):
		return http.StatusUnsupportedMediaType
	case domain.IsKind(err, domain.ErrRetrievalUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
