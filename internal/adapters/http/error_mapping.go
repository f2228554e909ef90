package httpadapter

import (
	"net/http"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrFetch):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrEmbedding),
		domain.IsKind(err, domain.ErrGeneration),
		domain.IsKind(err, domain.ErrIndex):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
