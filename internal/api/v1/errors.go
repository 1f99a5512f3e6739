package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/gofer/internal/domain"
)

// toHTTPError maps domain errors onto problem responses. Order matters: an
// owner accepting their own, already taken task carries both
// ErrCannotAcceptOwnTask and ErrTaskNotAvailable and is reported as 403.
func toHTTPError(op string, err error) error {
	var blocked *domain.ContentBlockedError

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return huma.Error401Unauthorized("authentication required")
	case errors.As(err, &blocked):
		return huma.Error422UnprocessableEntity("content blocked", &huma.ErrorDetail{
			Message:  blocked.Reason,
			Location: "body",
			Value:    blocked.Category,
		})
	case errors.Is(err, domain.ErrCannotAcceptOwnTask):
		return huma.Error403Forbidden("cannot accept your own task")
	case errors.Is(err, domain.ErrNotAuthorized):
		return huma.Error403Forbidden("not allowed for this task")
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("task not found")
	case errors.Is(err, domain.ErrTaskAlreadyFinal):
		return huma.Error409Conflict("task is already completed or cancelled")
	case errors.Is(err, domain.ErrTaskNotAvailable):
		return huma.Error409Conflict("task is not available")
	case errors.Is(err, domain.ErrInvalidPhaseTransition):
		return huma.Error409Conflict("invalid phase transition")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("conflict")
	case errors.Is(err, domain.ErrInvalidInput):
		return huma.Error422UnprocessableEntity("invalid input", err)
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout("task is busy, retry later")
	default:
		log.Error().Err(err).Str("op", op).Msg("api: internal error")
		return huma.Error500InternalServerError("internal error")
	}
}
