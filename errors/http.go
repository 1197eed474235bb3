package errors

import (
	stderrors "errors"
	"net/http"
)

// HTTPStatus maps an engine error to the status code the request surface
// returns. Unknown errors (store failures included) fall through to 500.
func HTTPStatus(err error) int {
	switch {
	case stderrors.Is(err, ErrSessionNotFound),
		stderrors.Is(err, ErrParticipantNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrAgentRoleRequired):
		return http.StatusForbidden
	case stderrors.Is(err, ErrSessionClaimed),
		stderrors.Is(err, ErrNicknameTaken):
		return http.StatusConflict
	case stderrors.Is(err, ErrSessionClosed),
		stderrors.Is(err, ErrSessionNotWaiting):
		return http.StatusUnprocessableEntity
	case stderrors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
