// multa/api/errors.go
package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/multa/service"
	sharedapi "github.com/Ftotnem/multa-tracker/shared/api"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrTeamNotFound), errors.Is(err, service.ErrPlayerNotFound), errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicDetail is the part of err safe to show a client. Store causes never leave the service.
func publicDetail(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		return err.Error()
	case errors.Is(err, service.ErrTeamNotFound):
		return service.ErrTeamNotFound.Error()
	case errors.Is(err, service.ErrPlayerNotFound):
		return service.ErrPlayerNotFound.Error()
	case errors.Is(err, service.ErrUserNotFound):
		return service.ErrUserNotFound.Error()
	case errors.Is(err, service.ErrForbidden):
		return service.ErrForbidden.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return service.ErrUnauthorized.Error()
	case errors.Is(err, service.ErrEmailTaken):
		return service.ErrEmailTaken.Error()
	}
	return ""
}

// writeServiceError answers with the failure text for the action and logs unexpected causes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	status := statusFor(err)
	if status >= 500 {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", sharedapi.RequestID(r.Context())),
			zap.Error(err))
	}
	resp := sharedapi.JSONErrorResponse{Message: failure, Code: status, Details: publicDetail(err)}
	if werr := sharedapi.WriteJSON(w, status, resp); werr != nil {
		h.logger.Error("failed to write error response", zap.Error(werr))
	}
}
