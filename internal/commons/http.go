package commons

import (
	"net/http"

	apperrors "repairdesk/internal/errors"
)

// ErrorStatus maps an application error to its HTTP status and the message
// safe to show the caller. ok is false for errors that are not typed, which
// callers must log and answer with 500.
func ErrorStatus(err error) (status int, message string, details []apperrors.ValidationDetail, ok bool) {
	if ve, is := apperrors.IsValidationError(err); is {
		return http.StatusBadRequest, ve.Message, ve.Details, true
	}
	if ise, is := apperrors.IsInvalidStateError(err); is {
		return http.StatusBadRequest, ise.Error(), nil, true
	}
	if ite, is := apperrors.IsInvalidTechnicianError(err); is {
		return http.StatusBadRequest, ite.Error(), nil, true
	}
	if ue, is := apperrors.IsUnauthenticatedError(err); is {
		return http.StatusUnauthorized, ue.Error(), nil, true
	}
	if ice, is := apperrors.IsInvalidCredentialError(err); is {
		return http.StatusUnauthorized, ice.Error(), nil, true
	}
	if fe, is := apperrors.IsForbiddenError(err); is {
		return http.StatusForbidden, fe.Error(), nil, true
	}
	if nfe, is := apperrors.IsNotFoundError(err); is {
		return http.StatusNotFound, nfe.Error(), nil, true
	}
	if te, is := apperrors.IsInvalidTransitionError(err); is {
		return http.StatusConflict, te.Error(), nil, true
	}
	if ce, is := apperrors.IsConflictError(err); is {
		return http.StatusConflict, ce.Error(), nil, true
	}
	return http.StatusInternalServerError, "an unexpected error occurred", nil, false
}
