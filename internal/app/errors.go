package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"helpcenter/api/internal/auth"
	"helpcenter/api/internal/authpw"
	"helpcenter/api/internal/blob"
	"helpcenter/api/internal/gitrepo"
	"helpcenter/api/internal/session"
	"helpcenter/api/internal/theme"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(field, message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, map[string]any{"field": field})
}

var (
	errForbidden      = domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	errEditNotFound   = domainError(http.StatusNotFound, "EDIT_SESSION_NOT_FOUND", "Editing session not found or expired", nil)
	errUploadsOff     = domainError(http.StatusServiceUnavailable, "UPLOADS_DISABLED", "Image uploads are not configured", nil)
	errExportDisabled = domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available", nil)
)

// mapError turns an error into the status, code, message and details of
// the JSON error body.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var verr *theme.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", verr.Message, map[string]any{"field": verr.Field}
	}
	var perr *theme.PersistenceError
	if errors.As(err, &perr) {
		return http.StatusBadGateway, "PERSISTENCE_ERROR", "Theme storage is unavailable", map[string]any{"op": perr.Op, "conflict": perr.Conflict}
	}
	var inputErr *authpw.InputError
	if errors.As(err, &inputErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", inputErr.Message, map[string]any{"field": inputErr.Field}
	}

	switch {
	case errors.Is(err, theme.ErrSectionNotFound):
		return http.StatusNotFound, "SECTION_NOT_FOUND", err.Error(), map[string]any{"ok": false}
	case errors.Is(err, theme.ErrInteractionConflict):
		return http.StatusConflict, "INTERACTION_CONFLICT", "Section is already being dragged or edited", nil
	case errors.Is(err, theme.ErrNotEditing):
		return http.StatusConflict, "NOT_EDITING", "No section is being edited", nil
	case errors.Is(err, theme.ErrUnknownTheme):
		return http.StatusNotFound, "THEME_NOT_FOUND", err.Error(), nil
	case errors.Is(err, theme.ErrUnknownTemplate):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), map[string]any{"field": "templateId"}
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "EDIT_SESSION_NOT_FOUND", "Editing session not found or expired", nil
	case errors.Is(err, gitrepo.ErrNoHistory):
		return http.StatusNotFound, "NO_HISTORY", "Theme has never been saved", nil
	case errors.Is(err, gitrepo.ErrUnknownRevision):
		return http.StatusNotFound, "REVISION_NOT_FOUND", "Unknown theme revision", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, authpw.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil
	case errors.Is(err, authpw.ErrInviteInvalid):
		return http.StatusGone, "INVITE_INVALID", "Invitation is invalid or expired", nil
	case errors.Is(err, blob.ErrUnsupportedType), errors.Is(err, blob.ErrTooLarge), errors.Is(err, blob.ErrUnknownFolder):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), map[string]any{"field": "file"}
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
