package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{fmt.Errorf("%w: channel x", apperrors.ErrForbidden), http.StatusForbidden, "forbidden"},
		{apperrors.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
		{apperrors.ErrEmptyContent, http.StatusBadRequest, "empty_content"},
		{apperrors.ErrEmptyBody, http.StatusBadRequest, "empty_body"},
		{fmt.Errorf("%w: title is required", apperrors.ErrValidation), http.StatusBadRequest, "validation"},
		{fmt.Errorf("project 1: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{apperrors.ErrAlreadyAssigned, http.StatusConflict, "already_assigned"},
		{apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{apperrors.ErrNotYetAdminApproved, http.StatusPreconditionFailed, "not_yet_admin_approved"},
		{apperrors.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{apperrors.ErrTerminalStatus, http.StatusConflict, "terminal_status"},
		{apperrors.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := From(tt.err)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestBody_InternalHidesCause(t *testing.T) {
	status, body := Body(errors.New("pq: relation \"secret_table\" does not exist"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "something went wrong", body.Error.Message)
	assert.NotContains(t, body.Error.Message, "secret_table")
	assert.Equal(t, []string{"retry", "login"}, body.Error.Actions)
}

func TestBody_ProfileMissingCarriesDiagnostic(t *testing.T) {
	err := fmt.Errorf("resolve: %w", &apperrors.ProfileBootstrapError{
		IdentityPrefix: "1234abcd",
		Err:            errors.New("dial postgres://u:p@db:5432/x failed\nstack..."),
	})
	assert.ErrorIs(t, err, apperrors.ErrProfileMissing)

	status, body := Body(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "profile_missing", body.Error.Code)
	assert.Contains(t, body.Error.Diagnostic, "1234abcd")
	assert.Contains(t, body.Error.Diagnostic, "[redacted]")
	assert.NotContains(t, body.Error.Diagnostic, "u:p@db")
	assert.NotContains(t, body.Error.Diagnostic, "stack")
}

func TestBody_ClientErrorsKeepMessage(t *testing.T) {
	status, body := Body(fmt.Errorf("%w: title is required", apperrors.ErrValidation))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation failed: title is required", body.Error.Message)
	assert.Empty(t, body.Error.Actions)
}
