// Package httperr turns domain errors into HTTP responses. It is the one
// place that knows which apperrors value maps to which status code.
package httperr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"go.uber.org/zap"
)

// Error is a domain error with its HTTP status and machine-readable code.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Detail is the body of every error response.
type Detail struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Diagnostic string   `json:"diagnostic,omitempty"`
	Actions    []string `json:"actions,omitempty"`
}

type Envelope struct {
	Error Detail `json:"error"`
}

var table = []struct {
	target error
	status int
	code   string
}{
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperrors.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{apperrors.ErrEmptyContent, http.StatusBadRequest, "empty_content"},
	{apperrors.ErrEmptyBody, http.StatusBadRequest, "empty_body"},
	{apperrors.ErrValidation, http.StatusBadRequest, "validation"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrAlreadyAssigned, http.StatusConflict, "already_assigned"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict"},
	{apperrors.ErrNotYetAdminApproved, http.StatusPreconditionFailed, "not_yet_admin_approved"},
	{apperrors.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{apperrors.ErrTerminalStatus, http.StatusConflict, "terminal_status"},
	{apperrors.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
	{apperrors.ErrProfileMissing, http.StatusInternalServerError, "profile_missing"},
}

// From classifies err. Unknown errors are 500 "internal".
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var boot *apperrors.ProfileBootstrapError
	if errors.As(err, &boot) {
		return &Error{Status: http.StatusInternalServerError, Code: "profile_missing", Err: err}
	}
	for _, row := range table {
		if errors.Is(err, row.target) {
			return &Error{Status: row.status, Code: row.code, Err: err}
		}
	}
	return &Error{Status: http.StatusInternalServerError, Code: "internal", Err: err}
}

// Body builds the response body for err. Server errors never echo the
// underlying error, except the sanitized diagnostic of a failed profile
// bootstrap.
func Body(err error) (int, Envelope) {
	e := From(err)
	d := Detail{Code: e.Code, Message: e.Error()}

	switch {
	case e.Code == "profile_missing":
		d.Message = "your account has no profile and one could not be created"
		var boot *apperrors.ProfileBootstrapError
		if errors.As(err, &boot) {
			d.Diagnostic = "identity " + boot.IdentityPrefix + "…: " + sanitize(boot.Err)
		}
		d.Actions = []string{"retry", "login"}
	case e.Status >= http.StatusInternalServerError && e.Status != http.StatusServiceUnavailable:
		d.Message = "something went wrong"
		d.Actions = []string{"retry", "login"}
	case e.Status == http.StatusServiceUnavailable:
		d.Actions = []string{"retry"}
	}
	return e.Status, Envelope{Error: d}
}

// Respond writes err as JSON. Server errors are logged.
func Respond(c *gin.Context, logger *zap.Logger, err error) {
	status, body := Body(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("code", body.Error.Code),
			zap.Error(err),
		)
	}
	c.JSON(status, body)
}

// Abort writes err and stops the handler chain.
func Abort(c *gin.Context, logger *zap.Logger, err error) {
	Respond(c, logger, err)
	c.Abort()
}

const maxDiagnostic = 200

// sanitize keeps the first line of a store error, drops anything that looks
// like a connection string, and caps the length.
func sanitize(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	fields := strings.Fields(msg)
	for i, f := range fields {
		if strings.Contains(f, "://") || strings.Contains(f, "password=") {
			fields[i] = "[redacted]"
		}
	}
	msg = strings.Join(fields, " ")
	if len(msg) > maxDiagnostic {
		msg = msg[:maxDiagnostic] + "…"
	}
	return msg
}
