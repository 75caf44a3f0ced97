// Package apperrors holds the domain error values shared by every layer.
//
// Stores and services wrap these with fmt.Errorf("...: %w", err); the HTTP
// layer matches them with errors.Is and picks the status code in one place.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrTerminalStatus      = errors.New("project is in a terminal status")
	ErrNotYetAdminApproved = errors.New("video not yet admin-approved")
	ErrAlreadyAssigned     = errors.New("creator already assigned to project")
	ErrEmptyContent        = errors.New("content must not be empty")
	ErrEmptyBody           = errors.New("script body must not be empty")
	ErrProfileMissing      = errors.New("profile missing")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUnavailable         = errors.New("service unavailable")
)

// ProfileBootstrapError reports that an authenticated identity has no profile
// and creating one failed. It carries enough detail to diagnose a data-layer
// misconfiguration without exposing the full identity.
type ProfileBootstrapError struct {
	IdentityPrefix string
	Err            error
}

func (e *ProfileBootstrapError) Error() string {
	return fmt.Sprintf("profile bootstrap failed for identity %s…: %v", e.IdentityPrefix, e.Err)
}

func (e *ProfileBootstrapError) Unwrap() []error {
	return []error{ErrProfileMissing, e.Err}
}
