package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrDuplicate           = errors.New("resource already exists")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRoleNotFound means a user references a role row that does not exist.
	// It is a data integrity fault, not an ordinary denial.
	ErrRoleNotFound = errors.New("role referenced by user does not exist")
)

type AuthErrorKind string

const (
	AuthExpired            AuthErrorKind = "expired"
	AuthInvalid            AuthErrorKind = "invalid"
	AuthCredentialsInvalid AuthErrorKind = "credentials_invalid"
	AuthUnknownSubject     AuthErrorKind = "unknown_subject"
	AuthInactive           AuthErrorKind = "inactive"
	AuthMissing            AuthErrorKind = "missing"
	AuthRefreshInvalid     AuthErrorKind = "refresh_invalid"
	AuthRefreshExpired     AuthErrorKind = "refresh_expired"
)

// AuthError is every 401 outcome. Kind is for logs and metrics only;
// clients always see the same status.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

func authErr(kind AuthErrorKind, err error) error {
	return &AuthError{Kind: kind, Err: err}
}

func AuthKind(err error) (AuthErrorKind, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

func validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
