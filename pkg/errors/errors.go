// Package errors defines the application errors rendered by httputil.Error.
// Every AppError wraps one of the sentinels below, so callers branch with
// errors.Is regardless of the message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrBadRequest             = errors.New("bad request")
	ErrConflict               = errors.New("resource conflict")
	ErrInternal               = errors.New("internal server error")
	ErrValidation             = errors.New("validation error")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDependency             = errors.New("dependency failure")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenInvalid           = errors.New("invalid token")
)

// AppError carries the client-facing code, message and status of a failure
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

type kind struct {
	sentinel error
	code     string
	status   int
}

var (
	kindNotFound     = kind{ErrNotFound, "NOT_FOUND", http.StatusNotFound}
	kindUnauthorized = kind{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized}
	kindForbidden    = kind{ErrForbidden, "FORBIDDEN", http.StatusForbidden}
	kindBadRequest   = kind{ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest}
	kindConflict     = kind{ErrConflict, "CONFLICT", http.StatusConflict}
	kindInternal     = kind{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError}
	kindValidation   = kind{ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest}
	kindTransition   = kind{ErrInvalidStateTransition, "INVALID_STATE_TRANSITION", http.StatusConflict}
	kindDependency   = kind{ErrDependency, "DEPENDENCY_ERROR", http.StatusBadGateway}
	kindTokenExpired = kind{ErrTokenExpired, "TOKEN_EXPIRED", http.StatusUnauthorized}
	kindTokenInvalid = kind{ErrTokenInvalid, "TOKEN_INVALID", http.StatusUnauthorized}
)

func (k kind) new(message string) *AppError {
	return &AppError{Err: k.sentinel, Code: k.code, Message: message, StatusCode: k.status}
}

func NotFound(resource string) *AppError {
	return kindNotFound.new(resource + " not found")
}

func Unauthorized(message string) *AppError { return kindUnauthorized.new(message) }

func Forbidden(message string) *AppError { return kindForbidden.new(message) }

func BadRequest(message string) *AppError { return kindBadRequest.new(message) }

func Conflict(message string) *AppError { return kindConflict.new(message) }

// Internal hides the cause; log it before returning this
func Internal(message string) *AppError { return kindInternal.new(message) }

// Validation reports field errors keyed by JSON field name
func Validation(details map[string]string) *AppError {
	err := kindValidation.new("validation failed")
	err.Details = details
	return err
}

// InvalidStateTransition reports a transition the resource's current state
// does not allow
func InvalidStateTransition(resource, from, to string) *AppError {
	err := kindTransition.new(fmt.Sprintf("cannot move %s from %s to %s", resource, from, to))
	err.Details = map[string]string{"current_status": from, "requested_status": to}
	return err
}

// Dependency reports a failed collaborator such as the database, the
// broker or the outbox. cause is logged, never rendered, and stays
// reachable through errors.Is.
func Dependency(collaborator string, cause error) *AppError {
	err := kindDependency.new(collaborator + " unavailable")
	err.Err = fmt.Errorf("%w: %w", ErrDependency, cause)
	return err
}

func TokenExpired() *AppError { return kindTokenExpired.new("token has expired") }

func TokenInvalid() *AppError { return kindTokenInvalid.new("invalid token") }

// EnsureDependency returns AppErrors unchanged and wraps anything else as a
// Dependency failure of collaborator
func EnsureDependency(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Dependency(collaborator, err)
}

// Is is errors.Is, re-exported so callers need one errors import
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As
func As(err error, target any) bool {
	return errors.As(err, target)
}
