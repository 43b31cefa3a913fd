package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies failures returned by the services
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindForbidden  ErrorKind = "forbidden"
	KindConflict   ErrorKind = "conflict"
	KindUpstream   ErrorKind = "upstream"
)

// Sentinels for errors.Is matching on the kind of a ServiceError
var (
	ErrValidation = &ServiceError{Kind: KindValidation}
	ErrNotFound   = &ServiceError{Kind: KindNotFound}
	ErrForbidden  = &ServiceError{Kind: KindForbidden}
	ErrConflict   = &ServiceError{Kind: KindConflict}
	ErrUpstream   = &ServiceError{Kind: KindUpstream}
)

// ServiceError is an expected, classified failure of a lifecycle operation
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches any ServiceError of the same kind
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the caller may retry the operation unchanged
func (e *ServiceError) Retryable() bool {
	return e.Kind == KindUpstream
}

func validationError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbiddenError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func upstreamError(message string, err error) error {
	return &ServiceError{Kind: KindUpstream, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" for unclassified errors
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// isServiceError reports whether err is already classified
func isServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// lookupError maps a repository lookup failure to NotFound or a wrapped error
func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError("%s not found", what)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
