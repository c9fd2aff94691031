package services

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalid         ErrorCode = "invalid"
	ErrorInvalidState    ErrorCode = "invalid_state"
	ErrorUnknownQuestion ErrorCode = "unknown_question"
	ErrorForbidden       ErrorCode = "forbidden"
	ErrorNotFound        ErrorCode = "not_found"
	ErrorConflict        ErrorCode = "conflict"
	ErrorUnauthorized    ErrorCode = "unauthorized"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

// Is matches any ServiceError carrying the same code, so callers can use
// errors.Is(err, ErrInvalidState) regardless of the message.
func (e *ServiceError) Is(target error) bool {
	var t *ServiceError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	// ErrInvalidState is returned when a lifecycle transition is not legal from the current status.
	ErrInvalidState = &ServiceError{Code: ErrorInvalidState, Message: "invalid state"}
	// ErrUnknownQuestion is returned when an answer references a question missing from the catalog.
	ErrUnknownQuestion = &ServiceError{Code: ErrorUnknownQuestion, Message: "unknown question"}
	// ErrValidation is returned for malformed input such as out-of-range scores.
	ErrValidation = &ServiceError{Code: ErrorInvalid, Message: "invalid"}
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = &ServiceError{Code: ErrorNotFound, Message: "not found"}
)

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewInvalidStateError(id string, status Status, op string) error {
	return &ServiceError{Code: ErrorInvalidState, Message: fmt.Sprintf("assessment %s is %s; cannot %s", id, status, op)}
}

func NewUnknownQuestionError(questionID int64) error {
	return &ServiceError{Code: ErrorUnknownQuestion, Message: fmt.Sprintf("unknown question %d", questionID)}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
