package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorForbidden    ErrorCode = "forbidden"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error  { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error { return &ServiceError{Code: ErrorConflict, Message: msg} }

func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewForbiddenError(msg string) error {
	return &ServiceError{Code: ErrorForbidden, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrUnknownKind is returned on a registry miss. Hitting it per-request
	// means a registration is missing at startup; it is not recoverable.
	ErrUnknownKind = errors.New("unknown question kind")
	// ErrReorderMismatch is returned when a submitted order list does not
	// match the form's current question set. Stored order is left untouched.
	ErrReorderMismatch = errors.New("order list does not match form questions")
	// ErrDuplicateResponseSet is returned by stores when inserting a shared
	// response set that already exists for its (form, respondent, interviewer)
	// key. The caller re-fetches the winner.
	ErrDuplicateResponseSet = errors.New("response set already exists")
)
