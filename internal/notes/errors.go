package notes

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the note store. Match them with errors.Is.
var (
	// ErrInvalidInput indicates the caller supplied missing or malformed fields.
	ErrInvalidInput = errors.New("notes: invalid input")
	// ErrNotFound indicates the referenced note does not exist.
	ErrNotFound = errors.New("notes: not found")
	// ErrStorageUnavailable indicates the deployment has no backing store configured.
	ErrStorageUnavailable = errors.New("notes: storage not configured")
	// ErrStorageFailure indicates an unexpected failure in the backing store.
	ErrStorageFailure = errors.New("notes: storage failure")
)

// ServiceError carries a stable code ("operation.reason") alongside its kind.
type ServiceError struct {
	code string
	kind error
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Is matches the error kind so callers can use errors.Is(err, ErrNotFound).
func (e *ServiceError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

func (e *ServiceError) Code() string {
	return e.code
}

// Kind returns one of the exported error kinds.
func (e *ServiceError) Kind() error {
	return e.kind
}

func newServiceError(operation, reason string, kind error, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, kind: kind, err: cause}
}

// ErrorCode extracts the ServiceError code from err, if any.
func ErrorCode(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code()
	}
	return ""
}
