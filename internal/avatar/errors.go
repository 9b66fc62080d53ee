package avatar

import (
	"fmt"

	"github.com/samber/oops"
)

// Domain error codes
const (
	ErrCodeInvalidInput     = 1001
	ErrCodeNotFound         = 1002
	ErrCodeAlreadyExists    = 1003
	ErrCodeInvalidPayload   = 1004
	ErrCodeEmptySequence    = 1101
	ErrCodeUnknownAnimation = 1102
	ErrCodeMissingURL       = 1103
)

// NewDomainError creates a new domain error using oops
func NewDomainError(code int, message string) error {
	return oops.
		Code(codeToString(code)).
		In("avatar").
		With("error_code", code).
		Errorf(message)
}

// NewDomainErrorf creates a new domain error with formatted message
func NewDomainErrorf(code int, format string, args ...interface{}) error {
	return oops.
		Code(codeToString(code)).
		In("avatar").
		With("error_code", code).
		Errorf(format, args...)
}

// WrapDomainError wraps an existing error with domain context
func WrapDomainError(err error, code int, message string) error {
	return oops.
		Code(codeToString(code)).
		In("avatar").
		With("error_code", code).
		Wrapf(err, message)
}

// codeToString converts an int error code to its string form
func codeToString(code int) string {
	switch code {
	case ErrCodeInvalidInput:
		return "invalid_input"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeAlreadyExists:
		return "already_exists"
	case ErrCodeInvalidPayload:
		return "invalid_payload"
	case ErrCodeEmptySequence:
		return "empty_sequence"
	case ErrCodeUnknownAnimation:
		return "unknown_animation"
	case ErrCodeMissingURL:
		return "missing_url"
	default:
		return fmt.Sprintf("error_%d", code)
	}
}
