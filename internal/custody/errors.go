package custody

// errors.go defines the error codes used by the key custody layer

import "fmt"

// Error represents a structured error from the custody package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeRegistry is used when a party lookup fails or a party record
	// violates the registry rules (unknown role, missing identity fields,
	// conflicting key sources).
	ErrCodeRegistry ErrorCode = "registry"

	// ErrCodeKeyManagement is used for public-key resolution failures:
	// unparseable JWKs, a key ID with no matching key in any source, or a
	// JWKS endpoint that cannot be reached.
	ErrCodeKeyManagement ErrorCode = "key_management"

	// ErrCodeKeyUnlock is used when a protected private key cannot be
	// unlocked: the party has no managed key, or the supplied secret does
	// not decrypt it.
	ErrCodeKeyUnlock ErrorCode = "key_unlock"

	// ErrCodeValidation is used for invalid caller-supplied input.
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeInternal is used for unexpected failures that should not occur
	// in normal operation.
	ErrCodeInternal ErrorCode = "internal"
)

// CustodyError represents a structured error from the custody package.
type CustodyError struct {
	// code is the custody error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *CustodyError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CustodyError) Code() ErrorCode { return e.code }
func (e *CustodyError) Unwrap() error   { return e.wrapped }

// NewRegistryError creates a party registry error.
// Use this for unknown parties and party records that violate the registry
// rules.
//
// The returned error will have code ErrCodeRegistry.
func NewRegistryError(msg string) error {
	return &CustodyError{code: ErrCodeRegistry, message: msg}
}

// WrapRegistryError wraps an existing error as a party registry error.
//
// The returned error will have code ErrCodeRegistry.
func WrapRegistryError(err error, msg string) error {
	return &CustodyError{code: ErrCodeRegistry, message: msg, wrapped: err}
}

// NewKeyManagementError creates a key management error.
// Use this for key loading failures, JWK parsing failures and key IDs that
// resolve to no key in any configured source.
//
// The returned error will have code ErrCodeKeyManagement.
func NewKeyManagementError(msg string) error {
	return &CustodyError{code: ErrCodeKeyManagement, message: msg}
}

// WrapKeyManagementError wraps an existing error as a key management error.
//
// The returned error will have code ErrCodeKeyManagement.
func WrapKeyManagementError(err error, msg string) error {
	return &CustodyError{code: ErrCodeKeyManagement, message: msg, wrapped: err}
}

// NewKeyUnlockError creates a key unlock error.
// Use this when a party has no managed private key or the supplied secret
// does not decrypt the stored key.
//
// The returned error will have code ErrCodeKeyUnlock.
func NewKeyUnlockError(msg string) error {
	return &CustodyError{code: ErrCodeKeyUnlock, message: msg}
}

// WrapKeyUnlockError wraps an existing error as a key unlock error.
//
// The returned error will have code ErrCodeKeyUnlock.
func WrapKeyUnlockError(err error, msg string) error {
	return &CustodyError{code: ErrCodeKeyUnlock, message: msg, wrapped: err}
}

// NewValidationError creates a validation error for invalid input.
//
// The returned error will have code ErrCodeValidation.
func NewValidationError(msg string) error {
	return &CustodyError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
//
// The returned error will have code ErrCodeValidation.
func WrapValidationError(err error, msg string) error {
	return &CustodyError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
//
// The returned error will have code ErrCodeInternal.
func NewInternalError(msg string) error {
	return &CustodyError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
//
// The returned error will have code ErrCodeInternal.
func WrapInternalError(err error, msg string) error {
	return &CustodyError{code: ErrCodeInternal, message: msg, wrapped: err}
}
