package records

// errors.go defines the error codes used by the records domain layer

import "fmt"

// Error represents a structured error from the records package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeValidation is used for invalid caller-supplied input: unknown
	// record types, missing identifiers, a party used in the wrong role.
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeSigning is used when the record signing flow fails after
	// validation: a key could not be unlocked, a signature could not be
	// produced, or the signed record could not be persisted.
	ErrCodeSigning ErrorCode = "signing"

	// ErrCodeIssuance is used when certificate issuance fails: the record
	// cannot be loaded, carries no signatures, or the certificate could
	// not be persisted. Issuance failures never leave a partial
	// certificate behind.
	ErrCodeIssuance ErrorCode = "issuance"

	// ErrCodeVerification is used for verification infrastructure
	// failures: the certificate cannot be loaded or a party's public key
	// cannot be resolved. An invalid certificate is NOT an error - the
	// verifier reports it as an Invalid result.
	ErrCodeVerification ErrorCode = "verification"

	// ErrCodeInternal is used for unexpected failures that should not
	// occur in normal operation.
	ErrCodeInternal ErrorCode = "internal"
)

// RecordsError represents a structured error from the records package.
type RecordsError struct {
	// code is the records error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *RecordsError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *RecordsError) Code() ErrorCode { return e.code }
func (e *RecordsError) Unwrap() error   { return e.wrapped }

// NewValidationError creates a validation error for invalid input.
//
// The returned error will have code ErrCodeValidation.
func NewValidationError(msg string) error {
	return &RecordsError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
//
// The returned error will have code ErrCodeValidation.
func WrapValidationError(err error, msg string) error {
	return &RecordsError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewSigningError creates a record signing error.
// Use this for failures between input validation and record persistence.
//
// The returned error will have code ErrCodeSigning.
func NewSigningError(msg string) error {
	return &RecordsError{code: ErrCodeSigning, message: msg}
}

// WrapSigningError wraps an existing error as a record signing error.
//
// The returned error will have code ErrCodeSigning.
func WrapSigningError(err error, msg string) error {
	return &RecordsError{code: ErrCodeSigning, message: msg, wrapped: err}
}

// NewIssuanceError creates a certificate issuance error.
//
// The returned error will have code ErrCodeIssuance.
func NewIssuanceError(msg string) error {
	return &RecordsError{code: ErrCodeIssuance, message: msg}
}

// WrapIssuanceError wraps an existing error as a certificate issuance error.
//
// The returned error will have code ErrCodeIssuance.
func WrapIssuanceError(err error, msg string) error {
	return &RecordsError{code: ErrCodeIssuance, message: msg, wrapped: err}
}

// NewVerificationError creates a verification infrastructure error.
// An invalid certificate is not an error; use this only when verification
// cannot be attempted at all.
//
// The returned error will have code ErrCodeVerification.
func NewVerificationError(msg string) error {
	return &RecordsError{code: ErrCodeVerification, message: msg}
}

// WrapVerificationError wraps an existing error as a verification
// infrastructure error.
//
// The returned error will have code ErrCodeVerification.
func WrapVerificationError(err error, msg string) error {
	return &RecordsError{code: ErrCodeVerification, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
//
// The returned error will have code ErrCodeInternal.
func NewInternalError(msg string) error {
	return &RecordsError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
//
// The returned error will have code ErrCodeInternal.
func WrapInternalError(err error, msg string) error {
	return &RecordsError{code: ErrCodeInternal, message: msg, wrapped: err}
}
