package hcert

import "fmt"

// Error represents a structured error from the hcert package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	ErrCodeInvalidClaims     ErrorCode = "invalid_claims"
	ErrCodeHashing           ErrorCode = "hashing"
	ErrCodeMalformedEnvelope ErrorCode = "malformed_envelope"
	ErrCodeCompression       ErrorCode = "compression"
	ErrCodeDecompression     ErrorCode = "decompression"
	ErrCodeUnsupportedScheme ErrorCode = "unsupported_scheme"
	ErrCodeInvalidEncoding   ErrorCode = "invalid_encoding"
	ErrCodeInvalidArgument   ErrorCode = "invalid_argument"
	ErrCodeInternal          ErrorCode = "internal"
)

// CertificateError represents a structured error from the hcert package
type CertificateError struct {

	// code is the certificate error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *CertificateError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CertificateError) Code() ErrorCode { return e.code }
func (e *CertificateError) Unwrap() error   { return e.wrapped }

// NewInvalidClaimsError creates an error for claims that violate the claims rules.
// Use this for missing required pet/vet/clinic identity fields, a VACCINE record
// without its vaccine block, or stored claims JSON that does not parse.
//
// The returned error will have code ErrCodeInvalidClaims.
func NewInvalidClaimsError(msg string) error {
	return &CertificateError{code: ErrCodeInvalidClaims, message: msg}
}

// WrapInvalidClaimsError wraps an existing error as an invalid claims error.
// Use this for missing required pet/vet/clinic identity fields, a VACCINE record
// without its vaccine block, or stored claims JSON that does not parse.
//
// The returned error will have code ErrCodeInvalidClaims.
func WrapInvalidClaimsError(err error, msg string) error {
	return &CertificateError{code: ErrCodeInvalidClaims, message: msg, wrapped: err}
}

// NewHashingError creates an error for claims hash derivation failures.
// This is a defensive path: hashing valid UTF-8 claims JSON must not fail,
// so callers should treat this code as fatal.
//
// The returned error will have code ErrCodeHashing.
func NewHashingError(msg string) error {
	return &CertificateError{code: ErrCodeHashing, message: msg}
}

// WrapHashingError wraps an existing error as a hashing error.
// This is a defensive path: hashing valid UTF-8 claims JSON must not fail,
// so callers should treat this code as fatal.
//
// The returned error will have code ErrCodeHashing.
func WrapHashingError(err error, msg string) error {
	return &CertificateError{code: ErrCodeHashing, message: msg, wrapped: err}
}

// NewEnvelopeError creates an error for envelope or payload bytes that do not
// parse as the expected CBOR structure (wrong element counts, unsupported CBOR
// items, trailing bytes, a payload that is not a claims map).
//
// The returned error will have code ErrCodeMalformedEnvelope.
func NewEnvelopeError(msg string) error {
	return &CertificateError{code: ErrCodeMalformedEnvelope, message: msg}
}

// WrapEnvelopeError wraps an existing error as a malformed envelope error.
// Use this for envelope or payload bytes that do not parse as the expected
// CBOR structure.
//
// The returned error will have code ErrCodeMalformedEnvelope.
func WrapEnvelopeError(err error, msg string) error {
	return &CertificateError{code: ErrCodeMalformedEnvelope, message: msg, wrapped: err}
}

// NewCompressionError creates an error for deflate failures.
//
// The returned error will have code ErrCodeCompression.
func NewCompressionError(msg string) error {
	return &CertificateError{code: ErrCodeCompression, message: msg}
}

// WrapCompressionError wraps an existing error as a compression error.
//
// The returned error will have code ErrCodeCompression.
func WrapCompressionError(err error, msg string) error {
	return &CertificateError{code: ErrCodeCompression, message: msg, wrapped: err}
}

// NewDecompressionError creates an error for inflate failures.
// Use this for corrupt zlib streams, truncated input and decompressed
// output that exceeds MaxDecompressedSize.
//
// The returned error will have code ErrCodeDecompression.
func NewDecompressionError(msg string) error {
	return &CertificateError{code: ErrCodeDecompression, message: msg}
}

// WrapDecompressionError wraps an existing error as a decompression error.
// Use this for corrupt zlib streams, truncated input and decompressed
// output that exceeds MaxDecompressedSize.
//
// The returned error will have code ErrCodeDecompression.
func WrapDecompressionError(err error, msg string) error {
	return &CertificateError{code: ErrCodeDecompression, message: msg, wrapped: err}
}

// NewSchemeError creates an error for certificate text that does not carry
// the expected scheme prefix.
//
// The returned error will have code ErrCodeUnsupportedScheme.
func NewSchemeError(msg string) error {
	return &CertificateError{code: ErrCodeUnsupportedScheme, message: msg}
}

// WrapSchemeError wraps an existing error as an unsupported scheme error.
//
// The returned error will have code ErrCodeUnsupportedScheme.
func WrapSchemeError(err error, msg string) error {
	return &CertificateError{code: ErrCodeUnsupportedScheme, message: msg, wrapped: err}
}

// NewEncodingError creates an error for text that is not valid Base45
// (illegal characters, impossible chunk values, invalid length).
//
// The returned error will have code ErrCodeInvalidEncoding.
func NewEncodingError(msg string) error {
	return &CertificateError{code: ErrCodeInvalidEncoding, message: msg}
}

// WrapEncodingError wraps an existing error as an invalid encoding error.
//
// The returned error will have code ErrCodeInvalidEncoding.
func WrapEncodingError(err error, msg string) error {
	return &CertificateError{code: ErrCodeInvalidEncoding, message: msg, wrapped: err}
}

// NewInvalidArgumentError creates an error for invalid caller-supplied input
// (nil snapshots, empty payloads or signatures, empty compressor input).
//
// The returned error will have code ErrCodeInvalidArgument.
func NewInvalidArgumentError(msg string) error {
	return &CertificateError{code: ErrCodeInvalidArgument, message: msg}
}

// WrapInvalidArgumentError wraps an existing error as an invalid argument error.
//
// The returned error will have code ErrCodeInvalidArgument.
func WrapInvalidArgumentError(err error, msg string) error {
	return &CertificateError{code: ErrCodeInvalidArgument, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
// Use this for encoder-internal failures and unexpected nil values that
// should not occur in normal operation.
//
// The returned error will have code ErrCodeInternal.
func NewInternalError(msg string) error {
	return &CertificateError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
// Use this for encoder-internal failures and unexpected nil values that
// should not occur in normal operation.
//
// The returned error will have code ErrCodeInternal.
func WrapInternalError(err error, msg string) error {
	return &CertificateError{code: ErrCodeInternal, message: msg, wrapped: err}
}
