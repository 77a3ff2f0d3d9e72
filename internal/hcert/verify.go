package hcert

// verify.go provides the high-level verification pipeline for scanned
// certificate text.
//
// # What verification proves
//
// A certificate carries three independent protections:
//
//   - The claims hash ties the envelope payload to the claims JSON stored at
//     issuance time, so a tampered payload is detected even before any
//     signature work.
//   - The vet signature proves the veterinarian attested to the record.
//   - The clinic signature proves the clinic counter-signed the same record.
//
// Both signatures cover the canonical signable string, which the verifier
// re-derives from the decoded claims. Signer role binding is established by
// the caller supplying the right public keys from the certificate's stored
// key references; the envelope itself only fixes the order (vet first).
//
// # Outcomes
//
// A malformed or tampered certificate is an expected outcome, not an error:
// it yields Status Invalid with a reason describing the first check that
// failed. Go errors are reserved for programmer and infrastructure faults
// (missing key material, internal hash failure).

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/animal-health-networks/petcert/internal/crypto"
)

// VerificationInput contains the data needed to verify one certificate.
type VerificationInput struct {
	// Text is the scanned certificate text, scheme tag included.
	Text string

	// VetPublicKey and ClinicPublicKey are the public halves of the keys
	// whose private halves signed the record at creation time. The caller
	// resolves them from the certificate's stored key references.
	VetPublicKey    *rsa.PublicKey
	ClinicPublicKey *rsa.PublicKey

	// ExpectedHash is the claims hash persisted with the certificate at
	// issuance time, compared against the hash recomputed from the
	// decoded payload.
	ExpectedHash string
}

// VerificationStatus is the overall outcome of a verification run.
type VerificationStatus string

const (
	StatusValid   VerificationStatus = "VALID"
	StatusInvalid VerificationStatus = "INVALID"
)

// InvalidReason identifies the first check that failed for an invalid
// certificate.
type InvalidReason string

const (
	// ReasonBadScheme: the text does not start with the HC1: scheme tag.
	ReasonBadScheme InvalidReason = "BAD_SCHEME"

	// ReasonCorrupt: the Base45 text or the compressed stream cannot be
	// decoded.
	ReasonCorrupt InvalidReason = "CORRUPT"

	// ReasonMalformedEnvelope: the envelope or its payload does not have
	// the expected structure.
	ReasonMalformedEnvelope InvalidReason = "MALFORMED_ENVELOPE"

	// ReasonHashMismatch: the payload decodes cleanly but its claims hash
	// does not match the stored hash (tampering).
	ReasonHashMismatch InvalidReason = "HASH_MISMATCH"

	// ReasonVetSignatureInvalid / ReasonClinicSignatureInvalid: the
	// respective signature does not verify over the canonical signable
	// string.
	ReasonVetSignatureInvalid    InvalidReason = "VET_SIGNATURE_INVALID"
	ReasonClinicSignatureInvalid InvalidReason = "CLINIC_SIGNATURE_INVALID"
)

// VerificationResult contains the outcome of a verification run.
//
// On failure the result still carries whatever was decoded before the failing
// step (minimally the reason and detail, usually the claims as well) so
// callers can report what the certificate claimed to be.
type VerificationResult struct {
	// Status is StatusValid only when every check passed.
	Status VerificationStatus

	// Reason is set when Status is StatusInvalid.
	Reason InvalidReason

	// Detail is a human-readable account of the failing check.
	Detail string

	// Claims holds the decoded claims when decoding got that far. Treat
	// them as display/audit data only unless Status is StatusValid.
	Claims *Claims
}

// Valid reports whether every check passed.
func (r *VerificationResult) Valid() bool {
	return r.Status == StatusValid
}

// VerifyCertificateText runs the verification pipeline over scanned
// certificate text, short-circuiting on the first failing check.
//
// Returns:
//   - Status Valid and nil error when the certificate checks out.
//   - Status Invalid with a reason for malformed or tampered certificates;
//     this path never returns a Go error.
//   - nil result and a non-nil error for programmer/infrastructure faults
//     (nil key material, internal hash failure).
func VerifyCertificateText(input VerificationInput) (*VerificationResult, error) {
	if input.VetPublicKey == nil {
		return nil, NewInvalidArgumentError("vet public key is nil")
	}
	if input.ClinicPublicKey == nil {
		return nil, NewInvalidArgumentError("clinic public key is nil")
	}
	if input.ExpectedHash == "" {
		return nil, NewInvalidArgumentError("expected claims hash is empty")
	}

	result := &VerificationResult{Status: StatusInvalid}

	// Step 1: check the scheme tag
	if !strings.HasPrefix(input.Text, SchemePrefix) {
		result.Reason = ReasonBadScheme
		result.Detail = fmt.Sprintf("certificate text does not start with %q", SchemePrefix)
		return result, nil
	}

	// Step 2: bound the input before decoding it
	if len(input.Text) > MaxCertificateTextLength {
		result.Reason = ReasonCorrupt
		result.Detail = fmt.Sprintf("certificate text exceeds %d characters", MaxCertificateTextLength)
		return result, nil
	}

	// Step 3: decode the Base45 transport
	compressed, err := DecodeText(input.Text)
	if err != nil {
		result.Reason = ReasonCorrupt
		result.Detail = err.Error()
		return result, nil
	}

	// Step 4: inflate the envelope bytes
	envelopeBytes, err := Inflate(compressed)
	if err != nil {
		result.Reason = ReasonCorrupt
		result.Detail = err.Error()
		return result, nil
	}

	// Step 5: parse the signature envelope
	envelope, err := ParseEnvelope(envelopeBytes)
	if err != nil {
		result.Reason = ReasonMalformedEnvelope
		result.Detail = err.Error()
		return result, nil
	}

	// Step 6: check both signature entries declare the expected algorithm
	for i := range envelope.Signatures {
		alg, err := envelope.Signatures[i].Algorithm()
		if err != nil {
			result.Reason = ReasonMalformedEnvelope
			result.Detail = err.Error()
			return result, nil
		}
		if alg != AlgorithmPS256 {
			result.Reason = ReasonMalformedEnvelope
			result.Detail = fmt.Sprintf("unsupported signature algorithm %d", alg)
			return result, nil
		}
	}

	// Step 7: decode the claims payload
	claims, err := DecodeCBOR(envelope.Payload)
	if err != nil {
		result.Reason = ReasonMalformedEnvelope
		result.Detail = err.Error()
		return result, nil
	}
	result.Claims = claims

	// Step 8: re-derive the signed snapshot from the claims
	// the canonical signable string - the quantity both parties actually
	// signed - is rebuilt from it below
	snapshot, err := SnapshotFromClaims(claims)
	if err != nil {
		result.Reason = ReasonMalformedEnvelope
		result.Detail = err.Error()
		return result, nil
	}

	// Step 9: recompute the claims hash and compare to the stored hash
	hashOK, err := VerifyClaimsHash(claims, input.ExpectedHash)
	if err != nil {
		return result, WrapInternalError(err, "failed to recompute claims hash")
	}
	if !hashOK {
		result.Reason = ReasonHashMismatch
		result.Detail = "claims hash does not match the stored hash"
		return result, nil
	}

	signable, err := SignableString(snapshot)
	if err != nil {
		// snapshot already validated during re-derivation
		return result, WrapInternalError(err, "failed to rebuild signable string")
	}
	signableBytes := []byte(signable)

	// Step 10: verify the vet signature over the canonical signable bytes
	ok, err := crypto.VerifyPSS(input.VetPublicKey, signableBytes, envelope.VetSignature())
	if err != nil {
		return result, wrapKeyFault("vet public key is unusable", err)
	}
	if !ok {
		result.Reason = ReasonVetSignatureInvalid
		result.Detail = "vet signature does not verify"
		return result, nil
	}

	// Step 11: verify the clinic signature over the same bytes
	ok, err = crypto.VerifyPSS(input.ClinicPublicKey, signableBytes, envelope.ClinicSignature())
	if err != nil {
		return result, wrapKeyFault("clinic public key is unusable", err)
	}
	if !ok {
		result.Reason = ReasonClinicSignatureInvalid
		result.Detail = "clinic signature does not verify"
		return result, nil
	}

	// All checks passed
	result.Status = StatusValid
	return result, nil
}

// wrapKeyFault turns a malformed-key error from the signature provider into
// an internal fault, preserving its code when it already carries one.
func wrapKeyFault(message string, err error) error {
	var cryptoErr crypto.Error
	if errors.As(err, &cryptoErr) {
		return err
	}
	return WrapInternalError(err, message)
}
