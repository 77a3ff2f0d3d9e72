// this file implements the signature provider for record signing:
// RSA-PSS over SHA-256, matching COSE algorithm PS256 (-37).
//
// signatures are produced once, at record-creation time, over the canonical
// signable string. The certificate pipeline embeds the raw signature bytes in
// the envelope and verification re-checks them against the same string; no
// re-signing ever happens at certificate-generation time.

package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
)

// pssOptions are the PSS parameters for PS256: salt length equal to the hash
// size, SHA-256 digest. Verification uses the same options, so signatures
// with non-standard salt lengths are rejected.
var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       crypto.SHA256,
}

// SignPSS signs data with RSA-PSS over SHA-256 and returns the raw signature
// bytes. Note PSS is randomized: signing the same data twice produces
// different bytes, both of which verify.
func SignPSS(privateKey *rsa.PrivateKey, data []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, NewValidationError("private key is nil")
	}
	if len(data) == 0 {
		return nil, NewValidationError("data is empty")
	}

	digest := sha256.Sum256(data)
	signature, err := rsa.SignPSS(rand.Reader, privateKey, crypto.SHA256, digest[:], pssOptions)
	if err != nil {
		return nil, WrapSigningError(err, "failed to sign data")
	}
	return signature, nil
}

// VerifyPSS checks an RSA-PSS signature over data.
//
// A bad signature is not an error - the function returns (false, nil).
// Errors are reserved for malformed key material.
func VerifyPSS(publicKey *rsa.PublicKey, data, signature []byte) (bool, error) {
	if publicKey == nil {
		return false, NewValidationError("public key is nil")
	}
	if publicKey.N == nil {
		return false, NewValidationError("public key has no modulus")
	}
	if len(data) == 0 {
		return false, NewValidationError("data is empty")
	}
	if len(signature) == 0 {
		return false, nil
	}

	digest := sha256.Sum256(data)
	if err := rsa.VerifyPSS(publicKey, crypto.SHA256, digest[:], signature, pssOptions); err != nil {
		if errors.Is(err, rsa.ErrVerification) {
			return false, nil
		}
		return false, WrapValidationError(err, "failed to verify signature")
	}
	return true, nil
}
