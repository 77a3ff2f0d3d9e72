package hcert

import (
	"github.com/animal-health-networks/petcert/internal/crypto"
)

// ClaimsHash computes the tamper-evidence hash carried in the certificate
// envelope: the hex SHA-256 of the RFC 8785 canonical form of the claims
// JSON. Canonicalization makes the hash independent of JSON whitespace and
// escaping, so a certificate round-tripped through storage still hashes to
// the same value.
func ClaimsHash(claims *Claims) (string, error) {
	if claims == nil {
		return "", NewInvalidArgumentError("claims are nil")
	}

	claimsJSON, err := claims.MarshalJSON()
	if err != nil {
		return "", WrapHashingError(err, "failed to serialize claims")
	}

	canonical, err := crypto.CanonicalizeJSON(claimsJSON)
	if err != nil {
		return "", WrapHashingError(err, "failed to canonicalize claims")
	}

	hash, err := crypto.Hash(canonical)
	if err != nil {
		return "", WrapHashingError(err, "failed to hash canonical claims")
	}
	return hash, nil
}

// VerifyClaimsHash reports whether the claims hash to the expected value.
func VerifyClaimsHash(claims *Claims, expected string) (bool, error) {
	hash, err := ClaimsHash(claims)
	if err != nil {
		return false, err
	}
	return hash == expected, nil
}
