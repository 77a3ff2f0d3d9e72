// this file implements at-rest protection for signing keys using JWE
// (RFC 7516) with PBES2 password-based key derivation.
//
// vet and clinic private keys are stored encrypted under a party-supplied
// secret and unlocked only for the duration of a signing call - the decrypted
// key must not be retained by callers after the call returns.

package crypto

import (
	"crypto/rsa"
	"crypto/x509"

	jose "github.com/go-jose/go-jose/v4"
)

// pbes2Iterations is the PBKDF2 iteration count for PBES2 key derivation.
const pbes2Iterations = 210_000

// EncryptPrivateKey seals an RSA private key under a secret and returns the
// compact JWE serialization (PBES2-HS512+A256KW key derivation, A256GCM
// content encryption, PKCS#8 plaintext).
func EncryptPrivateKey(privateKey *rsa.PrivateKey, secret string) (string, error) {
	if privateKey == nil {
		return "", NewValidationError("private key is nil")
	}
	if secret == "" {
		return "", NewValidationError("secret is empty")
	}

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return "", WrapInternalError(err, "failed to marshal private key")
	}

	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{
			Algorithm:  jose.PBES2_HS512_A256KW,
			Key:        []byte(secret),
			PBES2Count: pbes2Iterations,
		},
		nil,
	)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to create encrypter")
	}

	encrypted, err := encrypter.Encrypt(der)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to encrypt private key")
	}

	serialized, err := encrypted.CompactSerialize()
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to serialize encrypted key")
	}

	return serialized, nil
}

// DecryptPrivateKey unseals a private key produced by EncryptPrivateKey.
// A wrong secret fails the JWE authentication tag check and surfaces as a
// key management error.
func DecryptPrivateKey(encryptedKey, secret string) (*rsa.PrivateKey, error) {
	if encryptedKey == "" {
		return nil, NewValidationError("encrypted key is empty")
	}
	if secret == "" {
		return nil, NewValidationError("secret is empty")
	}

	object, err := jose.ParseEncrypted(
		encryptedKey,
		[]jose.KeyAlgorithm{jose.PBES2_HS512_A256KW},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to parse encrypted key")
	}

	der, err := object.Decrypt([]byte(secret))
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to decrypt private key")
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to parse decrypted private key")
	}

	privateKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, NewKeyManagementError("decrypted key is not an RSA private key")
	}

	return privateKey, nil
}
