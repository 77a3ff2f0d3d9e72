package records

// verification.go verifies scanned certificate text against a stored
// certificate.
//
// The service resolves the two public keys through custody using the party
// references stored on the certificate, then hands off to the hcert verifier.
// A malformed or tampered token comes back as an Invalid result with a
// reason; a Go error means verification could not be attempted (unknown
// certificate, unresolvable key).

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"

	"github.com/animal-health-networks/petcert/internal/hcert"
)

// KeyResolver is the key custody capability the verification service needs:
// resolve a party's public key for signature verification.
// Implemented by custody.KeyManager.
type KeyResolver interface {
	GetPublicKey(ctx context.Context, partyID string) (*rsa.PublicKey, error)
}

// VerificationService verifies scanned certificate text.
type VerificationService struct {
	certificates CertificateStore
	keys         KeyResolver
	logger       *slog.Logger
}

// NewVerificationService creates a verification service.
func NewVerificationService(certificates CertificateStore, keys KeyResolver, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		certificates: certificates,
		keys:         keys,
		logger:       logger,
	}
}

// VerifyText verifies scanned certificate text against the stored certificate
// with the given number.
//
// The stored claims hash ties the scanned token to this specific certificate:
// a well-formed token belonging to a different certificate fails with reason
// HASH_MISMATCH.
func (s *VerificationService) VerifyText(ctx context.Context, certificateNumber, text string) (*hcert.VerificationResult, error) {
	if certificateNumber == "" {
		return nil, NewValidationError("certificate number is required")
	}

	certificate, err := s.certificates.GetCertificate(ctx, certificateNumber)
	if err != nil {
		return nil, WrapVerificationError(err, fmt.Sprintf("failed to load certificate %s", certificateNumber))
	}

	vetKey, err := s.keys.GetPublicKey(ctx, certificate.VetPartyID)
	if err != nil {
		return nil, WrapVerificationError(err, fmt.Sprintf("failed to resolve public key for vet %s", certificate.VetPartyID))
	}
	clinicKey, err := s.keys.GetPublicKey(ctx, certificate.ClinicPartyID)
	if err != nil {
		return nil, WrapVerificationError(err, fmt.Sprintf("failed to resolve public key for clinic %s", certificate.ClinicPartyID))
	}

	result, err := hcert.VerifyCertificateText(hcert.VerificationInput{
		Text:            text,
		VetPublicKey:    vetKey,
		ClinicPublicKey: clinicKey,
		ExpectedHash:    certificate.ClaimsHash,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("certificate text verified",
		slog.String("certificate_number", certificateNumber),
		slog.String("status", string(result.Status)),
		slog.String("reason", string(result.Reason)))

	return result, nil
}
