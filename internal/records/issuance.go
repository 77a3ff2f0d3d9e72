package records

// issuance.go implements certificate issuance for signed medical records.
//
// Issuance reads ONLY the signed snapshot persisted with the record. Claims
// and the claims hash are derived from it, never from current pet or party
// rows, so the certificate content is exactly what the two parties signed.
// A failure at any step aborts the issuance; no partial certificate is ever
// persisted.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/animal-health-networks/petcert/internal/hcert"
)

// IssuanceService issues certificates for signed medical records.
type IssuanceService struct {
	records      RecordStore
	certificates CertificateStore
	logger       *slog.Logger
}

// NewIssuanceService creates an issuance service.
func NewIssuanceService(records RecordStore, certificates CertificateStore, logger *slog.Logger) *IssuanceService {
	return &IssuanceService{
		records:      records,
		certificates: certificates,
		logger:       logger,
	}
}

// IssueCertificate issues a certificate for a signed record: allocates a
// certificate number, derives the claims JSON and claims hash from the
// record's signed snapshot and persists the certificate.
func (s *IssuanceService) IssueCertificate(ctx context.Context, recordID string) (*Certificate, error) {
	if recordID == "" {
		return nil, NewValidationError("record ID is required")
	}

	record, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, WrapIssuanceError(err, fmt.Sprintf("failed to load record %s", recordID))
	}

	// Records are created signed, so this only trips on corrupted storage.
	if len(record.VetSignature) == 0 || len(record.ClinicSignature) == 0 {
		return nil, NewIssuanceError(fmt.Sprintf("record %s has no signatures", record.ID))
	}

	data, err := hcert.BuildCertificateData(&record.Snapshot, record.VetSignature, record.ClinicSignature)
	if err != nil {
		return nil, err
	}

	certificate := &Certificate{
		Number:          uuid.NewString(),
		RecordID:        record.ID,
		ClaimsJSON:      data.ClaimsJSON,
		ClaimsHash:      data.ClaimsHash,
		VetSignature:    data.VetSignature,
		ClinicSignature: data.ClinicSignature,
		VetPartyID:      record.VetID,
		ClinicPartyID:   record.ClinicID,
		VetKeyID:        record.VetKeyID,
		ClinicKeyID:     record.ClinicKeyID,
		IssuedAt:        time.Now().UTC(),
	}

	if err := s.certificates.CreateCertificate(ctx, certificate); err != nil {
		return nil, WrapIssuanceError(err, "failed to persist certificate")
	}

	s.logger.Info("certificate issued",
		slog.String("certificate_number", certificate.Number),
		slog.String("record_id", certificate.RecordID),
		slog.String("claims_hash", certificate.ClaimsHash))

	return certificate, nil
}

// QRText derives the scannable HC1: text for an issued certificate. The text
// is recomputed from the stored claims JSON and signatures on every call and
// is never persisted.
func QRText(certificate *Certificate) (string, error) {
	if certificate == nil {
		return "", NewValidationError("certificate is nil")
	}
	return hcert.EncodeCertificateText(certificate.ClaimsJSON, certificate.VetSignature, certificate.ClinicSignature)
}
