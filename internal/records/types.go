// Package records implements the medical-record domain: pets, signed medical
// records, issued certificates, and the services that create them.
//
// The flow through the package is:
//
//	SigningService.SignRecord       create a record and collect the vet and
//	                                clinic signatures over its canonical
//	                                signable string
//	IssuanceService.IssueCertificate
//	                                build the certificate (claims JSON, claims
//	                                hash) from the record's signed snapshot
//	                                and persist it
//	QRText                          derive the scannable HC1: text on demand
//	VerificationService.VerifyText  verify scanned text against a stored
//	                                certificate and the parties' public keys
//
// A record's attested content lives in its hcert.Snapshot, captured once at
// signing time. Everything issued or verified later reads that snapshot, so
// later edits to pet or party rows can never desynchronize a certificate from
// its signatures.
package records

import (
	"context"
	"fmt"
	"time"

	"github.com/animal-health-networks/petcert/internal/hcert"
)

// RecordType identifies the kind of medical record being attested.
type RecordType string

const (
	RecordTypeAnnualCheck RecordType = "ANNUAL_CHECK"
	RecordTypeVaccine     RecordType = "VACCINE"
	RecordTypeTreatment   RecordType = "TREATMENT"
	RecordTypeDeworming   RecordType = "DEWORMING"
)

// Validate checks that the record type is one of the known codes.
func (t RecordType) Validate() error {
	switch t {
	case RecordTypeAnnualCheck, RecordTypeVaccine, RecordTypeTreatment, RecordTypeDeworming:
		return nil
	default:
		return NewValidationError(fmt.Sprintf("unknown record type %q", t))
	}
}

// Pet is a registered animal.
type Pet struct {
	// ID uniquely identifies the pet (UUID string)
	ID string

	// Name is the pet's name
	Name string

	// Species is the species code (e.g. DOG, CAT)
	Species string

	// Breed is the pet's breed. Empty when unknown.
	Breed string

	// Microchip is the microchip number. Empty when the pet is unchipped.
	Microchip string

	// CreatedAt is when the pet was registered.
	CreatedAt time.Time
}

// Validate checks the fields required to attest a record for this pet.
func (p *Pet) Validate() error {
	if p.ID == "" {
		return NewValidationError("pet ID is required")
	}
	if p.Name == "" {
		return NewValidationError("pet name is required")
	}
	if p.Species == "" {
		return NewValidationError("pet species is required")
	}
	return nil
}

// VaccineDetails holds the vaccine fields of a VACCINE record.
// Dates use the YYYY-MM-DD layout.
type VaccineDetails struct {
	Name       string
	Batch      string
	Laboratory string
	ValidFrom  string
	ValidUntil string
	Rabies     bool
}

// claims converts the details to their claims representation.
func (v *VaccineDetails) claims() *hcert.VaccineClaims {
	if v == nil {
		return nil
	}
	return &hcert.VaccineClaims{
		Name:       v.Name,
		Batch:      v.Batch,
		Laboratory: v.Laboratory,
		ValidFrom:  v.ValidFrom,
		ValidUntil: v.ValidUntil,
		Rabies:     v.Rabies,
	}
}

// MedicalRecord is a signed medical record.
//
// Records are created signed: SignRecord builds the snapshot, collects both
// signatures and persists the result in one step, so an unsigned record never
// exists. The snapshot is the attested content; the top-level IDs are
// relational references for storage and key resolution.
type MedicalRecord struct {
	// ID uniquely identifies the record (UUID string)
	ID string

	// PetID, VetID and ClinicID reference the pet and the two signing
	// parties.
	PetID    string
	VetID    string
	ClinicID string

	// Snapshot is the immutable attested content captured at signing time.
	Snapshot hcert.Snapshot

	// VetSignature and ClinicSignature are the raw RSA-PSS signatures over
	// the snapshot's canonical signable string.
	VetSignature    []byte
	ClinicSignature []byte

	// VetKeyID and ClinicKeyID identify the key pairs that produced the
	// signatures, for scan-time public key resolution.
	VetKeyID    string
	ClinicKeyID string

	// SignedAt is when the record was created and signed.
	SignedAt time.Time
}

// Certificate is an issued, immutable certificate for one medical record.
// The scannable HC1: text is not part of it: it is derived on demand from
// ClaimsJSON and the signatures (see QRText).
type Certificate struct {
	// Number uniquely identifies the certificate (UUID string)
	Number string

	// RecordID references the attested medical record.
	RecordID string

	// ClaimsJSON is the ordered claims serialization, stored byte-exact.
	ClaimsJSON string

	// ClaimsHash is the hex SHA-256 of the canonicalized claims JSON,
	// compared against the recomputed hash at verification time.
	ClaimsHash string

	// VetSignature and ClinicSignature are carried over from the record.
	VetSignature    []byte
	ClinicSignature []byte

	// VetPartyID/ClinicPartyID and VetKeyID/ClinicKeyID let a verifier
	// resolve the public keys without loading the record.
	VetPartyID    string
	ClinicPartyID string
	VetKeyID      string
	ClinicKeyID   string

	// IssuedAt is when the certificate was issued.
	IssuedAt time.Time
}

// PetSource provides pet records to the signing service.
// The store layer implements it.
type PetSource interface {
	GetPet(ctx context.Context, petID string) (*Pet, error)
}

// RecordStore persists signed medical records.
// The store layer implements it.
type RecordStore interface {
	CreateRecord(ctx context.Context, record *MedicalRecord) error
	GetRecord(ctx context.Context, recordID string) (*MedicalRecord, error)
}

// CertificateStore persists issued certificates. Certificates are insert-only.
// The store layer implements it.
type CertificateStore interface {
	CreateCertificate(ctx context.Context, certificate *Certificate) error
	GetCertificate(ctx context.Context, number string) (*Certificate, error)
}
