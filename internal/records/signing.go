package records

// signing.go implements the record signing flow.
//
// # Dual attestation
//
// Every record is attested twice: the veterinarian signs it, then the clinic
// counter-signs the same bytes. Both signatures cover the canonical signable
// string derived from the record snapshot - NOT the CBOR claims payload a
// certificate later carries. The two serializations come from the same
// snapshot, and the claims hash ties them together at verification time.
//
// Signing happens exactly once, at record-creation time. Certificate issuance
// never re-signs; it reuses the signature bytes collected here.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/hcert"
)

// KeySigner is the key custody capability the signing service needs: unlock a
// party's protected private key with its secret, sign, discard the key.
// Implemented by custody.KeyManager.
type KeySigner interface {
	UnlockAndSign(ctx context.Context, partyID, secret string, data []byte) ([]byte, error)
}

// SignRecordInput contains the data needed to create and sign one medical
// record.
type SignRecordInput struct {
	// PetID references the registered pet.
	PetID string

	// VetID and ClinicID reference the two signing parties. The party
	// roles must match (a clinic cannot sign in the vet slot).
	VetID    string
	ClinicID string

	// Type is the record type code.
	Type RecordType

	// Date is the record date, YYYY-MM-DD.
	Date string

	// Description is the free-text record description.
	Description string

	// Vaccine must be present exactly when Type is VACCINE.
	Vaccine *VaccineDetails

	// VetSecret and ClinicSecret unlock the parties' protected private
	// keys for the two signing calls.
	VetSecret    string
	ClinicSecret string
}

// SigningService creates signed medical records.
type SigningService struct {
	pets    PetSource
	parties custody.PartySource
	records RecordStore
	keys    KeySigner
	logger  *slog.Logger
}

// NewSigningService creates a signing service.
func NewSigningService(pets PetSource, parties custody.PartySource, records RecordStore, keys KeySigner, logger *slog.Logger) *SigningService {
	return &SigningService{
		pets:    pets,
		parties: parties,
		records: records,
		keys:    keys,
		logger:  logger,
	}
}

// SignRecord creates a medical record and collects both party signatures
// over its canonical signable string.
//
// The snapshot is validated against the claims rules BEFORE any key is
// unlocked, so an invalid record (e.g. VACCINE without its vaccine block)
// never reaches the signing step. Any failure aborts the whole operation;
// no record is persisted.
func (s *SigningService) SignRecord(ctx context.Context, input SignRecordInput) (*MedicalRecord, error) {
	// Step 1: validate the record type before touching any collaborator
	if err := input.Type.Validate(); err != nil {
		return nil, err
	}

	// Step 2: load the pet and both parties
	pet, err := s.pets.GetPet(ctx, input.PetID)
	if err != nil {
		return nil, WrapValidationError(err, fmt.Sprintf("failed to load pet %s", input.PetID))
	}
	if err := pet.Validate(); err != nil {
		return nil, err
	}

	vet, err := s.parties.GetParty(ctx, input.VetID)
	if err != nil {
		return nil, WrapValidationError(err, fmt.Sprintf("failed to load vet party %s", input.VetID))
	}
	if vet.Role != custody.RoleVet {
		return nil, NewValidationError(fmt.Sprintf("party %s has role %s, expected %s", vet.ID, vet.Role, custody.RoleVet))
	}

	clinic, err := s.parties.GetParty(ctx, input.ClinicID)
	if err != nil {
		return nil, WrapValidationError(err, fmt.Sprintf("failed to load clinic party %s", input.ClinicID))
	}
	if clinic.Role != custody.RoleClinic {
		return nil, NewValidationError(fmt.Sprintf("party %s has role %s, expected %s", clinic.ID, clinic.Role, custody.RoleClinic))
	}

	// Step 3: capture the record snapshot
	snapshot := hcert.Snapshot{
		PetID:     pet.ID,
		PetName:   pet.Name,
		Species:   pet.Species,
		Breed:     pet.Breed,
		Microchip: pet.Microchip,

		VetID:      vet.ID,
		VetName:    vet.Name,
		VetLicense: vet.License,

		ClinicID:           clinic.ID,
		ClinicName:         clinic.Name,
		ClinicRegistration: clinic.Registration,

		RecordType:  string(input.Type),
		Date:        input.Date,
		Description: input.Description,

		Vaccine: input.Vaccine.claims(),
	}

	// Step 4: validate against the claims rules before unlocking any key
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	// Step 5: derive the canonical signable string
	signable, err := hcert.SignableString(&snapshot)
	if err != nil {
		return nil, err
	}
	signableBytes := []byte(signable)

	// Step 6: collect both signatures, vet first
	vetSignature, err := s.keys.UnlockAndSign(ctx, vet.ID, input.VetSecret, signableBytes)
	if err != nil {
		return nil, WrapSigningError(err, fmt.Sprintf("vet %s signature failed", vet.ID))
	}

	clinicSignature, err := s.keys.UnlockAndSign(ctx, clinic.ID, input.ClinicSecret, signableBytes)
	if err != nil {
		return nil, WrapSigningError(err, fmt.Sprintf("clinic %s signature failed", clinic.ID))
	}

	// Step 7: persist the signed record
	record := &MedicalRecord{
		ID:              uuid.NewString(),
		PetID:           pet.ID,
		VetID:           vet.ID,
		ClinicID:        clinic.ID,
		Snapshot:        snapshot,
		VetSignature:    vetSignature,
		ClinicSignature: clinicSignature,
		VetKeyID:        vet.KeyID,
		ClinicKeyID:     clinic.KeyID,
		SignedAt:        time.Now().UTC(),
	}

	if err := s.records.CreateRecord(ctx, record); err != nil {
		return nil, WrapSigningError(err, "failed to persist signed record")
	}

	s.logger.Info("medical record signed",
		slog.String("record_id", record.ID),
		slog.String("pet_id", record.PetID),
		slog.String("type", string(input.Type)),
		slog.String("vet_id", record.VetID),
		slog.String("clinic_id", record.ClinicID))

	return record, nil
}
