package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/hcert"
	"github.com/animal-health-networks/petcert/internal/records"
)

var testCreatedAt = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func testStorePet() *records.Pet {
	return &records.Pet{
		ID:        "pet-001",
		Name:      "Rex",
		Species:   "DOG",
		Breed:     "Labrador",
		Microchip: "985112003456789",
		CreatedAt: testCreatedAt,
	}
}

func testStoreParty() *custody.Party {
	return &custody.Party{
		ID:                  "vet-001",
		Role:                custody.RoleVet,
		Name:                "Dr. Ana Silva",
		License:             "CRMV-SP 12345",
		KeyID:               "a1b2c3d4e5f60718",
		PublicKeyJWK:        `{"kty":"RSA","kid":"a1b2c3d4e5f60718","n":"placeholder","e":"AQAB"}`,
		EncryptedPrivateKey: "eyJhbGciOiJQQkVTMi1IUzUxMitBMjU2S1ci..placeholder",
		CreatedAt:           testCreatedAt,
	}
}

func testStoreSnapshot() hcert.Snapshot {
	return hcert.Snapshot{
		PetID:              "pet-001",
		PetName:            "Rex",
		Species:            "DOG",
		Breed:              "Labrador",
		Microchip:          "985112003456789",
		VetID:              "vet-001",
		VetName:            "Dr. Ana Silva",
		VetLicense:         "CRMV-SP 12345",
		ClinicID:           "clinic-001",
		ClinicName:         "PetCare Clinic",
		ClinicRegistration: "REG-98765",
		RecordType:         "VACCINE",
		Date:               "2026-03-15",
		Description:        "Annual rabies booster",
		Vaccine: &hcert.VaccineClaims{
			Name:       "Rabivax",
			Batch:      "RB-2026-031",
			Laboratory: "VetLabs",
			ValidFrom:  "2026-03-15",
			ValidUntil: "2027-03-15",
			Rabies:     true,
		},
	}
}

func testStoreRecord() *records.MedicalRecord {
	return &records.MedicalRecord{
		ID:              "record-001",
		PetID:           "pet-001",
		VetID:           "vet-001",
		ClinicID:        "clinic-001",
		Snapshot:        testStoreSnapshot(),
		VetSignature:    []byte("vet-signature-bytes"),
		ClinicSignature: []byte("clinic-signature-bytes"),
		VetKeyID:        "a1b2c3d4e5f60718",
		ClinicKeyID:     "0f1e2d3c4b5a6978",
		SignedAt:        testCreatedAt,
	}
}

func testStoreCertificate() *records.Certificate {
	return &records.Certificate{
		Number:          "cert-001",
		RecordID:        "record-001",
		ClaimsJSON:      `{"ver":"1.0.0","id":"pet-001"}`,
		ClaimsHash:      "0f1e2d3c4b5a69780f1e2d3c4b5a69780f1e2d3c4b5a69780f1e2d3c4b5a6978",
		VetSignature:    []byte("vet-signature-bytes"),
		ClinicSignature: []byte("clinic-signature-bytes"),
		VetPartyID:      "vet-001",
		ClinicPartyID:   "clinic-001",
		VetKeyID:        "a1b2c3d4e5f60718",
		ClinicKeyID:     "0f1e2d3c4b5a6978",
		IssuedAt:        testCreatedAt,
	}
}

func TestMemoryPets(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	pet := testStorePet()

	if err := mem.CreatePet(ctx, pet); err != nil {
		t.Fatalf("CreatePet failed: %v", err)
	}

	got, err := mem.GetPet(ctx, pet.ID)
	if err != nil {
		t.Fatalf("GetPet failed: %v", err)
	}
	if *got != *pet {
		t.Errorf("got pet %+v, want %+v", got, pet)
	}

	if _, err := mem.GetPet(ctx, "pet-999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPet for missing pet: got %v, want ErrNotFound", err)
	}

	if err := mem.CreatePet(ctx, pet); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate CreatePet: got %v, want ErrAlreadyExists", err)
	}

	if err := mem.CreatePet(ctx, nil); err == nil {
		t.Error("CreatePet with nil pet should fail")
	}
}

func TestMemoryParties(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	party := testStoreParty()

	if err := mem.CreateParty(ctx, party); err != nil {
		t.Fatalf("CreateParty failed: %v", err)
	}

	got, err := mem.GetParty(ctx, party.ID)
	if err != nil {
		t.Fatalf("GetParty failed: %v", err)
	}
	if *got != *party {
		t.Errorf("got party %+v, want %+v", got, party)
	}

	if _, err := mem.GetParty(ctx, "vet-999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetParty for missing party: got %v, want ErrNotFound", err)
	}

	if err := mem.CreateParty(ctx, party); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate CreateParty: got %v, want ErrAlreadyExists", err)
	}
}

func TestMemoryRecords(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	record := testStoreRecord()

	if err := mem.CreateRecord(ctx, record); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	got, err := mem.GetRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.ID != record.ID || got.PetID != record.PetID {
		t.Errorf("got record %s for pet %s, want %s for pet %s",
			got.ID, got.PetID, record.ID, record.PetID)
	}
	if got.Snapshot.Description != record.Snapshot.Description {
		t.Errorf("got snapshot description %q, want %q",
			got.Snapshot.Description, record.Snapshot.Description)
	}
	if got.Snapshot.Vaccine == nil || got.Snapshot.Vaccine.Batch != record.Snapshot.Vaccine.Batch {
		t.Error("vaccine block not preserved on the snapshot")
	}
	if string(got.VetSignature) != string(record.VetSignature) {
		t.Error("vet signature not preserved")
	}

	// The store hands out copies: mutating a returned record must not
	// change what a later read sees, not even through the vaccine pointer
	// or the signature slices.
	got.Snapshot.Description = "edited after the fact"
	got.Snapshot.Vaccine.Batch = "FORGED-BATCH"
	got.VetSignature[0] = 'X'
	reread, err := mem.GetRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if reread.Snapshot.Description != "Annual rabies booster" {
		t.Error("mutating a returned record changed the stored copy")
	}
	if reread.Snapshot.Vaccine.Batch != "RB-2026-031" {
		t.Error("mutating a returned vaccine block changed the stored copy")
	}
	if string(reread.VetSignature) != "vet-signature-bytes" {
		t.Error("mutating returned signature bytes changed the stored copy")
	}

	if _, err := mem.GetRecord(ctx, "record-999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRecord for missing record: got %v, want ErrNotFound", err)
	}

	if err := mem.CreateRecord(ctx, record); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate CreateRecord: got %v, want ErrAlreadyExists", err)
	}
}

func TestMemoryCertificates(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	certificate := testStoreCertificate()

	if err := mem.CreateCertificate(ctx, certificate); err != nil {
		t.Fatalf("CreateCertificate failed: %v", err)
	}

	got, err := mem.GetCertificate(ctx, certificate.Number)
	if err != nil {
		t.Fatalf("GetCertificate failed: %v", err)
	}
	if got.Number != certificate.Number || got.RecordID != certificate.RecordID {
		t.Errorf("got certificate %s for record %s, want %s for record %s",
			got.Number, got.RecordID, certificate.Number, certificate.RecordID)
	}
	if got.ClaimsJSON != certificate.ClaimsJSON {
		t.Errorf("claims JSON not stored byte-exact: got %q, want %q",
			got.ClaimsJSON, certificate.ClaimsJSON)
	}
	if got.ClaimsHash != certificate.ClaimsHash {
		t.Error("claims hash not preserved")
	}

	if _, err := mem.GetCertificate(ctx, "cert-999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCertificate for missing certificate: got %v, want ErrNotFound", err)
	}

	if err := mem.CreateCertificate(ctx, certificate); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate CreateCertificate: got %v, want ErrAlreadyExists", err)
	}
}
