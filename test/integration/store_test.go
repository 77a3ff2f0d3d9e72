//go:build integration

package integration

// Round-trip tests for the PostgreSQL store: every row type the pipeline
// persists is written and read back through the real schema.

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/animal-health-networks/petcert/internal/hcert"
	"github.com/animal-health-networks/petcert/internal/records"
	"github.com/animal-health-networks/petcert/internal/store"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t)

	// create the rows in referential order - records reference pets and
	// parties, certificates reference records
	pet := createTestPet(t, st)
	vet := createTestVet(t, st)
	clinic := createTestClinic(t, st)

	record := &records.MedicalRecord{
		ID:       "record-001",
		PetID:    pet.ID,
		VetID:    vet.ID,
		ClinicID: clinic.ID,
		Snapshot: hcert.Snapshot{
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

			RecordType:  "VACCINE",
			Date:        "2026-03-15",
			Description: "Annual rabies booster",

			Vaccine: &hcert.VaccineClaims{
				Name:       "Rabivax",
				Batch:      "RB-2026-031",
				Laboratory: "VetLabs",
				ValidFrom:  "2026-03-15",
				ValidUntil: "2027-03-15",
				Rabies:     true,
			},
		},
		VetSignature:    []byte("vet-signature-bytes"),
		ClinicSignature: []byte("clinic-signature-bytes"),
		VetKeyID:        vet.KeyID,
		ClinicKeyID:     clinic.KeyID,
		SignedAt:        time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
	}
	if err := st.CreateRecord(ctx, record); err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	certificate := &records.Certificate{
		Number:          "cert-001",
		RecordID:        record.ID,
		ClaimsJSON:      `{"id":"pet-001","name":"Rex"}`,
		ClaimsHash:      "b5bb9d8014a0f9b1d61e21e796d78dccdf1352f23cd32812f4850b878ae4944c",
		VetSignature:    record.VetSignature,
		ClinicSignature: record.ClinicSignature,
		VetPartyID:      vet.ID,
		ClinicPartyID:   clinic.ID,
		VetKeyID:        vet.KeyID,
		ClinicKeyID:     clinic.KeyID,
		IssuedAt:        time.Date(2026, 3, 15, 10, 31, 0, 0, time.UTC),
	}
	if err := st.CreateCertificate(ctx, certificate); err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	t.Run("pets", func(t *testing.T) {
		got, err := st.GetPet(ctx, pet.ID)
		if err != nil {
			t.Fatalf("failed to get pet: %v", err)
		}
		if got.Name != pet.Name || got.Species != pet.Species || got.Breed != pet.Breed || got.Microchip != pet.Microchip {
			t.Errorf("pet round-trip mismatch: got %+v, want %+v", got, pet)
		}

		if err := st.CreatePet(ctx, pet); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("duplicate pet: got error %v, want ErrAlreadyExists", err)
		}
		if _, err := st.GetPet(ctx, "missing-pet"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("missing pet: got error %v, want ErrNotFound", err)
		}
	})

	t.Run("parties", func(t *testing.T) {
		gotVet, err := st.GetParty(ctx, vet.ID)
		if err != nil {
			t.Fatalf("failed to get vet party: %v", err)
		}
		if gotVet.Role != vet.Role || gotVet.Name != vet.Name || gotVet.License != vet.License {
			t.Errorf("vet round-trip mismatch: got %+v, want %+v", gotVet, vet)
		}
		if gotVet.KeyID != vet.KeyID || gotVet.PublicKeyJWK != vet.PublicKeyJWK || gotVet.EncryptedPrivateKey != vet.EncryptedPrivateKey {
			t.Error("vet key material did not round-trip")
		}

		gotClinic, err := st.GetParty(ctx, clinic.ID)
		if err != nil {
			t.Fatalf("failed to get clinic party: %v", err)
		}
		if gotClinic.Role != clinic.Role || gotClinic.Registration != clinic.Registration {
			t.Errorf("clinic round-trip mismatch: got %+v, want %+v", gotClinic, clinic)
		}

		if err := st.CreateParty(ctx, vet); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("duplicate party: got error %v, want ErrAlreadyExists", err)
		}
		if _, err := st.GetParty(ctx, "missing-party"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("missing party: got error %v, want ErrNotFound", err)
		}
	})

	t.Run("records", func(t *testing.T) {
		got, err := st.GetRecord(ctx, record.ID)
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if got.PetID != record.PetID || got.VetID != record.VetID || got.ClinicID != record.ClinicID {
			t.Errorf("record references mismatch: got %+v", got)
		}
		if got.Snapshot.Description != record.Snapshot.Description {
			t.Errorf("snapshot description: got %q, want %q", got.Snapshot.Description, record.Snapshot.Description)
		}
		if got.Snapshot.Vaccine == nil {
			t.Fatal("snapshot vaccine block did not survive the round-trip")
		}
		if got.Snapshot.Vaccine.Batch != record.Snapshot.Vaccine.Batch || !got.Snapshot.Vaccine.Rabies {
			t.Errorf("snapshot vaccine mismatch: got %+v", got.Snapshot.Vaccine)
		}
		if string(got.VetSignature) != string(record.VetSignature) || string(got.ClinicSignature) != string(record.ClinicSignature) {
			t.Error("signatures did not round-trip")
		}
		if !got.SignedAt.Equal(record.SignedAt) {
			t.Errorf("signed at: got %v, want %v", got.SignedAt, record.SignedAt)
		}

		if err := st.CreateRecord(ctx, record); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("duplicate record: got error %v, want ErrAlreadyExists", err)
		}
		if _, err := st.GetRecord(ctx, "missing-record"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("missing record: got error %v, want ErrNotFound", err)
		}

		// the schema enforces the pet reference
		orphan := *record
		orphan.ID = "record-orphan"
		orphan.PetID = "missing-pet"
		if err := st.CreateRecord(ctx, &orphan); err == nil {
			t.Error("record with unknown pet was accepted")
		}
	})

	t.Run("certificates", func(t *testing.T) {
		got, err := st.GetCertificate(ctx, certificate.Number)
		if err != nil {
			t.Fatalf("failed to get certificate: %v", err)
		}
		if got.ClaimsJSON != certificate.ClaimsJSON {
			t.Errorf("claims JSON not byte-exact: got %q, want %q", got.ClaimsJSON, certificate.ClaimsJSON)
		}
		if got.ClaimsHash != certificate.ClaimsHash {
			t.Errorf("claims hash: got %q, want %q", got.ClaimsHash, certificate.ClaimsHash)
		}
		if got.RecordID != certificate.RecordID || got.VetPartyID != certificate.VetPartyID || got.ClinicPartyID != certificate.ClinicPartyID {
			t.Errorf("certificate references mismatch: got %+v", got)
		}
		if got.VetKeyID != certificate.VetKeyID || got.ClinicKeyID != certificate.ClinicKeyID {
			t.Error("certificate key IDs did not round-trip")
		}
		if string(got.VetSignature) != string(certificate.VetSignature) || string(got.ClinicSignature) != string(certificate.ClinicSignature) {
			t.Error("certificate signatures did not round-trip")
		}
		if !got.IssuedAt.Equal(certificate.IssuedAt) {
			t.Errorf("issued at: got %v, want %v", got.IssuedAt, certificate.IssuedAt)
		}

		if err := st.CreateCertificate(ctx, certificate); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("duplicate certificate: got error %v, want ErrAlreadyExists", err)
		}
		if _, err := st.GetCertificate(ctx, "missing-cert"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("missing certificate: got error %v, want ErrNotFound", err)
		}
	})
}
