//go:build integration

// functions that are useful in integration tests

package integration

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/animal-health-networks/petcert/internal/crypto"
	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/records"
	"github.com/animal-health-networks/petcert/internal/store"
)

const (
	testVetSecret    = "vet-signing-secret"
	testClinicSecret = "clinic-signing-secret"
)

// testKeys caches the RSA key material: key generation and the PBES2 key
// protection are too slow to repeat per test.
var testKeys struct {
	once      sync.Once
	vet       *rsa.PrivateKey
	clinic    *rsa.PrivateKey
	vetJWE    string
	clinicJWE string
	err       error
}

func loadTestKeys(t *testing.T) (vet, clinic *rsa.PrivateKey, vetJWE, clinicJWE string) {
	t.Helper()
	testKeys.once.Do(func() {
		if testKeys.vet, testKeys.err = crypto.GenerateRSAKeyPair(2048); testKeys.err != nil {
			return
		}
		if testKeys.clinic, testKeys.err = crypto.GenerateRSAKeyPair(2048); testKeys.err != nil {
			return
		}
		if testKeys.vetJWE, testKeys.err = crypto.EncryptPrivateKey(testKeys.vet, testVetSecret); testKeys.err != nil {
			return
		}
		testKeys.clinicJWE, testKeys.err = crypto.EncryptPrivateKey(testKeys.clinic, testClinicSecret)
	})
	if testKeys.err != nil {
		t.Fatalf("failed to prepare test keys: %v", testKeys.err)
	}
	return testKeys.vet, testKeys.clinic, testKeys.vetJWE, testKeys.clinicJWE
}

func newTestParty(t *testing.T, id string, role custody.Role, key *rsa.PrivateKey, encryptedKey string) *custody.Party {
	t.Helper()

	keyID, err := crypto.GenerateKeyIDFromRSAKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("failed to generate key ID: %v", err)
	}
	jwkKey, err := crypto.RSAPublicKeyToJWK(&key.PublicKey, keyID)
	if err != nil {
		t.Fatalf("failed to convert public key to JWK: %v", err)
	}
	jwkJSON, err := json.Marshal(jwkKey)
	if err != nil {
		t.Fatalf("failed to marshal JWK: %v", err)
	}

	party := &custody.Party{
		ID:                  id,
		Role:                role,
		Name:                "Dr. Ana Silva",
		License:             "CRMV-SP 12345",
		KeyID:               keyID,
		PublicKeyJWK:        string(jwkJSON),
		EncryptedPrivateKey: encryptedKey,
		CreatedAt:           time.Now().UTC(),
	}
	if role == custody.RoleClinic {
		party.Name = "PetCare Clinic"
		party.License = ""
		party.Registration = "REG-98765"
	}
	return party
}

// createTestVet generates a key pair and registers a vet party in the store
func createTestVet(t *testing.T, st *store.Postgres) *custody.Party {
	t.Helper()

	vetKey, _, vetJWE, _ := loadTestKeys(t)
	party := newTestParty(t, "vet-001", custody.RoleVet, vetKey, vetJWE)
	if err := party.Validate(); err != nil {
		t.Fatalf("vet party invalid: %v", err)
	}
	if err := st.CreateParty(context.Background(), party); err != nil {
		t.Fatalf("failed to create test vet: %v", err)
	}
	return party
}

// createTestClinic generates a key pair and registers a clinic party in the store
func createTestClinic(t *testing.T, st *store.Postgres) *custody.Party {
	t.Helper()

	_, clinicKey, _, clinicJWE := loadTestKeys(t)
	party := newTestParty(t, "clinic-001", custody.RoleClinic, clinicKey, clinicJWE)
	if err := party.Validate(); err != nil {
		t.Fatalf("clinic party invalid: %v", err)
	}
	if err := st.CreateParty(context.Background(), party); err != nil {
		t.Fatalf("failed to create test clinic: %v", err)
	}
	return party
}

// createTestPet registers a pet in the store
func createTestPet(t *testing.T, st *store.Postgres) *records.Pet {
	t.Helper()

	pet := &records.Pet{
		ID:        "pet-001",
		Name:      "Rex",
		Species:   "DOG",
		Breed:     "Labrador",
		Microchip: "985112003456789",
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreatePet(context.Background(), pet); err != nil {
		t.Fatalf("failed to create test pet: %v", err)
	}
	return pet
}
