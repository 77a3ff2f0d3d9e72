package records

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/animal-health-networks/petcert/internal/crypto"
	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/hcert"
)

const (
	testVetSecret    = "vet unlock secret"
	testClinicSecret = "clinic unlock secret"
)

// Key generation and JWE protection are slow, so the key fixtures are shared
// across tests.
type recordsTestKeys struct {
	once      sync.Once
	vet       *rsa.PrivateKey
	clinic    *rsa.PrivateKey
	vetJWE    string
	clinicJWE string
	err       error
}

var testKeys recordsTestKeys

func loadTestKeys(t *testing.T) *recordsTestKeys {
	t.Helper()
	testKeys.once.Do(func() {
		vet, err := crypto.GenerateRSAKeyPair(2048)
		if err != nil {
			testKeys.err = err
			return
		}
		clinic, err := crypto.GenerateRSAKeyPair(2048)
		if err != nil {
			testKeys.err = err
			return
		}
		vetJWE, err := crypto.EncryptPrivateKey(vet, testVetSecret)
		if err != nil {
			testKeys.err = err
			return
		}
		clinicJWE, err := crypto.EncryptPrivateKey(clinic, testClinicSecret)
		if err != nil {
			testKeys.err = err
			return
		}
		testKeys.vet = vet
		testKeys.clinic = clinic
		testKeys.vetJWE = vetJWE
		testKeys.clinicJWE = clinicJWE
	})
	if testKeys.err != nil {
		t.Fatalf("failed to build test keys: %v", testKeys.err)
	}
	return &testKeys
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testParty builds a registered party with an embedded public JWK and a
// protected private key.
func testParty(t *testing.T, id string, role custody.Role, key *rsa.PrivateKey, encryptedKey string) *custody.Party {
	t.Helper()
	keyID, err := crypto.GenerateKeyIDFromRSAKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("failed to derive key ID: %v", err)
	}
	publicJWK, err := crypto.RSAPublicKeyToJWK(&key.PublicKey, keyID)
	if err != nil {
		t.Fatalf("failed to convert public key to JWK: %v", err)
	}
	jwkJSON, err := json.Marshal(publicJWK)
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

func testPet() *Pet {
	return &Pet{
		ID:        "pet-001",
		Name:      "Rex",
		Species:   "DOG",
		Breed:     "Labrador",
		Microchip: "985112003456789",
		CreatedAt: time.Now().UTC(),
	}
}

func testVaccine() *VaccineDetails {
	return &VaccineDetails{
		Name:       "Rabivax",
		Batch:      "RB-2026-031",
		Laboratory: "VetLabs",
		ValidFrom:  "2026-03-15",
		ValidUntil: "2027-03-15",
		Rabies:     true,
	}
}

// fakeStore is an in-memory stand-in for the store layer. It implements
// PetSource, RecordStore, CertificateStore and custody.PartySource.
type fakeStore struct {
	pets         map[string]*Pet
	parties      map[string]*custody.Party
	records      map[string]*MedicalRecord
	certificates map[string]*Certificate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pets:         make(map[string]*Pet),
		parties:      make(map[string]*custody.Party),
		records:      make(map[string]*MedicalRecord),
		certificates: make(map[string]*Certificate),
	}
}

func (f *fakeStore) GetPet(ctx context.Context, petID string) (*Pet, error) {
	pet, ok := f.pets[petID]
	if !ok {
		return nil, fmt.Errorf("pet not found: %s", petID)
	}
	return pet, nil
}

func (f *fakeStore) GetParty(ctx context.Context, partyID string) (*custody.Party, error) {
	party, ok := f.parties[partyID]
	if !ok {
		return nil, fmt.Errorf("party not found: %s", partyID)
	}
	return party, nil
}

func (f *fakeStore) CreateRecord(ctx context.Context, record *MedicalRecord) error {
	if _, exists := f.records[record.ID]; exists {
		return fmt.Errorf("record already exists: %s", record.ID)
	}
	f.records[record.ID] = record
	return nil
}

func (f *fakeStore) GetRecord(ctx context.Context, recordID string) (*MedicalRecord, error) {
	record, ok := f.records[recordID]
	if !ok {
		return nil, fmt.Errorf("record not found: %s", recordID)
	}
	return record, nil
}

func (f *fakeStore) CreateCertificate(ctx context.Context, certificate *Certificate) error {
	if _, exists := f.certificates[certificate.Number]; exists {
		return fmt.Errorf("certificate already exists: %s", certificate.Number)
	}
	f.certificates[certificate.Number] = certificate
	return nil
}

func (f *fakeStore) GetCertificate(ctx context.Context, number string) (*Certificate, error) {
	certificate, ok := f.certificates[number]
	if !ok {
		return nil, fmt.Errorf("certificate not found: %s", number)
	}
	return certificate, nil
}

// signingFixture wires a populated fake store, a key manager and the signing
// service.
type signingFixture struct {
	store   *fakeStore
	keys    *custody.KeyManager
	signing *SigningService
	vet     *custody.Party
	clinic  *custody.Party
}

func newSigningFixture(t *testing.T) *signingFixture {
	t.Helper()
	keys := loadTestKeys(t)

	store := newFakeStore()
	pet := testPet()
	vet := testParty(t, "vet-001", custody.RoleVet, keys.vet, keys.vetJWE)
	clinic := testParty(t, "clinic-001", custody.RoleClinic, keys.clinic, keys.clinicJWE)
	store.pets[pet.ID] = pet
	store.parties[vet.ID] = vet
	store.parties[clinic.ID] = clinic

	config := custody.NewKeyManagerConfig("", true, 15*time.Minute, 12*time.Hour)
	keyManager, err := custody.NewKeyManager(context.Background(), store, config, testLogger())
	if err != nil {
		t.Fatalf("failed to create key manager: %v", err)
	}

	return &signingFixture{
		store:   store,
		keys:    keyManager,
		signing: NewSigningService(store, store, store, keyManager, testLogger()),
		vet:     vet,
		clinic:  clinic,
	}
}

func validSignInput() SignRecordInput {
	return SignRecordInput{
		PetID:        "pet-001",
		VetID:        "vet-001",
		ClinicID:     "clinic-001",
		Type:         RecordTypeVaccine,
		Date:         "2026-03-15",
		Description:  "Annual rabies booster",
		Vaccine:      testVaccine(),
		VetSecret:    testVetSecret,
		ClinicSecret: testClinicSecret,
	}
}

func TestSignRecord(t *testing.T) {
	fixture := newSigningFixture(t)
	keys := loadTestKeys(t)

	record, err := fixture.signing.SignRecord(context.Background(), validSignInput())
	if err != nil {
		t.Fatalf("SignRecord() returned error: %v", err)
	}

	if record.ID == "" {
		t.Error("record ID was not allocated")
	}
	if record.PetID != "pet-001" || record.VetID != "vet-001" || record.ClinicID != "clinic-001" {
		t.Errorf("record references wrong: pet %s vet %s clinic %s", record.PetID, record.VetID, record.ClinicID)
	}
	if record.VetKeyID != fixture.vet.KeyID {
		t.Errorf("record vet key ID = %s, want %s", record.VetKeyID, fixture.vet.KeyID)
	}
	if record.ClinicKeyID != fixture.clinic.KeyID {
		t.Errorf("record clinic key ID = %s, want %s", record.ClinicKeyID, fixture.clinic.KeyID)
	}
	if record.SignedAt.IsZero() {
		t.Error("record SignedAt was not set")
	}

	// the snapshot captured the pet and party state
	if record.Snapshot.PetName != "Rex" || record.Snapshot.VetName != "Dr. Ana Silva" || record.Snapshot.ClinicName != "PetCare Clinic" {
		t.Errorf("snapshot identity fields wrong: %+v", record.Snapshot)
	}
	if record.Snapshot.Vaccine == nil || !record.Snapshot.Vaccine.Rabies {
		t.Error("snapshot vaccine block missing or wrong")
	}

	// the record was persisted
	stored, err := fixture.store.GetRecord(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("signed record was not persisted: %v", err)
	}
	if stored != record {
		t.Error("persisted record differs from the returned record")
	}

	// both signatures verify over the canonical signable string
	signable, err := hcert.SignableString(&record.Snapshot)
	if err != nil {
		t.Fatalf("SignableString() returned error: %v", err)
	}
	data := []byte(signable)

	valid, err := crypto.VerifyPSS(&keys.vet.PublicKey, data, record.VetSignature)
	if err != nil || !valid {
		t.Errorf("vet signature does not verify: valid=%v err=%v", valid, err)
	}
	valid, err = crypto.VerifyPSS(&keys.clinic.PublicKey, data, record.ClinicSignature)
	if err != nil || !valid {
		t.Errorf("clinic signature does not verify: valid=%v err=%v", valid, err)
	}

	// the signatures are not interchangeable
	valid, err = crypto.VerifyPSS(&keys.vet.PublicKey, data, record.ClinicSignature)
	if err != nil {
		t.Fatalf("VerifyPSS() returned error: %v", err)
	}
	if valid {
		t.Error("clinic signature verified with the vet key")
	}
}

func TestSignRecord_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(input *SignRecordInput)
	}{
		{"unknown record type", func(input *SignRecordInput) { input.Type = "GROOMING" }},
		{"unknown pet", func(input *SignRecordInput) { input.PetID = "pet-999" }},
		{"unknown vet", func(input *SignRecordInput) { input.VetID = "vet-999" }},
		{"clinic in the vet slot", func(input *SignRecordInput) { input.VetID = "clinic-001" }},
		{"vet in the clinic slot", func(input *SignRecordInput) { input.ClinicID = "vet-001" }},
		{"vaccine record without vaccine block", func(input *SignRecordInput) { input.Vaccine = nil }},
		{"vaccine block on a treatment record", func(input *SignRecordInput) { input.Type = RecordTypeTreatment }},
		{"bad date", func(input *SignRecordInput) { input.Date = "15/03/2026" }},
		{"separator in description", func(input *SignRecordInput) { input.Description = "pipe | in text" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := newSigningFixture(t)
			input := validSignInput()
			tt.mutate(&input)

			_, err := fixture.signing.SignRecord(context.Background(), input)
			if err == nil {
				t.Fatal("expected an error, but got no error")
			}
			if len(fixture.store.records) != 0 {
				t.Error("a record was persisted despite the failure")
			}
		})
	}
}

func TestSignRecord_VaccineWithoutBlockCode(t *testing.T) {
	fixture := newSigningFixture(t)
	input := validSignInput()
	input.Vaccine = nil

	_, err := fixture.signing.SignRecord(context.Background(), input)
	if err == nil {
		t.Fatal("expected an error, but got no error")
	}

	var certErr hcert.Error
	if !errors.As(err, &certErr) {
		t.Fatalf("expected an hcert error, got %T: %v", err, err)
	}
	if certErr.Code() != hcert.ErrCodeInvalidClaims {
		t.Errorf("error code = %q, want %q", certErr.Code(), hcert.ErrCodeInvalidClaims)
	}
}

func TestSignRecord_WrongSecret(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(input *SignRecordInput)
	}{
		{"wrong vet secret", func(input *SignRecordInput) { input.VetSecret = "wrong" }},
		{"wrong clinic secret", func(input *SignRecordInput) { input.ClinicSecret = "wrong" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := newSigningFixture(t)
			input := validSignInput()
			tt.mutate(&input)

			_, err := fixture.signing.SignRecord(context.Background(), input)
			if err == nil {
				t.Fatal("expected an error, but got no error")
			}

			// the signing failure wraps the custody key unlock failure
			var recErr Error
			if !errors.As(err, &recErr) {
				t.Fatalf("expected a records error, got %T: %v", err, err)
			}
			if recErr.Code() != ErrCodeSigning {
				t.Errorf("records error code = %q, want %q", recErr.Code(), ErrCodeSigning)
			}
			var custodyErr custody.Error
			if !errors.As(err, &custodyErr) {
				t.Fatalf("expected a wrapped custody error, got %v", err)
			}
			if custodyErr.Code() != custody.ErrCodeKeyUnlock {
				t.Errorf("custody error code = %q, want %q", custodyErr.Code(), custody.ErrCodeKeyUnlock)
			}
			if len(fixture.store.records) != 0 {
				t.Error("a record was persisted despite the failure")
			}
		})
	}
}

// an annual check has no vaccine block and must sign cleanly
func TestSignRecord_AnnualCheck(t *testing.T) {
	fixture := newSigningFixture(t)

	input := validSignInput()
	input.Type = RecordTypeAnnualCheck
	input.Date = "2026-04-02"
	input.Description = "Routine annual checkup, all normal"
	input.Vaccine = nil

	record, err := fixture.signing.SignRecord(context.Background(), input)
	if err != nil {
		t.Fatalf("SignRecord() returned error: %v", err)
	}
	if record.Snapshot.Vaccine != nil {
		t.Error("annual check snapshot carries a vaccine block")
	}
	if record.Snapshot.RecordType != string(RecordTypeAnnualCheck) {
		t.Errorf("snapshot record type = %s, want %s", record.Snapshot.RecordType, RecordTypeAnnualCheck)
	}
}
