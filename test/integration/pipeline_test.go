//go:build integration

package integration

// End-to-end test of the certificate pipeline against PostgreSQL: the same
// flow the CLI drives (register, sign, issue, verify) through the real
// schema.

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/hcert"
	"github.com/animal-health-networks/petcert/internal/logger"
	"github.com/animal-health-networks/petcert/internal/records"
)

func TestCertificatePipelinePostgres(t *testing.T) {
	ctx := context.Background()

	logLevel := logger.ParseLogLevel("none")
	if os.Getenv("ENABLE_TEST_LOGS") == "true" {
		logLevel = logger.ParseLogLevel("debug")
	}
	appLogger := logger.InitLogger(logLevel, "test")

	st := setupTestStore(t)

	// Step 1: register the pet and both parties
	pet := createTestPet(t, st)
	vet := createTestVet(t, st)
	clinic := createTestClinic(t, st)

	// Step 2: wire the services against the store, the way the CLI does
	keyManager, err := custody.NewKeyManager(ctx, st,
		custody.NewKeyManagerConfig("", true, 15*time.Minute, 12*time.Hour), appLogger)
	if err != nil {
		t.Fatalf("failed to create key manager: %v", err)
	}
	signing := records.NewSigningService(st, st, st, keyManager, appLogger)
	issuance := records.NewIssuanceService(st, st, appLogger)
	verification := records.NewVerificationService(st, keyManager, appLogger)

	// Step 3: sign a vaccine record and check it persisted intact
	record, err := signing.SignRecord(ctx, records.SignRecordInput{
		PetID:       pet.ID,
		VetID:       vet.ID,
		ClinicID:    clinic.ID,
		Type:        records.RecordTypeVaccine,
		Date:        "2026-03-15",
		Description: "Annual rabies booster",
		Vaccine: &records.VaccineDetails{
			Name:       "Rabivax",
			Batch:      "RB-2026-031",
			Laboratory: "VetLabs",
			ValidFrom:  "2026-03-15",
			ValidUntil: "2027-03-15",
			Rabies:     true,
		},
		VetSecret:    testVetSecret,
		ClinicSecret: testClinicSecret,
	})
	if err != nil {
		t.Fatalf("failed to sign record: %v", err)
	}

	stored, err := st.GetRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("failed to reload signed record: %v", err)
	}
	if string(stored.VetSignature) != string(record.VetSignature) {
		t.Error("vet signature changed across the database round-trip")
	}

	// Step 4: issue the certificate and render the scannable text
	certificate, err := issuance.IssueCertificate(ctx, record.ID)
	if err != nil {
		t.Fatalf("failed to issue certificate: %v", err)
	}
	text, err := records.QRText(certificate)
	if err != nil {
		t.Fatalf("failed to render certificate text: %v", err)
	}
	if !strings.HasPrefix(text, "HC1:") {
		t.Fatalf("certificate text does not carry the HC1: scheme: %q", text)
	}

	// Step 5: the text derived from the reloaded certificate must be
	// identical - the claims JSON is stored byte-exact for this reason
	reloaded, err := st.GetCertificate(ctx, certificate.Number)
	if err != nil {
		t.Fatalf("failed to reload certificate: %v", err)
	}
	reloadedText, err := records.QRText(reloaded)
	if err != nil {
		t.Fatalf("failed to render reloaded certificate text: %v", err)
	}
	if reloadedText != text {
		t.Error("certificate text is not stable across a database round-trip")
	}

	// Step 6: verify the scanned text against the stored certificate
	result, err := verification.VerifyText(ctx, certificate.Number, text)
	if err != nil {
		t.Fatalf("verification failed to run: %v", err)
	}
	if !result.Valid() {
		t.Fatalf("certificate did not verify: reason=%s detail=%s", result.Reason, result.Detail)
	}
	if name, _ := result.Claims.GetString(hcert.ClaimKeyName); name != "Rex" {
		t.Errorf("verified claims carry pet name %q, want %q", name, "Rex")
	}

	// Step 7: a tampered scan must fail closed
	tampered := []byte(text)
	tampered[len(tampered)-2] ^= 0x01
	result, err = verification.VerifyText(ctx, certificate.Number, string(tampered))
	if err != nil {
		t.Fatalf("verification of tampered text failed to run: %v", err)
	}
	if result.Valid() {
		t.Error("tampered certificate text verified as valid")
	}

	// Step 8: a record without a vaccine block goes through the same flow
	treatment, err := signing.SignRecord(ctx, records.SignRecordInput{
		PetID:        pet.ID,
		VetID:        vet.ID,
		ClinicID:     clinic.ID,
		Type:         records.RecordTypeTreatment,
		Date:         "2026-04-02",
		Description:  "Ear infection treatment",
		VetSecret:    testVetSecret,
		ClinicSecret: testClinicSecret,
	})
	if err != nil {
		t.Fatalf("failed to sign treatment record: %v", err)
	}
	treatmentCert, err := issuance.IssueCertificate(ctx, treatment.ID)
	if err != nil {
		t.Fatalf("failed to issue treatment certificate: %v", err)
	}
	treatmentText, err := records.QRText(treatmentCert)
	if err != nil {
		t.Fatalf("failed to render treatment certificate text: %v", err)
	}
	result, err = verification.VerifyText(ctx, treatmentCert.Number, treatmentText)
	if err != nil {
		t.Fatalf("treatment verification failed to run: %v", err)
	}
	if !result.Valid() {
		t.Fatalf("treatment certificate did not verify: reason=%s detail=%s", result.Reason, result.Detail)
	}
}
