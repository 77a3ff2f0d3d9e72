package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/records"
)

// Memory is an in-memory Store for tests and local experiments.
//
// It mirrors the Postgres semantics: inserts fail with ErrAlreadyExists on a
// duplicate ID and reads fail with ErrNotFound, wrapped in the same error
// messages.
type Memory struct {
	mu             sync.RWMutex
	pets           map[string]records.Pet
	parties        map[string]custody.Party
	medicalRecords map[string]records.MedicalRecord
	certificates   map[string]records.Certificate
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		pets:           make(map[string]records.Pet),
		parties:        make(map[string]custody.Party),
		medicalRecords: make(map[string]records.MedicalRecord),
		certificates:   make(map[string]records.Certificate),
	}
}

func (m *Memory) CreatePet(_ context.Context, pet *records.Pet) error {
	if pet == nil {
		return fmt.Errorf("pet is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pets[pet.ID]; ok {
		return fmt.Errorf("pet %s: %w", pet.ID, ErrAlreadyExists)
	}
	m.pets[pet.ID] = *pet
	return nil
}

func (m *Memory) GetPet(_ context.Context, petID string) (*records.Pet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pet, ok := m.pets[petID]
	if !ok {
		return nil, fmt.Errorf("pet %s: %w", petID, ErrNotFound)
	}
	return &pet, nil
}

func (m *Memory) CreateParty(_ context.Context, party *custody.Party) error {
	if party == nil {
		return fmt.Errorf("party is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.parties[party.ID]; ok {
		return fmt.Errorf("party %s: %w", party.ID, ErrAlreadyExists)
	}
	m.parties[party.ID] = *party
	return nil
}

func (m *Memory) GetParty(_ context.Context, partyID string) (*custody.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	party, ok := m.parties[partyID]
	if !ok {
		return nil, fmt.Errorf("party %s: %w", partyID, ErrNotFound)
	}
	return &party, nil
}

func (m *Memory) CreateRecord(_ context.Context, record *records.MedicalRecord) error {
	if record == nil {
		return fmt.Errorf("medical record is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.medicalRecords[record.ID]; ok {
		return fmt.Errorf("medical record %s: %w", record.ID, ErrAlreadyExists)
	}
	m.medicalRecords[record.ID] = cloneRecord(record)
	return nil
}

func (m *Memory) GetRecord(_ context.Context, recordID string) (*records.MedicalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.medicalRecords[recordID]
	if !ok {
		return nil, fmt.Errorf("medical record %s: %w", recordID, ErrNotFound)
	}
	clone := cloneRecord(&record)
	return &clone, nil
}

func (m *Memory) CreateCertificate(_ context.Context, certificate *records.Certificate) error {
	if certificate == nil {
		return fmt.Errorf("certificate is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.certificates[certificate.Number]; ok {
		return fmt.Errorf("certificate %s: %w", certificate.Number, ErrAlreadyExists)
	}
	m.certificates[certificate.Number] = cloneCertificate(certificate)
	return nil
}

func (m *Memory) GetCertificate(_ context.Context, number string) (*records.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	certificate, ok := m.certificates[number]
	if !ok {
		return nil, fmt.Errorf("certificate %s: %w", number, ErrNotFound)
	}
	clone := cloneCertificate(&certificate)
	return &clone, nil
}

// cloneRecord deep-copies a medical record. A plain struct copy would share
// the vaccine pointer and the signature slices with the caller, letting a
// mutation on a returned record reach back into the store.
func cloneRecord(record *records.MedicalRecord) records.MedicalRecord {
	clone := *record
	clone.VetSignature = append([]byte(nil), record.VetSignature...)
	clone.ClinicSignature = append([]byte(nil), record.ClinicSignature...)
	if record.Snapshot.Vaccine != nil {
		vaccine := *record.Snapshot.Vaccine
		clone.Snapshot.Vaccine = &vaccine
	}
	return clone
}

// cloneCertificate deep-copies a certificate, detaching the signature slices.
func cloneCertificate(certificate *records.Certificate) records.Certificate {
	clone := *certificate
	clone.VetSignature = append([]byte(nil), certificate.VetSignature...)
	clone.ClinicSignature = append([]byte(nil), certificate.ClinicSignature...)
	return clone
}
