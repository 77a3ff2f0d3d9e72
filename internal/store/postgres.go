package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/records"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the PostgreSQL-backed Store.
//
// The caller owns the pool: construction, tuning and Ping happen in the CLI
// setup, and Close releases the pool when the command finishes.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres returns a Store backed by the given connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close closes the underlying connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const createPetSQL = `
INSERT INTO pets (id, name, species, breed, microchip, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

func (s *Postgres) CreatePet(ctx context.Context, pet *records.Pet) error {
	if pet == nil {
		return fmt.Errorf("pet is required")
	}
	_, err := s.pool.Exec(ctx, createPetSQL,
		pet.ID, pet.Name, pet.Species, pet.Breed, pet.Microchip, pet.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pet %s: %w", pet.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("create pet: %w", err)
	}
	return nil
}

const getPetSQL = `
SELECT id, name, species, breed, microchip, created_at
FROM pets
WHERE id = $1`

func (s *Postgres) GetPet(ctx context.Context, petID string) (*records.Pet, error) {
	var pet records.Pet
	err := s.pool.QueryRow(ctx, getPetSQL, petID).Scan(
		&pet.ID, &pet.Name, &pet.Species, &pet.Breed, &pet.Microchip, &pet.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pet %s: %w", petID, ErrNotFound)
		}
		return nil, fmt.Errorf("get pet: %w", err)
	}
	return &pet, nil
}

const createPartySQL = `
INSERT INTO parties (id, role, name, license, registration, key_id, public_key_jwk, jwks_endpoint, encrypted_private_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *Postgres) CreateParty(ctx context.Context, party *custody.Party) error {
	if party == nil {
		return fmt.Errorf("party is required")
	}
	_, err := s.pool.Exec(ctx, createPartySQL,
		party.ID, string(party.Role), party.Name, party.License, party.Registration,
		party.KeyID, party.PublicKeyJWK, party.JWKSEndpoint, party.EncryptedPrivateKey,
		party.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("party %s: %w", party.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("create party: %w", err)
	}
	return nil
}

const getPartySQL = `
SELECT id, role, name, license, registration, key_id, public_key_jwk, jwks_endpoint, encrypted_private_key, created_at
FROM parties
WHERE id = $1`

func (s *Postgres) GetParty(ctx context.Context, partyID string) (*custody.Party, error) {
	var (
		party custody.Party
		role  string
	)
	err := s.pool.QueryRow(ctx, getPartySQL, partyID).Scan(
		&party.ID, &role, &party.Name, &party.License, &party.Registration,
		&party.KeyID, &party.PublicKeyJWK, &party.JWKSEndpoint, &party.EncryptedPrivateKey,
		&party.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("party %s: %w", partyID, ErrNotFound)
		}
		return nil, fmt.Errorf("get party: %w", err)
	}
	party.Role = custody.Role(role)
	return &party, nil
}

const createRecordSQL = `
INSERT INTO medical_records (id, pet_id, vet_id, clinic_id, snapshot, vet_signature, clinic_signature, vet_key_id, clinic_key_id, signed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *Postgres) CreateRecord(ctx context.Context, record *records.MedicalRecord) error {
	if record == nil {
		return fmt.Errorf("medical record is required")
	}
	snapshotJSON, err := json.Marshal(record.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal record snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, createRecordSQL,
		record.ID, record.PetID, record.VetID, record.ClinicID, string(snapshotJSON),
		record.VetSignature, record.ClinicSignature,
		record.VetKeyID, record.ClinicKeyID, record.SignedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("medical record %s: %w", record.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("create medical record: %w", err)
	}
	return nil
}

const getRecordSQL = `
SELECT id, pet_id, vet_id, clinic_id, snapshot, vet_signature, clinic_signature, vet_key_id, clinic_key_id, signed_at
FROM medical_records
WHERE id = $1`

func (s *Postgres) GetRecord(ctx context.Context, recordID string) (*records.MedicalRecord, error) {
	var (
		record       records.MedicalRecord
		snapshotJSON string
	)
	err := s.pool.QueryRow(ctx, getRecordSQL, recordID).Scan(
		&record.ID, &record.PetID, &record.VetID, &record.ClinicID, &snapshotJSON,
		&record.VetSignature, &record.ClinicSignature,
		&record.VetKeyID, &record.ClinicKeyID, &record.SignedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("medical record %s: %w", recordID, ErrNotFound)
		}
		return nil, fmt.Errorf("get medical record: %w", err)
	}
	if err := json.Unmarshal([]byte(snapshotJSON), &record.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal record snapshot: %w", err)
	}
	return &record, nil
}

const createCertificateSQL = `
INSERT INTO certificates (number, record_id, claims_json, claims_hash, vet_signature, clinic_signature, vet_party_id, clinic_party_id, vet_key_id, clinic_key_id, issued_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *Postgres) CreateCertificate(ctx context.Context, certificate *records.Certificate) error {
	if certificate == nil {
		return fmt.Errorf("certificate is required")
	}
	_, err := s.pool.Exec(ctx, createCertificateSQL,
		certificate.Number, certificate.RecordID,
		certificate.ClaimsJSON, certificate.ClaimsHash,
		certificate.VetSignature, certificate.ClinicSignature,
		certificate.VetPartyID, certificate.ClinicPartyID,
		certificate.VetKeyID, certificate.ClinicKeyID,
		certificate.IssuedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("certificate %s: %w", certificate.Number, ErrAlreadyExists)
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

const getCertificateSQL = `
SELECT number, record_id, claims_json, claims_hash, vet_signature, clinic_signature, vet_party_id, clinic_party_id, vet_key_id, clinic_key_id, issued_at
FROM certificates
WHERE number = $1`

func (s *Postgres) GetCertificate(ctx context.Context, number string) (*records.Certificate, error) {
	var certificate records.Certificate
	err := s.pool.QueryRow(ctx, getCertificateSQL, number).Scan(
		&certificate.Number, &certificate.RecordID,
		&certificate.ClaimsJSON, &certificate.ClaimsHash,
		&certificate.VetSignature, &certificate.ClinicSignature,
		&certificate.VetPartyID, &certificate.ClinicPartyID,
		&certificate.VetKeyID, &certificate.ClinicKeyID,
		&certificate.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("certificate %s: %w", number, ErrNotFound)
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return &certificate, nil
}
