// Package store persists the registry and certificate data: pets, parties,
// signed medical records and issued certificates.
//
// Two implementations are provided. Postgres is the production store, backed
// by a pgx connection pool with the schema managed through goose migrations.
// Memory backs tests and local experiments with the same semantics.
//
// Medical records and certificates are insert-only: the store exposes no way
// to update or delete them, matching the immutability of the signed content.
package store

import (
	"context"
	"errors"

	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/records"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when an insert collides with an existing ID.
var ErrAlreadyExists = errors.New("already exists")

// Store is the full persistence surface the CLI and the services run
// against. *Postgres and *Memory both implement it, and its method set
// covers the narrower read interfaces the domain packages declare
// (records.PetSource, records.RecordStore, records.CertificateStore,
// custody.PartySource).
type Store interface {
	CreatePet(ctx context.Context, pet *records.Pet) error
	GetPet(ctx context.Context, petID string) (*records.Pet, error)

	CreateParty(ctx context.Context, party *custody.Party) error
	GetParty(ctx context.Context, partyID string) (*custody.Party, error)

	CreateRecord(ctx context.Context, record *records.MedicalRecord) error
	GetRecord(ctx context.Context, recordID string) (*records.MedicalRecord, error)

	CreateCertificate(ctx context.Context, certificate *records.Certificate) error
	GetCertificate(ctx context.Context, number string) (*records.Certificate, error)
}
