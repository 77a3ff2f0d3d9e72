// Package custody implements the party registry and key custody for
// certificate signing: which veterinarians and clinics exist, where their
// public keys live, and how their protected private keys are unlocked for a
// signing call.
package custody

import (
	"fmt"
	"net/url"
	"time"
)

// Role identifies which side of the dual attestation a party signs.
type Role string

const (
	RoleVet    Role = "VET"
	RoleClinic Role = "CLINIC"
)

// Validate checks that the role is one of the known values.
func (r Role) Validate() error {
	switch r {
	case RoleVet, RoleClinic:
		return nil
	default:
		return NewRegistryError(fmt.Sprintf("unknown party role %q", r))
	}
}

// Party is a registered signer: an individual veterinarian or a clinic.
//
// A party's public key can come from three places, checked in order by the
// KeyManager: the embedded JWK on the record, the manual keys directory, or
// the party's remote JWKS endpoint. Parties that sign on this deployment
// additionally carry their private key protected under a party-held secret.
type Party struct {

	// ID uniquely identifies the party (UUID string)
	ID string

	// Role is VET or CLINIC
	Role Role

	// Name is the display name of the vet or clinic
	Name string

	// License is the veterinarian's professional license number.
	// Required for vets, empty for clinics.
	License string

	// Registration is the clinic's registration number.
	// Required for clinics, empty for vets.
	Registration string

	// KeyID is the key ID of the party's signing key.
	// This implementation expects the kid to be the thumbprint of the
	// public key (see crypto.GenerateKeyIDFromRSAKey).
	KeyID string

	// PublicKeyJWK is the party's public key in JWK format (JSON),
	// embedded at registration time. Optional: parties distributing keys
	// through the manual keys directory or a JWKS endpoint leave it empty.
	PublicKeyJWK string

	// JWKSEndpoint is the full URL of the party's JWKS endpoint
	// (e.g., "https://petcare.example.com/.well-known/jwks.json").
	// Optional. It is not allowed to set both PublicKeyJWK and
	// JWKSEndpoint for the same party - choose one or the other.
	JWKSEndpoint string

	// EncryptedPrivateKey is the party's private signing key as a compact
	// JWE, protected under a secret only the party knows (see
	// crypto.EncryptPrivateKey). Present only for parties that sign on
	// this deployment.
	EncryptedPrivateKey string

	// CreatedAt is when the party was registered.
	CreatedAt time.Time
}

// Validate checks that the party record satisfies the registry rules.
func (p *Party) Validate() error {
	if p.ID == "" {
		return NewRegistryError("party ID is required")
	}
	if err := p.Role.Validate(); err != nil {
		return err
	}
	if p.Name == "" {
		return NewRegistryError("party name is required")
	}
	if p.Role == RoleVet && p.License == "" {
		return NewRegistryError("vet parties require a license number")
	}
	if p.Role == RoleClinic && p.Registration == "" {
		return NewRegistryError("clinic parties require a registration number")
	}
	if p.KeyID == "" {
		return NewRegistryError("party key ID is required")
	}

	if p.PublicKeyJWK != "" && p.JWKSEndpoint != "" {
		return NewRegistryError("party must not set both an embedded JWK and a JWKS endpoint")
	}
	if p.JWKSEndpoint != "" {
		u, err := url.Parse(p.JWKSEndpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return NewRegistryError(fmt.Sprintf("invalid JWKS endpoint %q", p.JWKSEndpoint))
		}
	}

	return nil
}

// CredentialReference returns the role-specific credential: the license for
// vets, the registration for clinics.
func (p *Party) CredentialReference() string {
	if p.Role == RoleVet {
		return p.License
	}
	return p.Registration
}
