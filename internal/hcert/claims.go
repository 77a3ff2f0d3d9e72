// Package hcert implements the pet health certificate wire format: canonical
// claims construction, the dual-signature envelope, compression and the
// HC1: Base45 text transport, plus the verification pipeline that reverses
// them.
//
// A certificate attests to one medical record. The attested data exists in two
// distinct serializations that must never be conflated:
//
//   - the canonical signable string (signable.go) - the pipe-delimited text
//     the vet and the clinic sign at record-creation time
//   - the claims map (this file) - the insertion-ordered structure that is
//     CBOR-encoded into the envelope payload and hashed for tamper detection
//
// Both are derived from the same immutable Snapshot captured when the record
// is signed, so they cannot diverge after the fact.
package hcert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Top-level claims keys, in the order they appear in every certificate.
const (
	ClaimKeyID          = "id"
	ClaimKeyName        = "name"
	ClaimKeySpecies     = "species"
	ClaimKeyBreed       = "breed"
	ClaimKeyMicrochip   = "microchip"
	ClaimKeyVet         = "vet"
	ClaimKeyClinic      = "clinic"
	ClaimKeyType        = "type"
	ClaimKeyDate        = "date"
	ClaimKeyDescription = "description"
	ClaimKeyVaccine     = "vaccine"
)

// nested map keys
const (
	claimKeyPartyID      = "id"
	claimKeyPartyName    = "name"
	claimKeyLicense      = "license"
	claimKeyRegistration = "registration"
	claimKeyVaccineName  = "name"
	claimKeyVaccineBatch = "batch"
	claimKeyLaboratory   = "laboratory"
	claimKeyValidFrom    = "validFrom"
	claimKeyValidUntil   = "validUntil"
	claimKeyRabies       = "rabies"
)

// recordTypeVaccine is the record type that requires a vaccine block.
const recordTypeVaccine = "VACCINE"

// claimsDateFormat is the date layout used by the date and vaccine validity claims.
const claimsDateFormat = "2006-01-02"

// expected claims sizes, used to reject claims with unknown fields
const (
	baseClaimsLen    = 10
	vaccineClaimsLen = baseClaimsLen + 1
	partyClaimsLen   = 3
	vaccineBlockLen  = 6
)

// Snapshot is the immutable set of record fields captured at signing time.
//
// The snapshot is the single source for both serializations of a certificate:
// the canonical signable string (what the vet and clinic sign) and the claims
// map (what the envelope carries). Certificate issuance must always read the
// snapshot persisted with the signed record, never current mutable record
// state, otherwise signature verification would pass against stale data.
type Snapshot struct {
	PetID     string `json:"petId"`
	PetName   string `json:"petName"`
	Species   string `json:"species"`
	Breed     string `json:"breed"`
	Microchip string `json:"microchip"`

	VetID      string `json:"vetId"`
	VetName    string `json:"vetName"`
	VetLicense string `json:"vetLicense"`

	ClinicID           string `json:"clinicId"`
	ClinicName         string `json:"clinicName"`
	ClinicRegistration string `json:"clinicRegistration"`

	RecordType  string `json:"recordType"`
	Date        string `json:"date"`
	Description string `json:"description"`

	// Vaccine must be present exactly when RecordType is VACCINE
	Vaccine *VaccineClaims `json:"vaccine,omitempty"`
}

// VaccineClaims holds the vaccine sub-fields of a VACCINE record.
type VaccineClaims struct {
	Name       string `json:"name"`
	Batch      string `json:"batch"`
	Laboratory string `json:"laboratory"`
	ValidFrom  string `json:"validFrom"`
	ValidUntil string `json:"validUntil"`
	Rabies     bool   `json:"rabies"`
}

// Validate checks that the snapshot satisfies the claims rules: required
// pet/vet/clinic identity fields are present, the vaccine block is present
// exactly when the record type requires it, dates parse, and no field
// contains the signable-string field separator.
func (s *Snapshot) Validate() error {
	required := []struct {
		value string
		what  string
	}{
		{s.PetID, "pet id"},
		{s.PetName, "pet name"},
		{s.Species, "species"},
		{s.VetID, "vet id"},
		{s.VetName, "vet name"},
		{s.VetLicense, "vet license"},
		{s.ClinicID, "clinic id"},
		{s.ClinicName, "clinic name"},
		{s.RecordType, "record type"},
		{s.Date, "record date"},
	}
	for _, f := range required {
		if f.value == "" {
			return NewInvalidClaimsError(fmt.Sprintf("%s is required", f.what))
		}
	}

	if _, err := time.Parse(claimsDateFormat, s.Date); err != nil {
		return NewInvalidClaimsError(fmt.Sprintf("record date must be formatted as %s", claimsDateFormat))
	}

	if s.RecordType == recordTypeVaccine && s.Vaccine == nil {
		return NewInvalidClaimsError("vaccine records require vaccine details")
	}
	if s.RecordType != recordTypeVaccine && s.Vaccine != nil {
		return NewInvalidClaimsError(fmt.Sprintf("vaccine details are only valid for %s records", recordTypeVaccine))
	}

	if s.Vaccine != nil {
		if s.Vaccine.Name == "" {
			return NewInvalidClaimsError("vaccine name is required")
		}
		if s.Vaccine.Batch == "" {
			return NewInvalidClaimsError("vaccine batch is required")
		}
		if s.Vaccine.Laboratory == "" {
			return NewInvalidClaimsError("vaccine laboratory is required")
		}
		for _, d := range []string{s.Vaccine.ValidFrom, s.Vaccine.ValidUntil} {
			if d == "" {
				continue
			}
			if _, err := time.Parse(claimsDateFormat, d); err != nil {
				return NewInvalidClaimsError(fmt.Sprintf("vaccine validity dates must be formatted as %s", claimsDateFormat))
			}
		}
	}

	// the separator would make the signable string ambiguous
	for _, v := range s.fieldValues() {
		if strings.Contains(v, signableFieldSeparator) {
			return NewInvalidClaimsError(fmt.Sprintf("claims fields must not contain %q", signableFieldSeparator))
		}
	}

	return nil
}

// Claims is an insertion-ordered map of certificate claims.
//
// Order is significant: the CBOR payload and the persisted claims JSON both
// preserve it, so that a decoded certificate re-encodes to identical bytes.
// Values are strings, bools, int64s or nested *Claims maps.
type Claims struct {
	pairs []ClaimPair
}

// ClaimPair is a single key/value entry of a Claims map.
type ClaimPair struct {
	Key   string
	Value any
}

// NewClaims creates an empty claims map.
func NewClaims() *Claims {
	return &Claims{}
}

// Len returns the number of entries.
func (c *Claims) Len() int {
	return len(c.pairs)
}

// Keys returns the claim keys in insertion order.
func (c *Claims) Keys() []string {
	keys := make([]string, len(c.pairs))
	for i, p := range c.pairs {
		keys[i] = p.Key
	}
	return keys
}

// Pairs returns a copy of the entries in insertion order.
func (c *Claims) Pairs() []ClaimPair {
	pairs := make([]ClaimPair, len(c.pairs))
	copy(pairs, c.pairs)
	return pairs
}

// Get returns the value for key.
func (c *Claims) Get(key string) (any, bool) {
	for _, p := range c.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// GetString returns the string value for key.
func (c *Claims) GetString(key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetBool returns the bool value for key.
func (c *Claims) GetBool(key string) (bool, bool) {
	v, ok := c.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetClaims returns the nested claims map for key.
func (c *Claims) GetClaims(key string) (*Claims, bool) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	nested, ok := v.(*Claims)
	return nested, ok
}

// Set sets key to value, replacing an existing entry in place (the key keeps
// its original position) or appending a new one.
func (c *Claims) Set(key string, value any) {
	for i, p := range c.pairs {
		if p.Key == key {
			c.pairs[i].Value = value
			return
		}
	}
	c.pairs = append(c.pairs, ClaimPair{Key: key, Value: value})
}

// add appends a new entry, rejecting duplicate keys. Used by the decoders.
func (c *Claims) add(key string, value any) error {
	for _, p := range c.pairs {
		if p.Key == key {
			return fmt.Errorf("duplicate claims key %q", key)
		}
	}
	c.pairs = append(c.pairs, ClaimPair{Key: key, Value: value})
	return nil
}

// Equal reports whether two claims maps hold the same entries in the same order.
func (c *Claims) Equal(other *Claims) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.pairs) != len(other.pairs) {
		return false
	}
	for i, p := range c.pairs {
		o := other.pairs[i]
		if p.Key != o.Key {
			return false
		}
		if !claimValueEqual(p.Value, o.Value) {
			return false
		}
	}
	return true
}

func claimValueEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case *Claims:
		bv, ok := b.(*Claims)
		return ok && av.Equal(bv)
	default:
		return false
	}
}

// MarshalJSON serializes the claims map preserving insertion order.
func (c *Claims) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Claims) appendJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, p := range c.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(p.Key)
		if err != nil {
			return err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')

		switch v := p.Value.(type) {
		case *Claims:
			if err := v.appendJSON(buf); err != nil {
				return err
			}
		case string, bool, int64:
			valueJSON, err := json.Marshal(v)
			if err != nil {
				return err
			}
			buf.Write(valueJSON)
		default:
			return fmt.Errorf("unsupported claims value type %T for key %q", p.Value, p.Key)
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON deserializes a claims object preserving the document's key
// order, which encoding/json's map decoding would lose. Numbers must be
// integers; nulls and arrays are not valid claims values.
func (c *Claims) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read claims JSON: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("claims JSON must be an object")
	}

	pairs, err := decodeClaimsObject(dec)
	if err != nil {
		return err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected content after claims object")
	}

	c.pairs = pairs
	return nil
}

// decodeClaimsObject reads the members of an already-opened JSON object,
// consuming the closing brace.
func decodeClaimsObject(dec *json.Decoder) ([]ClaimPair, error) {
	var pairs []ClaimPair
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read claims key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("claims key is not a string")
		}

		value, err := decodeClaimsValue(dec)
		if err != nil {
			return nil, err
		}

		for _, p := range pairs {
			if p.Key == key {
				return nil, fmt.Errorf("duplicate claims key %q", key)
			}
		}
		pairs = append(pairs, ClaimPair{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read end of claims object: %w", err)
	}
	return pairs, nil
}

func decodeClaimsValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read claims value: %w", err)
	}

	switch v := tok.(type) {
	case json.Delim:
		if v == '{' {
			pairs, err := decodeClaimsObject(dec)
			if err != nil {
				return nil, err
			}
			return &Claims{pairs: pairs}, nil
		}
		return nil, fmt.Errorf("unsupported claims value delimiter %q", v.String())
	case string:
		return v, nil
	case bool:
		return v, nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("claims numbers must be integers: %w", err)
		}
		return i, nil
	case nil:
		return nil, fmt.Errorf("null claims values are not supported")
	default:
		return nil, fmt.Errorf("unsupported claims value type %T", tok)
	}
}

// BuildClaims deterministically builds the certificate claims map from a
// signed snapshot. Field presence and order are fixed by record type; the same
// snapshot always yields the same claims. Fails with ErrCodeInvalidClaims when
// the snapshot violates the claims rules (see Snapshot.Validate).
func BuildClaims(s *Snapshot) (*Claims, error) {
	if s == nil {
		return nil, NewInvalidArgumentError("snapshot is nil")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	claims := NewClaims()
	claims.Set(ClaimKeyID, s.PetID)
	claims.Set(ClaimKeyName, s.PetName)
	claims.Set(ClaimKeySpecies, s.Species)
	claims.Set(ClaimKeyBreed, s.Breed)
	claims.Set(ClaimKeyMicrochip, s.Microchip)

	vet := NewClaims()
	vet.Set(claimKeyPartyID, s.VetID)
	vet.Set(claimKeyPartyName, s.VetName)
	vet.Set(claimKeyLicense, s.VetLicense)
	claims.Set(ClaimKeyVet, vet)

	clinic := NewClaims()
	clinic.Set(claimKeyPartyID, s.ClinicID)
	clinic.Set(claimKeyPartyName, s.ClinicName)
	clinic.Set(claimKeyRegistration, s.ClinicRegistration)
	claims.Set(ClaimKeyClinic, clinic)

	claims.Set(ClaimKeyType, s.RecordType)
	claims.Set(ClaimKeyDate, s.Date)
	claims.Set(ClaimKeyDescription, s.Description)

	if s.Vaccine != nil {
		vaccine := NewClaims()
		vaccine.Set(claimKeyVaccineName, s.Vaccine.Name)
		vaccine.Set(claimKeyVaccineBatch, s.Vaccine.Batch)
		vaccine.Set(claimKeyLaboratory, s.Vaccine.Laboratory)
		vaccine.Set(claimKeyValidFrom, s.Vaccine.ValidFrom)
		vaccine.Set(claimKeyValidUntil, s.Vaccine.ValidUntil)
		vaccine.Set(claimKeyRabies, s.Vaccine.Rabies)
		claims.Set(ClaimKeyVaccine, vaccine)
	}

	return claims, nil
}

// SnapshotFromClaims re-derives the signed snapshot from a decoded claims map
// so the verifier can rebuild the canonical signable bytes at scan time.
// Claims that do not match the fixed layout (missing fields, wrong types,
// unknown fields) fail with ErrCodeInvalidClaims.
func SnapshotFromClaims(c *Claims) (*Snapshot, error) {
	if c == nil {
		return nil, NewInvalidArgumentError("claims are nil")
	}

	s := &Snapshot{}
	var err error

	if s.PetID, err = claimString(c, ClaimKeyID); err != nil {
		return nil, err
	}
	if s.PetName, err = claimString(c, ClaimKeyName); err != nil {
		return nil, err
	}
	if s.Species, err = claimString(c, ClaimKeySpecies); err != nil {
		return nil, err
	}
	if s.Breed, err = claimString(c, ClaimKeyBreed); err != nil {
		return nil, err
	}
	if s.Microchip, err = claimString(c, ClaimKeyMicrochip); err != nil {
		return nil, err
	}

	vet, ok := c.GetClaims(ClaimKeyVet)
	if !ok {
		return nil, NewInvalidClaimsError("claims are missing the vet block")
	}
	if vet.Len() != partyClaimsLen {
		return nil, NewInvalidClaimsError("vet block contains unexpected fields")
	}
	if s.VetID, err = claimString(vet, claimKeyPartyID); err != nil {
		return nil, err
	}
	if s.VetName, err = claimString(vet, claimKeyPartyName); err != nil {
		return nil, err
	}
	if s.VetLicense, err = claimString(vet, claimKeyLicense); err != nil {
		return nil, err
	}

	clinic, ok := c.GetClaims(ClaimKeyClinic)
	if !ok {
		return nil, NewInvalidClaimsError("claims are missing the clinic block")
	}
	if clinic.Len() != partyClaimsLen {
		return nil, NewInvalidClaimsError("clinic block contains unexpected fields")
	}
	if s.ClinicID, err = claimString(clinic, claimKeyPartyID); err != nil {
		return nil, err
	}
	if s.ClinicName, err = claimString(clinic, claimKeyPartyName); err != nil {
		return nil, err
	}
	if s.ClinicRegistration, err = claimString(clinic, claimKeyRegistration); err != nil {
		return nil, err
	}

	if s.RecordType, err = claimString(c, ClaimKeyType); err != nil {
		return nil, err
	}
	if s.Date, err = claimString(c, ClaimKeyDate); err != nil {
		return nil, err
	}
	if s.Description, err = claimString(c, ClaimKeyDescription); err != nil {
		return nil, err
	}

	wantLen := baseClaimsLen
	if vaccine, ok := c.GetClaims(ClaimKeyVaccine); ok {
		wantLen = vaccineClaimsLen
		if vaccine.Len() != vaccineBlockLen {
			return nil, NewInvalidClaimsError("vaccine block contains unexpected fields")
		}
		v := &VaccineClaims{}
		if v.Name, err = claimString(vaccine, claimKeyVaccineName); err != nil {
			return nil, err
		}
		if v.Batch, err = claimString(vaccine, claimKeyVaccineBatch); err != nil {
			return nil, err
		}
		if v.Laboratory, err = claimString(vaccine, claimKeyLaboratory); err != nil {
			return nil, err
		}
		if v.ValidFrom, err = claimString(vaccine, claimKeyValidFrom); err != nil {
			return nil, err
		}
		if v.ValidUntil, err = claimString(vaccine, claimKeyValidUntil); err != nil {
			return nil, err
		}
		rabies, ok := vaccine.GetBool(claimKeyRabies)
		if !ok {
			return nil, NewInvalidClaimsError("vaccine rabies claim is missing or not a boolean")
		}
		v.Rabies = rabies
		s.Vaccine = v
	}

	if c.Len() != wantLen {
		return nil, NewInvalidClaimsError("claims contain unexpected fields")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func claimString(c *Claims, key string) (string, error) {
	v, ok := c.GetString(key)
	if !ok {
		return "", NewInvalidClaimsError(fmt.Sprintf("claims field %q is missing or not a string", key))
	}
	return v, nil
}
