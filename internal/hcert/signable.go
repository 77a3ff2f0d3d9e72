package hcert

import "strings"

// signableFieldSeparator joins the fields of the canonical signable string.
// Claims validation rejects any field containing it (see Snapshot.Validate).
const signableFieldSeparator = "|"

// signableFieldCount is the fixed number of fields in the signable string.
const signableFieldCount = 20

// SignableString builds the canonical byte string the vet and the clinic sign
// when a record is created. It is a fixed sequence of 20 pipe-joined fields in
// snapshot order; non-vaccine records carry the five vaccine fields as empty
// strings and the rabies flag serializes as "true" or "false". This is NOT the
// certificate payload encoding - the envelope carries CBOR claims instead, and
// the verifier re-derives this exact string from them to check the signatures.
func SignableString(s *Snapshot) (string, error) {
	if s == nil {
		return "", NewInvalidArgumentError("snapshot is nil")
	}
	if err := s.Validate(); err != nil {
		return "", err
	}
	return strings.Join(s.fieldValues(), signableFieldSeparator), nil
}

// fieldValues returns the snapshot fields in signable order.
func (s *Snapshot) fieldValues() []string {
	fields := make([]string, 0, signableFieldCount)
	fields = append(fields,
		s.PetID,
		s.PetName,
		s.Species,
		s.Breed,
		s.Microchip,
		s.VetID,
		s.VetName,
		s.VetLicense,
		s.ClinicID,
		s.ClinicName,
		s.ClinicRegistration,
		s.RecordType,
		s.Date,
		s.Description,
	)

	var vaccineName, batch, laboratory, validFrom, validUntil, rabies string
	rabies = "false"
	if s.Vaccine != nil {
		vaccineName = s.Vaccine.Name
		batch = s.Vaccine.Batch
		laboratory = s.Vaccine.Laboratory
		validFrom = s.Vaccine.ValidFrom
		validUntil = s.Vaccine.ValidUntil
		if s.Vaccine.Rabies {
			rabies = "true"
		}
	}
	return append(fields, vaccineName, batch, laboratory, validFrom, validUntil, rabies)
}
