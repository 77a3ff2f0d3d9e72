package hcert

// CertificateData is the computed portion of a certificate handed to
// persistence at issuance time. The QR text is not part of it: it is derived
// on demand from the stored claims JSON and signatures, never persisted.
type CertificateData struct {
	// ClaimsJSON is the ordered claims serialization.
	ClaimsJSON string
	// ClaimsHash is the hex SHA-256 of the canonicalized claims JSON.
	ClaimsHash string
	// VetSignature and ClinicSignature are the raw record signature bytes.
	VetSignature    []byte
	ClinicSignature []byte
}

// BuildCertificateData computes the claims JSON and claims hash for a signed
// record snapshot. The two signatures were produced at record-creation time
// over the canonical signable string; this function treats them as opaque
// blobs and never re-signs.
func BuildCertificateData(s *Snapshot, vetSig, clinicSig []byte) (*CertificateData, error) {
	if len(vetSig) == 0 {
		return nil, NewInvalidArgumentError("vet signature is empty")
	}
	if len(clinicSig) == 0 {
		return nil, NewInvalidArgumentError("clinic signature is empty")
	}

	claims, err := BuildClaims(s)
	if err != nil {
		return nil, err
	}
	claimsJSON, err := claims.MarshalJSON()
	if err != nil {
		return nil, WrapInternalError(err, "failed to serialize claims")
	}
	hash, err := ClaimsHash(claims)
	if err != nil {
		return nil, err
	}

	return &CertificateData{
		ClaimsJSON:      string(claimsJSON),
		ClaimsHash:      hash,
		VetSignature:    vetSig,
		ClinicSignature: clinicSig,
	}, nil
}

// EncodeCertificateText derives the HC1: QR text from a stored certificate:
// claims JSON → claims map → CBOR payload → signature envelope → zlib →
// Base45 behind the scheme tag.
func EncodeCertificateText(claimsJSON string, vetSig, clinicSig []byte) (string, error) {
	if claimsJSON == "" {
		return "", NewInvalidArgumentError("claims JSON is empty")
	}

	claims := NewClaims()
	if err := claims.UnmarshalJSON([]byte(claimsJSON)); err != nil {
		return "", WrapInvalidClaimsError(err, "failed to parse stored claims")
	}

	payload, err := EncodeCBOR(claims)
	if err != nil {
		return "", err
	}
	envelope, err := BuildEnvelope(payload, vetSig, clinicSig)
	if err != nil {
		return "", err
	}
	raw, err := envelope.Encode()
	if err != nil {
		return "", err
	}
	compressed, err := Deflate(raw)
	if err != nil {
		return "", err
	}
	return EncodeText(compressed)
}

// DecodeCertificateText decodes certificate text down to its claims WITHOUT
// verifying anything: no hash comparison, no signature checks. This is the
// display path for inspecting what a token claims to contain; the result must
// never be treated as attested data.
func DecodeCertificateText(text string) (*Claims, error) {
	compressed, err := DecodeText(text)
	if err != nil {
		return nil, err
	}
	raw, err := Inflate(compressed)
	if err != nil {
		return nil, err
	}
	envelope, err := ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return DecodeCBOR(envelope.Payload)
}
