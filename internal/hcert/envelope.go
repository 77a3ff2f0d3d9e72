package hcert

// The envelope is a COSE Sign-shaped container: a 4-element CBOR array
// [protected, unprotected, payload, signatures] whose signatures list holds
// exactly two 3-element entries [protected, unprotected, signature], vet
// first, clinic second. Header maps are empty in certificates we build but
// must be present for compatibility with generic decoders; the parser
// tolerates foreign entries in them.

// coseHeaderAlgorithm is the COSE header label for the algorithm identifier.
const coseHeaderAlgorithm = 1

// AlgorithmPS256 is the COSE algorithm identifier for RSASSA-PSS with
// SHA-256, the only algorithm certificates use.
const AlgorithmPS256 int64 = -37

const (
	envelopeLen        = 4
	envelopeSignerLen  = 2
	signatureEntryLen  = 3
	signatureVetIdx    = 0
	signatureClinicIdx = 1
)

// Envelope is the structured signature container of a certificate.
type Envelope struct {
	// Protected holds the body protected-header bytes (empty in
	// certificates we build, kept verbatim from parsed input).
	Protected []byte
	// Payload holds the CBOR-encoded claims.
	Payload []byte
	// Signatures holds the two signature entries in fixed signer order.
	Signatures [envelopeSignerLen]SignatureEntry
}

// SignatureEntry is one signer's entry in the envelope.
type SignatureEntry struct {
	// Protected holds the entry's protected-header bytes, a serialized
	// CBOR map declaring the signature algorithm.
	Protected []byte
	// Signature holds the raw signature bytes.
	Signature []byte
}

// BuildEnvelope constructs the envelope for a certificate payload and the two
// record signatures. The signatures are opaque blobs produced at
// record-creation time; both entries declare AlgorithmPS256.
func BuildEnvelope(payload, vetSig, clinicSig []byte) (*Envelope, error) {
	if len(payload) == 0 {
		return nil, NewInvalidArgumentError("payload is empty")
	}
	if len(vetSig) == 0 {
		return nil, NewInvalidArgumentError("vet signature is empty")
	}
	if len(clinicSig) == 0 {
		return nil, NewInvalidArgumentError("clinic signature is empty")
	}

	headers := encodeSignatureHeaders(AlgorithmPS256)
	return &Envelope{
		Protected: []byte{},
		Payload:   payload,
		Signatures: [envelopeSignerLen]SignatureEntry{
			{Protected: headers, Signature: vetSig},
			{Protected: headers, Signature: clinicSig},
		},
	}, nil
}

// encodeSignatureHeaders serializes the per-signature protected header map
// {1: alg}.
func encodeSignatureHeaders(alg int64) []byte {
	headers := appendCBORHead(nil, cborMajorMap, 1)
	headers = appendCBORInt(headers, coseHeaderAlgorithm)
	return appendCBORInt(headers, alg)
}

// VetSignature returns the raw vet signature bytes.
func (e *Envelope) VetSignature() []byte {
	return e.Signatures[signatureVetIdx].Signature
}

// ClinicSignature returns the raw clinic signature bytes.
func (e *Envelope) ClinicSignature() []byte {
	return e.Signatures[signatureClinicIdx].Signature
}

// Encode serializes the envelope to its wire bytes.
func (e *Envelope) Encode() ([]byte, error) {
	if len(e.Payload) == 0 {
		return nil, NewInvalidArgumentError("envelope payload is empty")
	}
	for _, sig := range e.Signatures {
		if len(sig.Signature) == 0 {
			return nil, NewInvalidArgumentError("envelope signature is empty")
		}
	}

	out := appendCBORHead(nil, cborMajorArray, envelopeLen)
	out = appendCBORBytes(out, e.Protected)
	out = appendCBORHead(out, cborMajorMap, 0)
	out = appendCBORBytes(out, e.Payload)
	out = appendCBORHead(out, cborMajorArray, envelopeSignerLen)
	for _, sig := range e.Signatures {
		out = appendCBORHead(out, cborMajorArray, signatureEntryLen)
		out = appendCBORBytes(out, sig.Protected)
		out = appendCBORHead(out, cborMajorMap, 0)
		out = appendCBORBytes(out, sig.Signature)
	}
	return out, nil
}

// ParseEnvelope decodes envelope wire bytes. Fails with code
// ErrCodeMalformedEnvelope if the top level is not exactly a 4-element array,
// the signatures list does not hold exactly 2 entries, or any entry is not
// exactly a 3-element array.
func ParseEnvelope(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, NewEnvelopeError("envelope is empty")
	}

	r := &cborReader{buf: data}
	n, err := r.readArrayHead()
	if err != nil {
		return nil, WrapEnvelopeError(err, "failed to parse envelope")
	}
	if n != envelopeLen {
		return nil, NewEnvelopeError("envelope must be a 4-element array")
	}

	e := &Envelope{}
	if e.Protected, err = r.readBytes(); err != nil {
		return nil, WrapEnvelopeError(err, "failed to parse protected headers")
	}
	if err := skipHeaderMap(r); err != nil {
		return nil, WrapEnvelopeError(err, "failed to parse unprotected headers")
	}
	if e.Payload, err = r.readBytes(); err != nil {
		return nil, WrapEnvelopeError(err, "failed to parse payload")
	}

	sigCount, err := r.readArrayHead()
	if err != nil {
		return nil, WrapEnvelopeError(err, "failed to parse signatures")
	}
	if sigCount != envelopeSignerLen {
		return nil, NewEnvelopeError("envelope must carry exactly 2 signatures")
	}
	for i := range e.Signatures {
		entryLen, err := r.readArrayHead()
		if err != nil {
			return nil, WrapEnvelopeError(err, "failed to parse signature entry")
		}
		if entryLen != signatureEntryLen {
			return nil, NewEnvelopeError("signature entry must be a 3-element array")
		}
		if e.Signatures[i].Protected, err = r.readBytes(); err != nil {
			return nil, WrapEnvelopeError(err, "failed to parse signature protected headers")
		}
		if err := skipHeaderMap(r); err != nil {
			return nil, WrapEnvelopeError(err, "failed to parse signature unprotected headers")
		}
		if e.Signatures[i].Signature, err = r.readBytes(); err != nil {
			return nil, WrapEnvelopeError(err, "failed to parse signature bytes")
		}
	}

	if !r.done() {
		return nil, NewEnvelopeError("envelope has trailing bytes")
	}
	return e, nil
}

// skipHeaderMap consumes an unprotected header map without interpreting its
// entries.
func skipHeaderMap(r *cborReader) error {
	pairs, err := r.readMapHead()
	if err != nil {
		return err
	}
	for i := 0; i < pairs; i++ {
		if err := r.skipItem(); err != nil {
			return err
		}
		if err := r.skipItem(); err != nil {
			return err
		}
	}
	return nil
}

// Algorithm extracts the COSE algorithm identifier from the entry's protected
// headers. Foreign header entries are ignored; a missing or duplicated
// algorithm label is an error.
func (s *SignatureEntry) Algorithm() (int64, error) {
	if len(s.Protected) == 0 {
		return 0, NewEnvelopeError("signature entry has no protected headers")
	}

	r := &cborReader{buf: s.Protected}
	pairs, err := r.readMapHead()
	if err != nil {
		return 0, WrapEnvelopeError(err, "failed to parse signature protected headers")
	}

	var alg int64
	var found bool
	for i := 0; i < pairs; i++ {
		if r.done() {
			return 0, NewEnvelopeError("signature protected headers are truncated")
		}
		if major := r.buf[r.pos] >> 5; major != cborMajorUnsigned && major != cborMajorNegative {
			// not an integer label, ignore the pair
			if err := r.skipItem(); err != nil {
				return 0, WrapEnvelopeError(err, "failed to parse signature protected headers")
			}
			if err := r.skipItem(); err != nil {
				return 0, WrapEnvelopeError(err, "failed to parse signature protected headers")
			}
			continue
		}

		label, err := r.readInt()
		if err != nil {
			return 0, WrapEnvelopeError(err, "failed to parse signature protected headers")
		}
		if label != coseHeaderAlgorithm {
			if err := r.skipItem(); err != nil {
				return 0, WrapEnvelopeError(err, "failed to parse signature protected headers")
			}
			continue
		}
		if found {
			return 0, NewEnvelopeError("signature protected headers declare the algorithm twice")
		}
		if alg, err = r.readInt(); err != nil {
			return 0, WrapEnvelopeError(err, "signature algorithm is not an integer")
		}
		found = true
	}

	if !r.done() {
		return 0, NewEnvelopeError("signature protected headers have trailing bytes")
	}
	if !found {
		return 0, NewEnvelopeError("signature protected headers do not declare an algorithm")
	}
	return alg, nil
}
