// CBOR subset codec for the certificate wire format.
//
// The envelope only ever carries a handful of item kinds: definite-length
// maps, arrays, text strings, byte strings, small integers and booleans. This
// codec implements exactly that subset instead of pulling in a general CBOR
// library; the bytes it produces stay compatible with generic decoders, while
// anything outside the subset (floats, tags, indefinite lengths) is rejected
// on decode.
package hcert

import (
	"fmt"
	"math"
)

// CBOR major types (RFC 8949 §3).
const (
	cborMajorUnsigned = 0
	cborMajorNegative = 1
	cborMajorBytes    = 2
	cborMajorText     = 3
	cborMajorArray    = 4
	cborMajorMap      = 5
	cborMajorTag      = 6
	cborMajorSimple   = 7
)

// simple values of major type 7
const (
	cborSimpleFalse = 20
	cborSimpleTrue  = 21
	cborSimpleNull  = 22
)

// EncodeCBOR serializes a claims map as a definite-length CBOR map with text
// keys, preserving insertion order. The output is the certificate payload
// that the envelope wraps as a byte string.
func EncodeCBOR(claims *Claims) ([]byte, error) {
	if claims == nil {
		return nil, NewInvalidArgumentError("claims are nil")
	}
	return appendClaims(nil, claims)
}

// DecodeCBOR is the inverse of EncodeCBOR. It is strict: the input must be a
// single map of the supported item types with no trailing bytes, and
// duplicate keys are rejected.
func DecodeCBOR(data []byte) (*Claims, error) {
	if len(data) == 0 {
		return nil, NewEncodingError("claims payload is empty")
	}

	r := &cborReader{buf: data}
	claims, err := r.readClaims()
	if err != nil {
		return nil, WrapEncodingError(err, "failed to decode claims payload")
	}
	if !r.done() {
		return nil, NewEncodingError("claims payload has trailing bytes")
	}
	return claims, nil
}

func appendClaims(dst []byte, claims *Claims) ([]byte, error) {
	dst = appendCBORHead(dst, cborMajorMap, uint64(claims.Len()))
	for _, p := range claims.Pairs() {
		dst = appendCBORText(dst, p.Key)
		var err error
		dst, err = appendClaimValue(dst, p.Key, p.Value)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func appendClaimValue(dst []byte, key string, value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return appendCBORText(dst, v), nil
	case bool:
		return appendCBORBool(dst, v), nil
	case int64:
		return appendCBORInt(dst, v), nil
	case *Claims:
		return appendClaims(dst, v)
	default:
		return nil, NewInternalError(fmt.Sprintf("unsupported claims value type %T for key %q", value, key))
	}
}

// appendCBORHead writes the type byte and length/value argument for an item,
// using the shortest form that fits.
func appendCBORHead(dst []byte, major byte, n uint64) []byte {
	switch {
	case n < 24:
		return append(dst, major<<5|byte(n))
	case n <= math.MaxUint8:
		return append(dst, major<<5|24, byte(n))
	case n <= math.MaxUint16:
		return append(dst, major<<5|25, byte(n>>8), byte(n))
	case n <= math.MaxUint32:
		return append(dst, major<<5|26, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	default:
		return append(dst, major<<5|27,
			byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
			byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
}

func appendCBORInt(dst []byte, v int64) []byte {
	if v >= 0 {
		return appendCBORHead(dst, cborMajorUnsigned, uint64(v))
	}
	return appendCBORHead(dst, cborMajorNegative, uint64(-(v + 1)))
}

func appendCBORBytes(dst, b []byte) []byte {
	dst = appendCBORHead(dst, cborMajorBytes, uint64(len(b)))
	return append(dst, b...)
}

func appendCBORText(dst []byte, s string) []byte {
	dst = appendCBORHead(dst, cborMajorText, uint64(len(s)))
	return append(dst, s...)
}

func appendCBORBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, cborMajorSimple<<5|cborSimpleTrue)
	}
	return append(dst, cborMajorSimple<<5|cborSimpleFalse)
}

// cborReader walks a CBOR byte buffer, shared by the claims codec and the
// envelope parser.
type cborReader struct {
	buf []byte
	pos int
}

func (r *cborReader) done() bool {
	return r.pos >= len(r.buf)
}

func (r *cborReader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("unexpected end of data")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// readHead decodes an item's type byte plus its length/value argument.
func (r *cborReader) readHead() (byte, uint64, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, 0, err
	}
	major := b >> 5
	info := b & 0x1f

	switch {
	case info < 24:
		return major, uint64(info), nil
	case info <= 27:
		width := 1 << (info - 24)
		var v uint64
		for i := 0; i < width; i++ {
			c, err := r.readByte()
			if err != nil {
				return 0, 0, err
			}
			v = v<<8 | uint64(c)
		}
		return major, v, nil
	case info == 31:
		return 0, 0, fmt.Errorf("indefinite-length items are not supported")
	default:
		return 0, 0, fmt.Errorf("reserved length encoding %d", info)
	}
}

// readLen reads a head of the expected major type and bounds the length
// argument against the remaining buffer so a corrupt length cannot force a
// huge allocation.
func (r *cborReader) readLen(major byte, what string) (int, error) {
	m, v, err := r.readHead()
	if err != nil {
		return 0, err
	}
	if m != major {
		return 0, fmt.Errorf("expected %s, found major type %d", what, m)
	}
	if v > uint64(len(r.buf)-r.pos) {
		return 0, fmt.Errorf("%s length %d exceeds remaining data", what, v)
	}
	return int(v), nil
}

func (r *cborReader) readBytes() ([]byte, error) {
	n, err := r.readLen(cborMajorBytes, "byte string")
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

func (r *cborReader) readText() (string, error) {
	n, err := r.readLen(cborMajorText, "text string")
	if err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

func (r *cborReader) readArrayHead() (int, error) {
	return r.readLen(cborMajorArray, "array")
}

func (r *cborReader) readMapHead() (int, error) {
	return r.readLen(cborMajorMap, "map")
}

func (r *cborReader) readInt() (int64, error) {
	major, v, err := r.readHead()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("integer overflows int64")
	}
	switch major {
	case cborMajorUnsigned:
		return int64(v), nil
	case cborMajorNegative:
		return -1 - int64(v), nil
	default:
		return 0, fmt.Errorf("expected integer, found major type %d", major)
	}
}

func (r *cborReader) readClaims() (*Claims, error) {
	n, err := r.readMapHead()
	if err != nil {
		return nil, err
	}
	claims := NewClaims()
	for i := 0; i < n; i++ {
		key, err := r.readText()
		if err != nil {
			return nil, err
		}
		value, err := r.readClaimValue()
		if err != nil {
			return nil, err
		}
		if err := claims.add(key, value); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

func (r *cborReader) readClaimValue() (any, error) {
	if r.pos >= len(r.buf) {
		return nil, fmt.Errorf("unexpected end of data")
	}

	switch r.buf[r.pos] >> 5 {
	case cborMajorUnsigned, cborMajorNegative:
		return r.readInt()
	case cborMajorText:
		return r.readText()
	case cborMajorMap:
		return r.readClaims()
	case cborMajorSimple:
		_, v, err := r.readHead()
		if err != nil {
			return nil, err
		}
		switch v {
		case cborSimpleFalse:
			return false, nil
		case cborSimpleTrue:
			return true, nil
		case cborSimpleNull:
			return nil, fmt.Errorf("null claims values are not supported")
		default:
			return nil, fmt.Errorf("unsupported simple value %d", v)
		}
	default:
		return nil, fmt.Errorf("unsupported claims value major type %d", r.buf[r.pos]>>5)
	}
}

// skipItem consumes one item of any supported kind without interpreting it.
// The envelope parser uses it to tolerate foreign header-map entries.
func (r *cborReader) skipItem() error {
	if r.pos >= len(r.buf) {
		return fmt.Errorf("unexpected end of data")
	}
	info := r.buf[r.pos] & 0x1f

	major, value, err := r.readHead()
	if err != nil {
		return err
	}
	switch major {
	case cborMajorUnsigned, cborMajorNegative:
		return nil
	case cborMajorBytes, cborMajorText:
		if value > uint64(len(r.buf)-r.pos) {
			return fmt.Errorf("string length %d exceeds remaining data", value)
		}
		r.pos += int(value)
		return nil
	case cborMajorArray:
		for i := uint64(0); i < value; i++ {
			if err := r.skipItem(); err != nil {
				return err
			}
		}
		return nil
	case cborMajorMap:
		for i := uint64(0); i < value; i++ {
			if err := r.skipItem(); err != nil {
				return err
			}
			if err := r.skipItem(); err != nil {
				return err
			}
		}
		return nil
	case cborMajorTag:
		return fmt.Errorf("tagged values are not supported")
	default:
		if info >= 25 {
			return fmt.Errorf("floating-point values are not supported")
		}
		return nil
	}
}
