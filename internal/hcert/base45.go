package hcert

import (
	"fmt"
	"strings"
)

// SchemePrefix is the literal scheme tag that marks certificate text.
const SchemePrefix = "HC1:"

// base45Alphabet is the RFC 9285 character set, chosen to survive QR
// alphanumeric mode.
const base45Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

var base45Reverse [256]int8

func init() {
	for i := range base45Reverse {
		base45Reverse[i] = -1
	}
	for i := 0; i < len(base45Alphabet); i++ {
		base45Reverse[base45Alphabet[i]] = int8(i)
	}
}

// EncodeText encodes bytes as Base45 text behind the HC1: scheme tag. Pairs
// of bytes become three characters, a trailing byte becomes two; there is no
// padding.
func EncodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewInvalidArgumentError("data is empty")
	}

	var b strings.Builder
	b.Grow(len(SchemePrefix) + (len(data)/2)*3 + 2)
	b.WriteString(SchemePrefix)

	for i := 0; i+1 < len(data); i += 2 {
		n := int(data[i])<<8 | int(data[i+1])
		b.WriteByte(base45Alphabet[n%45])
		n /= 45
		b.WriteByte(base45Alphabet[n%45])
		b.WriteByte(base45Alphabet[n/45])
	}
	if len(data)%2 == 1 {
		n := int(data[len(data)-1])
		b.WriteByte(base45Alphabet[n%45])
		b.WriteByte(base45Alphabet[n/45])
	}
	return b.String(), nil
}

// DecodeText is the inverse of EncodeText. A missing or mismatched scheme tag
// fails with code ErrCodeUnsupportedScheme; illegal characters, impossible
// chunk values and truncated text fail with code ErrCodeInvalidEncoding.
func DecodeText(text string) ([]byte, error) {
	if !strings.HasPrefix(text, SchemePrefix) {
		return nil, NewSchemeError(fmt.Sprintf("certificate text does not start with %q", SchemePrefix))
	}
	body := text[len(SchemePrefix):]
	if body == "" {
		return nil, NewEncodingError("certificate text carries no data")
	}
	if len(body)%3 == 1 {
		return nil, NewEncodingError("base45 text is truncated")
	}

	out := make([]byte, 0, len(body)/3*2+1)
	full := len(body) / 3 * 3
	for i := 0; i < full; i += 3 {
		c, err := base45Digit(body[i])
		if err != nil {
			return nil, err
		}
		d, err := base45Digit(body[i+1])
		if err != nil {
			return nil, err
		}
		e, err := base45Digit(body[i+2])
		if err != nil {
			return nil, err
		}
		n := c + d*45 + e*45*45
		if n > 0xffff {
			return nil, NewEncodingError("base45 triple exceeds two bytes")
		}
		out = append(out, byte(n>>8), byte(n))
	}
	if full < len(body) {
		c, err := base45Digit(body[full])
		if err != nil {
			return nil, err
		}
		d, err := base45Digit(body[full+1])
		if err != nil {
			return nil, err
		}
		n := c + d*45
		if n > 0xff {
			return nil, NewEncodingError("base45 pair exceeds one byte")
		}
		out = append(out, byte(n))
	}
	return out, nil
}

func base45Digit(c byte) (int, error) {
	v := base45Reverse[c]
	if v < 0 {
		return 0, NewEncodingError(fmt.Sprintf("illegal base45 character %q", c))
	}
	return int(v), nil
}
