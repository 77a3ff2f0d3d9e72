package hcert

// MaxCertificateTextLength is the maximum accepted length of the HC1: text.
// Certificates fit in a QR code, so anything past a few kilobytes is not a
// certificate; the verifier rejects longer input before decoding it.
var MaxCertificateTextLength = 8 * 1024

// MaxDecompressedSize is the maximum allowed size of the inflated envelope.
// Envelopes are sized in kilobytes (claims plus two RSA signatures); the cap
// keeps a crafted zlib stream from expanding without bound.
var MaxDecompressedSize int64 = 64 * 1024
