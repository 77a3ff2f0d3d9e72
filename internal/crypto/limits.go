package crypto

// MaxKeyFileSize is the maximum allowed size for key material files (JWK,
// JWK set and PEM files) before parsing. Key files are a few kilobytes at
// most; the limit guards against reading an arbitrary large file into memory
// because of a misconfigured path.
var MaxKeyFileSize int64 = 1 * 1024 * 1024 // 1MB
