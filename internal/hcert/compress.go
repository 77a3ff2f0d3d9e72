package hcert

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Deflate compresses envelope bytes with zlib at maximum compression. The
// zlib framing (not raw DEFLATE) is what generic HCERT-style decoders expect
// between the Base45 layer and the envelope. Empty input is rejected before
// touching the stream.
func Deflate(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, NewInvalidArgumentError("data is empty")
	}

	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, WrapCompressionError(err, "failed to create compressor")
	}
	if _, err := w.Write(data); err != nil {
		return nil, WrapCompressionError(err, "failed to compress data")
	}
	if err := w.Close(); err != nil {
		return nil, WrapCompressionError(err, "failed to finish compression")
	}
	return buf.Bytes(), nil
}

// Inflate decompresses a zlib stream, capping the output at
// MaxDecompressedSize so a hostile certificate cannot expand without bound.
func Inflate(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, NewDecompressionError("data is empty")
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, WrapDecompressionError(err, "failed to open compressed stream")
	}
	defer r.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, WrapDecompressionError(err, "failed to decompress data")
	}
	if n > MaxDecompressedSize {
		return nil, NewDecompressionError(fmt.Sprintf("decompressed size exceeds maximum (%d bytes)", MaxDecompressedSize))
	}
	return buf.Bytes(), nil
}
